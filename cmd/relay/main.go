package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/relay"
	"github.com/w-h-a/relay/server"
	httpserver "github.com/w-h-a/relay/server/http"
)

// demoPrompt is sent verbatim, stray quotes and trailing newline included.
const demoPrompt = `"give only one best style for image using following points:` +
	`    Target Audience: Programmers, particularly those learning C programming language` +
	`    Thumbnail Style:` +
	`    Visual: A simple, clean design with a focus on a code snippet or diagram illustrating pointer concepts.` +
	`   Color Scheme: A combination of dark and light colors, such as a dark background with bright text and graphics.` +
	`   Composition: A centered, minimalist layout with clear and concise elements.` +
	`   Overall Aesthetic: Technical, informative, and visually appealing"` +
	"\n   "

var (
	cli struct {
		Config   kong.ConfigFlag `help:"Path to a YAML config file."`
		LogLevel string          `name:"log-level" help:"Log level." default:"info" enum:"debug,info,warn,error"`

		// Generator config
		Provider string `help:"Generation service to relay to." default:"google" enum:"google,gemini,openai,anthropic,bedrock" env:"RELAY_PROVIDER"`
		Model    string `help:"Model identifier; empty picks the provider default." default:"" env:"RELAY_MODEL"`
		APIKey   string `name:"api-key" help:"API key for the generation service." default:"" env:"RELAY_API_KEY,GEMINI_API_KEY,GOOGLE_API_KEY"`
		Endpoint string `help:"Override the provider's base URL." default:""`
		Region   string `help:"AWS region for the bedrock provider." default:"" env:"AWS_REGION"`

		Generate generateCmd `cmd:"" default:"withargs" help:"Send one prompt and print the reply."`
		Serve    serveCmd    `cmd:"" help:"Relay prompts received over HTTP."`
	}
)

type generateCmd struct {
	Timeout time.Duration `help:"Give up after this long; zero waits for the service." default:"0s"`
	Prompt  []string      `arg:"" optional:"" help:"Prompt text. Defaults to a built-in demonstration prompt."`
}

func (c *generateCmd) Run(ctx context.Context, r *relay.Relay) error {
	prompt := strings.Join(c.Prompt, " ")
	if len(strings.TrimSpace(prompt)) == 0 {
		prompt = demoPrompt
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	text, err := r.Generate(ctx, prompt)
	if err != nil {
		return err
	}

	fmt.Println(text)

	return nil
}

type serveCmd struct {
	Address string `help:"Address to listen on." default:":8080" env:"RELAY_ADDRESS"`
}

func (c *serveCmd) Run(ctx context.Context, r *relay.Relay) error {
	s := httpserver.NewServer(
		r,
		server.WithAddress(c.Address),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down relay server")
		return s.Stop(context.Background())
	}
}

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Parse inputs
	kctx := kong.Parse(
		&cli,
		kong.Name("relay"),
		kong.Description("Send a prompt to a hosted text-generation service and print the reply."),
		kong.Configuration(yamlConfig, "~/.config/relay/config.yaml", "relay.yaml"),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)

	setupLogging(cli.LogLevel)

	// Create generator
	gen, err := newGenerator(cli.Provider, cli.APIKey, cli.Model, cli.Endpoint, cli.Region)
	kctx.FatalIfErrorf(err)

	// Create relay
	r := relay.New(gen)

	err = kctx.Run(r)
	if cerr := r.Close(); cerr != nil {
		slog.Warn("failed to close generator", "error", cerr)
	}
	kctx.FatalIfErrorf(err)
}

func setupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
