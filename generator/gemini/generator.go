package gemini

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/w-h-a/relay/generator"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"
)

const (
	name         = "gemini"
	DefaultModel = "gemini-2.5-flash"
)

type geminiGenerator struct {
	options generator.Options
	client  *genai.Client
	err     error
}

func (g *geminiGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	if len(g.options.ApiKey) == 0 {
		return "", generator.MissingKey(name)
	}

	if g.err != nil {
		return "", classify(g.err)
	}

	chat, err := g.client.Chats.Create(ctx, g.options.Model, config(req.Config), history(req.History))
	if err != nil {
		return "", classify(err)
	}

	rsp, err := chat.SendMessage(ctx, genai.Part{Text: req.Prompt})
	if err != nil {
		return "", classify(err)
	}

	return text(rsp)
}

func config(cfg generator.Config) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(cfg.Temperature),
		TopP:             genai.Ptr(cfg.TopP),
		TopK:             genai.Ptr(float32(cfg.TopK)),
		MaxOutputTokens:  cfg.MaxOutputTokens,
		ResponseMIMEType: cfg.ResponseMIMEType,
	}
}

func history(turns []generator.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		contents = append(contents, &genai.Content{
			Role:  string(turn.Role),
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}
	return contents
}

func text(rsp *genai.GenerateContentResponse) (string, error) {
	if rsp == nil || len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return "", generator.NewError(generator.MalformedResponse, name, "no candidates in reply", nil)
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}

	if b.Len() == 0 {
		return "", generator.NewError(generator.MalformedResponse, name, "reply has no text parts", nil)
	}

	return b.String(), nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if generator.RejectedKey(apiErr.Message) {
			return generator.NewError(generator.Authentication, name, "credential rejected", err)
		}
		return generator.FromStatus(name, apiErr.Code, err)
	}

	return generator.FromTransport(name, err)
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = DefaultModel
	}

	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	g := &geminiGenerator{
		options: options,
	}

	if len(options.ApiKey) == 0 {
		return g
	}

	cc := &genai.ClientConfig{
		APIKey:     options.ApiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: options.HTTPClient,
	}
	if len(options.Endpoint) > 0 {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: options.Endpoint}
	}

	client, err := genai.NewClient(options.Context, cc)
	if err != nil {
		slog.ErrorContext(options.Context, "failed to initialize gemini generator", "error", err)
		g.err = err
		return g
	}

	g.client = client

	return g
}
