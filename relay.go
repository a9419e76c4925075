package relay

import (
	"context"
	"io"
	"log/slog"

	"github.com/w-h-a/relay/generator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/w-h-a/relay"

// Relay sends one prompt per call to a text-generation service using the
// fixed generation settings and a chat session with no history.
type Relay struct {
	generator generator.Generator
	tracer    trace.Tracer
}

// Generate returns the text of the service's reply to prompt. Calls share no
// state; errors from the generator are returned unchanged.
func (r *Relay) Generate(ctx context.Context, prompt string) (string, error) {
	cfg := generator.DefaultConfig()

	ctx, span := r.tracer.Start(ctx, "relay.Generate", trace.WithAttributes(
		attribute.Int("relay.prompt.length", len(prompt)),
		attribute.Float64("relay.config.temperature", float64(cfg.Temperature)),
		attribute.Int("relay.config.max_output_tokens", int(cfg.MaxOutputTokens)),
	))
	defer span.End()

	req := generator.Request{
		Prompt:  prompt,
		History: []generator.Turn{},
		Config:  cfg,
	}

	slog.DebugContext(ctx, "sending prompt", "length", len(prompt))

	text, err := r.generator.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if len(text) == 0 {
		err := generator.NewError(generator.MalformedResponse, "", "reply has no text", nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("relay.response.length", len(text)))
	slog.DebugContext(ctx, "received reply", "length", len(text))

	return text, nil
}

// Close releases the generator's client when it holds one.
func (r *Relay) Close() error {
	if c, ok := r.generator.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func New(gen generator.Generator) *Relay {
	if gen == nil {
		panic("generator is required")
	}

	return &Relay{
		generator: gen,
		tracer:    otel.Tracer(tracerName),
	}
}
