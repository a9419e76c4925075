package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/w-h-a/relay/generator"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	name         = "anthropic"
	DefaultModel = "claude-3-5-haiku-latest"
)

type anthropicGenerator struct {
	options generator.Options
	client  *anthropic.Client
}

func (g *anthropicGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	if len(g.options.ApiKey) == 0 {
		return "", generator.MissingKey(name)
	}

	rsp, err := g.client.Messages.New(ctx, params(g.options.Model, req))
	if err != nil {
		return "", classify(err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", generator.NewError(generator.MalformedResponse, name, "reply has no text blocks", nil)
	}

	return result, nil
}

func params(model string, req generator.Request) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, turn := range req.History {
		if turn.Role == generator.RoleModel {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Text)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Text)))
	}

	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	// the messages API only produces text, so the MIME type has nothing to map to
	return anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(req.Config.MaxOutputTokens),
		Messages:    messages,
		Temperature: anthropic.Float(float64(req.Config.Temperature)),
		TopP:        anthropic.Float(float64(req.Config.TopP)),
		TopK:        anthropic.Int(int64(req.Config.TopK)),
	}
}

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return generator.FromStatus(name, apiErr.StatusCode, err)
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

	g := &anthropicGenerator{
		options: options,
	}

	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.ApiKey),
		anthropicopt.WithHTTPClient(options.HTTPClient),
		anthropicopt.WithMaxRetries(0),
	}
	if len(options.Endpoint) > 0 {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.Endpoint))
	}

	client := anthropic.NewClient(clientOpts...)

	g.client = &client

	return g
}
