package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/relay/generator"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	name         = "openai"
	DefaultModel = "gpt-4o-mini"
)

type openAIGenerator struct {
	options generator.Options
	client  *openai.Client
}

func (g *openAIGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	if len(g.options.ApiKey) == 0 {
		return "", generator.MissingKey(name)
	}

	rsp, err := g.client.CreateChatCompletion(ctx, request(g.options.Model, req))
	if err != nil {
		return "", classify(err)
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", generator.NewError(generator.MalformedResponse, name, "no choices in reply", nil)
	}

	return rsp.Choices[0].Message.Content, nil
}

func request(model string, req generator.Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == generator.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Text,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	// chat completions have no top-k knob
	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Config.Temperature,
		TopP:        req.Config.TopP,
		MaxTokens:   int(req.Config.MaxOutputTokens),
	}

	switch req.Config.ResponseMIMEType {
	case "text/plain":
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeText}
	case "application/json":
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	return out
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return generator.FromStatus(name, apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return generator.FromStatus(name, reqErr.HTTPStatusCode, err)
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

	g := &openAIGenerator{
		options: options,
	}

	cfg := openai.DefaultConfig(options.ApiKey)
	cfg.HTTPClient = options.HTTPClient
	if len(options.Endpoint) > 0 {
		cfg.BaseURL = options.Endpoint
	}

	g.client = openai.NewClientWithConfig(cfg)

	return g
}
