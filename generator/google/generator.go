package google

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/w-h-a/relay/generator"
	genaiopt "google.golang.org/api/option"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	name         = "google"
	DefaultModel = "gemini-1.5-pro"
)

type googleGenerator struct {
	options generator.Options
	client  *genai.Client
	err     error
}

func (g *googleGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	if len(g.options.ApiKey) == 0 {
		return "", generator.MissingKey(name)
	}

	if g.err != nil {
		return "", classify(g.err)
	}

	model := g.client.GenerativeModel(g.options.Model)
	configure(model, req.Config)

	cs := model.StartChat()
	cs.History = history(req.History)

	rsp, err := cs.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", classify(err)
	}

	return text(rsp)
}

func (g *googleGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func configure(model *genai.GenerativeModel, cfg generator.Config) {
	model.SetTemperature(cfg.Temperature)
	model.SetTopP(cfg.TopP)
	model.SetTopK(cfg.TopK)
	model.SetMaxOutputTokens(cfg.MaxOutputTokens)
	model.ResponseMIMEType = cfg.ResponseMIMEType
}

func history(turns []generator.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		contents = append(contents, &genai.Content{
			Role:  string(turn.Role),
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}
	return contents
}

func text(rsp *genai.GenerateContentResponse) (string, error) {
	if rsp == nil || len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return "", generator.NewError(generator.MalformedResponse, name, "no candidates in reply", nil)
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	if b.Len() == 0 {
		return "", generator.NewError(generator.MalformedResponse, name, "reply has no text parts", nil)
	}

	return b.String(), nil
}

func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return generator.NewError(generator.MalformedResponse, name, "reply blocked", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if generator.RejectedKey(apiErr.Message) || generator.RejectedKey(apiErr.Body) {
			return generator.NewError(generator.Authentication, name, "credential rejected", err)
		}
		return generator.FromStatus(name, apiErr.Code, err)
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return generator.NewError(generator.Authentication, name, "credential rejected", err)
		case codes.Unavailable, codes.Internal, codes.DeadlineExceeded:
			return generator.NewError(generator.ServiceUnavailable, name, s.Message(), err)
		case codes.InvalidArgument:
			if generator.RejectedKey(s.Message()) {
				return generator.NewError(generator.Authentication, name, "credential rejected", err)
			}
		}
	}

	return generator.FromTransport(name, err)
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = DefaultModel
	}

	g := &googleGenerator{
		options: options,
	}

	if len(options.ApiKey) == 0 {
		return g
	}

	clientOpts := []genaiopt.ClientOption{
		genaiopt.WithAPIKey(options.ApiKey),
	}
	if len(options.Endpoint) > 0 {
		clientOpts = append(clientOpts, genaiopt.WithEndpoint(options.Endpoint))
	}

	client, err := genai.NewClient(options.Context, clientOpts...)
	if err != nil {
		slog.ErrorContext(options.Context, "failed to initialize google generator", "error", err)
		g.err = err
		return g
	}

	g.client = client

	return g
}
