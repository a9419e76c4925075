package bedrock

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/w-h-a/relay/generator"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	name         = "bedrock"
	DefaultModel = "us.anthropic.claude-3-5-haiku-20241022-v1:0"
)

// Converser is the part of the Bedrock runtime client the generator uses.
type Converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type bedrockGenerator struct {
	options generator.Options
	client  Converser
	err     error
}

func (g *bedrockGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	if g.err != nil {
		return "", classify(g.err)
	}

	out, err := g.client.Converse(ctx, input(g.options.Model, req))
	if err != nil {
		return "", classify(err)
	}

	return text(out)
}

func input(model string, req generator.Request) *bedrockruntime.ConverseInput {
	messages := make([]types.Message, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := types.ConversationRoleUser
		if turn.Role == generator.RoleModel {
			role = types.ConversationRoleAssistant
		}
		messages = append(messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: turn.Text}},
		})
	}

	messages = append(messages, types.Message{
		Role:    types.ConversationRoleUser,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: req.Prompt}},
	})

	in := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: messages,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(req.Config.MaxOutputTokens),
			Temperature: aws.Float32(req.Config.Temperature),
			TopP:        aws.Float32(req.Config.TopP),
		},
	}

	// top_k is not part of the common inference config; Anthropic models take it as an extra field
	if isAnthropicModel(model) {
		in.AdditionalModelRequestFields = document.NewLazyDocument(map[string]any{
			"top_k": req.Config.TopK,
		})
	}

	return in
}

func isAnthropicModel(model string) bool {
	return strings.Contains(model, "anthropic.")
}

func text(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", generator.NewError(generator.MalformedResponse, name, "empty reply", nil)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", generator.NewError(generator.MalformedResponse, name, "reply carries no message", nil)
	}

	var b strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(t.Value)
		}
	}

	if b.Len() == 0 {
		return "", generator.NewError(generator.MalformedResponse, name, "reply has no text blocks", nil)
	}

	return b.String(), nil
}

func classify(err error) error {
	var accessDenied *types.AccessDeniedException
	var internal *types.InternalServerException
	var unavailable *types.ServiceUnavailableException
	var timeout *types.ModelTimeoutException
	var notReady *types.ModelNotReadyException
	var rspErr *awshttp.ResponseError

	switch {
	case errors.As(err, &accessDenied):
		return generator.NewError(generator.Authentication, name, "access denied", err)
	case errors.As(err, &internal), errors.As(err, &unavailable), errors.As(err, &timeout), errors.As(err, &notReady):
		return generator.NewError(generator.ServiceUnavailable, name, "model unavailable", err)
	case errors.As(err, &rspErr):
		return generator.FromStatus(name, rspErr.HTTPStatusCode(), err)
	case strings.Contains(err.Error(), "failed to retrieve credentials"):
		return generator.NewError(generator.Authentication, name, "missing AWS credentials", err)
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

	g := &bedrockGenerator{
		options: options,
	}

	if c, ok := ConverserFrom(options.Context); ok {
		g.client = c
		return g
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(options.HTTPClient),
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if region, ok := RegionFrom(options.Context); ok {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(options.Context, loadOpts...)
	if err != nil {
		slog.ErrorContext(options.Context, "failed to load aws config for bedrock generator", "error", err)
		g.err = err
		return g
	}

	g.client = bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if len(options.Endpoint) > 0 {
			o.BaseEndpoint = aws.String(options.Endpoint)
		}
	})

	return g
}
