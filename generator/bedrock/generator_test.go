package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/relay/generator"
)

type mockConverser struct {
	output *bedrockruntime.ConverseOutput
	err    error
	inputs []*bedrockruntime.ConverseInput
}

func (m *mockConverser) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
			},
		},
		StopReason: types.StopReasonEndTurn,
	}
}

func TestGenerate(t *testing.T) {
	m := &mockConverser{output: textOutput("world")}
	g := NewGenerator(WithConverser(m))

	got, err := g.Generate(context.Background(), generator.Request{Prompt: "hello", Config: generator.DefaultConfig()})
	require.NoError(t, err)
	assert.Equal(t, "world", got)

	require.Len(t, m.inputs, 1)
	in := m.inputs[0]
	assert.Equal(t, DefaultModel, aws.ToString(in.ModelId))
	require.Len(t, in.Messages, 1)
	assert.Equal(t, types.ConversationRoleUser, in.Messages[0].Role)

	require.NotNil(t, in.InferenceConfig)
	assert.Equal(t, int32(8192), aws.ToInt32(in.InferenceConfig.MaxTokens))
	assert.Equal(t, float32(1), aws.ToFloat32(in.InferenceConfig.Temperature))
	assert.Equal(t, float32(0.95), aws.ToFloat32(in.InferenceConfig.TopP))
	assert.NotNil(t, in.AdditionalModelRequestFields)
}

func TestDefaultModelAcceptsMaxOutputTokens(t *testing.T) {
	assert.Equal(t, "us.anthropic.claude-3-5-haiku-20241022-v1:0", DefaultModel)

	in := input(DefaultModel, generator.Request{Prompt: "hello", Config: generator.DefaultConfig()})

	require.NotNil(t, in.InferenceConfig)
	assert.Equal(t, int32(8192), aws.ToInt32(in.InferenceConfig.MaxTokens))
	assert.NotNil(t, in.AdditionalModelRequestFields)
}

func TestInputSkipsTopKForOtherModels(t *testing.T) {
	in := input("amazon.titan-text-express-v1", generator.Request{Prompt: "hello", Config: generator.DefaultConfig()})
	assert.Nil(t, in.AdditionalModelRequestFields)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"access denied", &types.AccessDeniedException{Message: aws.String("denied")}, generator.ErrAuthentication},
		{"internal", &types.InternalServerException{Message: aws.String("boom")}, generator.ErrServiceUnavailable},
		{"unavailable", &types.ServiceUnavailableException{Message: aws.String("down")}, generator.ErrServiceUnavailable},
		{"timeout", &types.ModelTimeoutException{Message: aws.String("slow")}, generator.ErrServiceUnavailable},
		{"credentials", errors.New("failed to retrieve credentials: no providers"), generator.ErrAuthentication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockConverser{err: tt.err}
			g := NewGenerator(WithConverser(m))

			_, err := g.Generate(context.Background(), generator.Request{Prompt: "hello", Config: generator.DefaultConfig()})
			assert.ErrorIs(t, err, tt.want)
			assert.Len(t, m.inputs, 1)
		})
	}
}

func TestGenerateMalformed(t *testing.T) {
	tests := map[string]*bedrockruntime.ConverseOutput{
		"nil output": nil,
		"no message": {},
		"no text":    textOutput(""),
	}

	for name, out := range tests {
		t.Run(name, func(t *testing.T) {
			g := NewGenerator(WithConverser(&mockConverser{output: out}))

			_, err := g.Generate(context.Background(), generator.Request{Prompt: "hello", Config: generator.DefaultConfig()})
			assert.ErrorIs(t, err, generator.ErrMalformedResponse)
		})
	}
}

func TestRegionFrom(t *testing.T) {
	options := generator.NewOptions(WithRegion("us-east-1"))

	region, ok := RegionFrom(options.Context)
	assert.True(t, ok)
	assert.Equal(t, "us-east-1", region)

	_, ok = RegionFrom(context.Background())
	assert.False(t, ok)
}
