package generator

const (
	DefaultTemperature     float32 = 1
	DefaultTopP            float32 = 0.95
	DefaultTopK            int32   = 40
	DefaultMaxOutputTokens int32   = 8192
)

const DefaultResponseMIMEType = "text/plain"

// Config holds the sampling and decoding parameters sent with a request.
type Config struct {
	Temperature      float32
	TopP             float32
	TopK             int32
	MaxOutputTokens  int32
	ResponseMIMEType string
}

// DefaultConfig returns a fresh copy of the fixed generation parameters.
func DefaultConfig() Config {
	return Config{
		Temperature:      DefaultTemperature,
		TopP:             DefaultTopP,
		TopK:             DefaultTopK,
		MaxOutputTokens:  DefaultMaxOutputTokens,
		ResponseMIMEType: DefaultResponseMIMEType,
	}
}
