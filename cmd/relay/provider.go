package main

import (
	"fmt"

	"github.com/w-h-a/relay/generator"
	"github.com/w-h-a/relay/generator/anthropic"
	"github.com/w-h-a/relay/generator/bedrock"
	"github.com/w-h-a/relay/generator/gemini"
	"github.com/w-h-a/relay/generator/google"
	"github.com/w-h-a/relay/generator/openai"
)

func newGenerator(provider, apiKey, model, endpoint, region string) (generator.Generator, error) {
	opts := []generator.Option{
		generator.WithApiKey(apiKey),
		generator.WithModel(model),
		generator.WithEndpoint(endpoint),
	}

	switch provider {
	case "google":
		return google.NewGenerator(opts...), nil
	case "gemini":
		return gemini.NewGenerator(opts...), nil
	case "openai":
		return openai.NewGenerator(opts...), nil
	case "anthropic":
		return anthropic.NewGenerator(opts...), nil
	case "bedrock":
		opts = append(opts, bedrock.WithRegion(region))
		return bedrock.NewGenerator(opts...), nil
	}

	return nil, fmt.Errorf("unknown provider %q", provider)
}
