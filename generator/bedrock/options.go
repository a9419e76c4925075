package bedrock

import (
	"context"

	"github.com/w-h-a/relay/generator"
)

type regionKey struct{}
type converserKey struct{}

func WithRegion(region string) generator.Option {
	return func(o *generator.Options) {
		o.Context = context.WithValue(o.Context, regionKey{}, region)
	}
}

func RegionFrom(ctx context.Context) (string, bool) {
	region, ok := ctx.Value(regionKey{}).(string)
	return region, ok && len(region) > 0
}

// WithConverser replaces the Bedrock runtime client, e.g. with a fake.
func WithConverser(c Converser) generator.Option {
	return func(o *generator.Options) {
		o.Context = context.WithValue(o.Context, converserKey{}, c)
	}
}

func ConverserFrom(ctx context.Context) (Converser, bool) {
	c, ok := ctx.Value(converserKey{}).(Converser)
	return c, ok
}
