package http

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/w-h-a/relay/server"
)

type middlewareKey struct{}
type registryKey struct{}

// WithMiddleware wraps the router, outermost first.
func WithMiddleware(ms ...func(h http.Handler) http.Handler) server.Option {
	return func(o *server.Options) {
		o.Context = context.WithValue(o.Context, middlewareKey{}, ms)
	}
}

func MiddlewareFrom(ctx context.Context) ([]func(h http.Handler) http.Handler, bool) {
	ms, ok := ctx.Value(middlewareKey{}).([]func(h http.Handler) http.Handler)
	return ms, ok
}

// WithRegistry sets where request metrics are registered and gathered from.
func WithRegistry(reg *prometheus.Registry) server.Option {
	return func(o *server.Options) {
		o.Context = context.WithValue(o.Context, registryKey{}, reg)
	}
}

func RegistryFrom(ctx context.Context) (*prometheus.Registry, bool) {
	reg, ok := ctx.Value(registryKey{}).(*prometheus.Registry)
	return reg, ok && reg != nil
}
