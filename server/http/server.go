package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/w-h-a/relay/generator"
	"github.com/w-h-a/relay/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	requestIdHeader = "X-Request-Id"
	maxBodyBytes    = 1 << 20
)

// Relay is what the server needs from the relay.
type Relay interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Server struct {
	options server.Options
	relay   Relay
	metrics *metrics
	handler http.Handler
	srv     *http.Server
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	slog.InfoContext(s.options.Context, "relay server listening", "address", s.options.Address)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.options.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.observe("bad_request", start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if len(strings.TrimSpace(req.Prompt)) == 0 {
		s.observe("bad_request", start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "prompt is required"})
		return
	}

	text, err := s.relay.Generate(r.Context(), req.Prompt)
	if err != nil {
		status, outcome := classify(err)
		s.observe(outcome, start)
		slog.ErrorContext(r.Context(), "failed to generate", "error", err, "request_id", w.Header().Get(requestIdHeader))
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	s.observe("ok", start)
	writeJSON(w, http.StatusOK, generateResponse{Text: text})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) observe(outcome string, start time.Time) {
	s.metrics.requests.WithLabelValues(outcome).Inc()
	s.metrics.latency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, generator.ErrAuthentication):
		return http.StatusBadGateway, generator.Authentication.String()
	case errors.Is(err, generator.ErrMalformedResponse):
		return http.StatusBadGateway, generator.MalformedResponse.String()
	case errors.Is(err, generator.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, generator.ServiceUnavailable.String()
	}
	return http.StatusInternalServerError, "error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIdHeader)
		if len(id) == 0 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIdHeader, id)
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.InfoContext(
			r.Context(),
			"handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", w.Header().Get(requestIdHeader),
		)
	})
}

func NewServer(relay Relay, opts ...server.Option) *Server {
	if relay == nil {
		panic("relay is required")
	}

	options := server.NewOptions(opts...)

	reg, ok := RegistryFrom(options.Context)
	if !ok {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		options: options,
		relay:   relay,
		metrics: newMetrics(reg),
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/generate", s.generate).Methods(http.MethodPost)
	router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = logRequests(handler)
	handler = requestId(handler)

	if ms, ok := MiddlewareFrom(options.Context); ok {
		for i := len(ms) - 1; i >= 0; i-- {
			handler = ms[i](handler)
		}
	}

	s.handler = otelhttp.NewHandler(handler, "relay")

	s.srv = &http.Server{
		Addr:              options.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}
