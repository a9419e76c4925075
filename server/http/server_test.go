package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/relay/generator"
)

type fakeRelay struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeRelay) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerate(t *testing.T) {
	relay := &fakeRelay{text: "world"}
	s := NewServer(relay)

	rec := do(t, s.Handler(), http.MethodPost, "/api/v1/generate", `{"prompt":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var rsp generateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rsp))
	assert.Equal(t, "world", rsp.Text)
	assert.Equal(t, []string{"hello"}, relay.prompts)
}

func TestGenerateBadRequests(t *testing.T) {
	tests := map[string]string{
		"not json":     `prompt=hello`,
		"empty prompt": `{"prompt":"   "}`,
		"no prompt":    `{}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			relay := &fakeRelay{text: "world"}
			s := NewServer(relay)

			rec := do(t, s.Handler(), http.MethodPost, "/api/v1/generate", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, relay.prompts)
		})
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"authentication", generator.NewError(generator.Authentication, "fake", "credential rejected", nil), http.StatusBadGateway},
		{"malformed", generator.NewError(generator.MalformedResponse, "fake", "no candidates", nil), http.StatusBadGateway},
		{"unavailable", generator.NewError(generator.ServiceUnavailable, "fake", "server answered 503", nil), http.StatusServiceUnavailable},
		{"other", errors.New("prompt too long"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeRelay{err: tt.err})

			rec := do(t, s.Handler(), http.MethodPost, "/api/v1/generate", `{"prompt":"hello"}`)
			assert.Equal(t, tt.want, rec.Code)

			var rsp errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&rsp))
			assert.Equal(t, tt.err.Error(), rsp.Error)
		})
	}
}

func TestRequestIdIsEchoed(t *testing.T) {
	s := NewServer(&fakeRelay{text: "world"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer(&fakeRelay{text: "world"})

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/generate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(&fakeRelay{text: "world"}, WithRegistry(reg))

	do(t, s.Handler(), http.MethodPost, "/api/v1/generate", `{"prompt":"hello"}`)
	do(t, s.Handler(), http.MethodPost, "/api/v1/generate", `{"prompt":""}`)

	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.requests.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.requests.WithLabelValues("bad_request")))

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "relay_generate_requests_total")
}

func TestMiddlewareRunsInOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	s := NewServer(&fakeRelay{text: "world"}, WithMiddleware(mark("outer"), mark("inner")))
	do(t, s.Handler(), http.MethodGet, "/healthz", "")

	assert.Equal(t, []string{"outer", "inner"}, order)
}
