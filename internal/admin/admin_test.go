package admin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kestrel-lb/kestrel/internal/config"
	"github.com/kestrel-lb/kestrel/internal/dispatcher"
)

func TestHealthzOK(t *testing.T) {
	mux := http.NewServeMux()
	bs := dispatcher.BuildBackends([]config.BackendConfig{{URL: "http://127.0.0.1:9001", Weight: 1}})
	Register(mux, dispatcher.New(bs, config.RoundRobin, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestBackendsSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	bs := dispatcher.BuildBackends([]config.BackendConfig{
		{URL: "http://127.0.0.1:9001", Weight: 2},
		{URL: "http://127.0.0.1:9002", Weight: 1},
	})
	Register(mux, dispatcher.New(bs, config.RoundRobin, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/backends", nil))

	body := w.Body.String()
	if !strings.Contains(body, "127.0.0.1:9001") || !strings.Contains(body, "127.0.0.1:9002") {
		t.Errorf("snapshot missing a backend: %s", body)
	}
	if !strings.Contains(body, `"latency_ms":null`) {
		t.Errorf("expected unmeasured latency to render as null: %s", body)
	}
}
