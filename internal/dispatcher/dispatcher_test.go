package dispatcher

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kestrel-lb/kestrel/internal/config"
)

func TestForwardNoHealthyBackendReturns503(t *testing.T) {
	bs := newHealthyBackends(1)
	bs[0].SetHealthy(false)
	d := New(bs, config.RoundRobin, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	d.Forward(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
	if bs[0].ActiveConnections() != 0 {
		t.Errorf("active_connections = %d, want 0 (never incremented)", bs[0].ActiveConnections())
	}
}

func TestForwardRelaysUpstreamResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Client"); got != "test" {
			t.Errorf("upstream saw X-Client=%q, want test", got)
		}
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		io.Copy(w, r.Body)
	}))
	defer upstream.Close()

	bs := []*Backend{NewBackend(upstream.URL, 1)}
	d := New(bs, config.RoundRobin, nil)

	r := httptest.NewRequest(http.MethodPost, "/echo?x=1", strings.NewReader("hello"))
	r.Header.Set("X-Client", "test")
	w := httptest.NewRecorder()

	d.Forward(w, r)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if got := w.Header().Get("X-Upstream"); got != "yes" {
		t.Errorf("X-Upstream header = %q, want yes", got)
	}
	if got := w.Body.String(); got != "hello" {
		t.Errorf("body = %q, want hello", got)
	}
	if bs[0].ActiveConnections() != 0 {
		t.Errorf("active_connections = %d after forward completes, want 0", bs[0].ActiveConnections())
	}
}

func TestForwardUpstreamTransportErrorReturns500(t *testing.T) {
	// A backend address nothing is listening on.
	bs := []*Backend{NewBackend("http://127.0.0.1:1", 1)}
	d := New(bs, config.RoundRobin, nil)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	d.Forward(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if bs[0].ActiveConnections() != 0 {
		t.Errorf("active_connections = %d, want 0 after failed forward", bs[0].ActiveConnections())
	}
}

func TestForwardActiveConnectionsReturnToZeroUnderConcurrency(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	bs := []*Backend{NewBackend(upstream.URL, 1)}
	d := New(bs, config.RoundRobin, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()
			d.Forward(w, r)
		}()
	}
	wg.Wait()

	if got := bs[0].ActiveConnections(); got != 0 {
		t.Errorf("active_connections = %d after all forwards completed, want 0", got)
	}
}
