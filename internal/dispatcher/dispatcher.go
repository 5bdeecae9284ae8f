package dispatcher

import (
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-lb/kestrel/internal/config"
	"github.com/kestrel-lb/kestrel/internal/lberrors"
)

// Dispatcher is the singleton that owns the backend pool, the policy
// choice, and the monotonic counter shared by RoundRobin and the
// IPHashing fallback. It lives for the process lifetime.
type Dispatcher struct {
	// backends is an immutable, ordered sequence of backend references,
	// fixed at construction — no dynamic membership changes at runtime.
	backends []*Backend
	policy   config.Algorithm

	counter atomic.Uint64

	// wrrMu guards the three-step weighted-round-robin update across all
	// participating backends. It is the one core-held lock that spans
	// more than a single atomic op, and it is released before any I/O.
	wrrMu sync.Mutex

	client *http.Client
	log    *zap.SugaredLogger
}

// New builds a Dispatcher over backends using the given policy.
func New(backends []*Backend, policy config.Algorithm, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		backends: backends,
		policy:   policy,
		log:      log,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				MaxIdleConns:          200,
				MaxIdleConnsPerHost:   20,
				IdleConnTimeout:       90 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
			// No overall client timeout: long-lived upstream responses
			// (streaming bodies) must not be cut off mid-forward.
		},
	}
}

// Backends returns the dispatcher's immutable backend sequence, in
// configuration order. Callers must not mutate the returned slice.
func (d *Dispatcher) Backends() []*Backend { return d.backends }

// Select picks one healthy backend for r according to the configured
// policy. Only IPHashing reads r (the peer IP).
func (d *Dispatcher) Select(r *http.Request) (*Backend, error) {
	healthy := d.healthySet()
	if len(healthy) == 0 {
		return nil, lberrors.ErrNoHealthyBackend
	}

	switch d.policy {
	case config.LeastConnections:
		return d.selectLeastConnections(healthy), nil
	case config.WeightedRoundRobin:
		return d.selectWeighted(healthy), nil
	case config.IPHashing:
		return d.selectIPHash(healthy, r), nil
	case config.LeastLatency:
		return d.selectLeastLatency(healthy), nil
	default: // RoundRobin
		return d.selectRoundRobin(healthy), nil
	}
}

// Forward implements the full request/response contract of spec.md §4.7:
// select a backend, forward method+path+query+headers+body, relay the
// upstream response verbatim, and guarantee the active-connection counter
// returns to its pre-call value on every exit path.
func (d *Dispatcher) Forward(w http.ResponseWriter, r *http.Request) {
	backend, err := d.Select(r)
	if err != nil {
		if d.log != nil {
			d.log.Errorw("no healthy backend", "err", err)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	backend.incConnections()
	defer backend.decConnections()

	upstreamReq, err := d.buildUpstreamRequest(r, backend)
	if err != nil {
		if d.log != nil {
			d.log.Errorw("failed to build upstream request", "backend", backend.Address, "err", err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	resp, err := d.client.Do(upstreamReq)
	if err != nil {
		if d.log != nil {
			d.log.Errorw("upstream transport error", "backend", backend.Address, "err", err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers and status are already committed; deliver what was
		// read and stop — do not synthesize a new status.
		if d.log != nil {
			d.log.Errorw("upstream body read error", "backend", backend.Address, "err", errors.Join(lberrors.ErrUpstreamBodyRead, err))
		}
	}
}

func (d *Dispatcher) buildUpstreamRequest(r *http.Request, backend *Backend) (*http.Request, error) {
	target := backend.Address + r.URL.RequestURI()

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	req.ContentLength = r.ContentLength
	return req, nil
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
