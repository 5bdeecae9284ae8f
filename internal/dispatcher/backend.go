// Package dispatcher owns the live backend pool and the five selection
// policies, and forwards client requests to the backend each policy picks.
package dispatcher

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// UnmeasuredLatency is the sentinel value for a backend whose latency has
// never been successfully probed ("unreachable" per spec).
const UnmeasuredLatency = time.Duration(math.MaxInt64)

const unmeasuredLatency = UnmeasuredLatency

// Backend is one configured upstream. One Backend is created per entry in
// the config's backend list at startup and lives for the process lifetime;
// it is shared by reference between the dispatcher and both supervisors.
type Backend struct {
	// Address is the absolute URL prefix (scheme://host[:port]). Immutable.
	Address string

	// Weight is a positive integer, default 1. Immutable.
	Weight int

	activeConnections atomic.Int64
	healthy           atomic.Bool

	// currentWeight is mutated only by the weighted round-robin selector,
	// always under the dispatcher's wrrMu.
	currentWeight int

	latencyMu sync.Mutex
	latency   time.Duration
}

// NewBackend constructs a Backend, healthy by default with unmeasured latency.
func NewBackend(address string, weight int) *Backend {
	b := &Backend{Address: address, Weight: weight, latency: unmeasuredLatency}
	b.healthy.Store(true)
	return b
}

// ActiveConnections returns the current in-flight request count.
func (b *Backend) ActiveConnections() int64 { return b.activeConnections.Load() }

func (b *Backend) incConnections() { b.activeConnections.Add(1) }
func (b *Backend) decConnections() { b.activeConnections.Add(-1) }

// IsHealthy reports the last health-probe outcome (true until the first
// probe runs, if a health supervisor is configured at all).
func (b *Backend) IsHealthy() bool { return b.healthy.Load() }

// SetHealthy is called only by the health supervisor.
func (b *Backend) SetHealthy(v bool) { b.healthy.Store(v) }

// Latency returns the last successfully measured round-trip probe duration,
// or the "unreachable" sentinel if none has ever succeeded.
func (b *Backend) Latency() time.Duration {
	b.latencyMu.Lock()
	defer b.latencyMu.Unlock()
	return b.latency
}

// SetLatency is called only by the latency supervisor.
func (b *Backend) SetLatency(d time.Duration) {
	b.latencyMu.Lock()
	b.latency = d
	b.latencyMu.Unlock()
}

// SetUnreachable records the "unreachable" sentinel for a failed latency probe.
func (b *Backend) SetUnreachable() { b.SetLatency(unmeasuredLatency) }
