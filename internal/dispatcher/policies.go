package dispatcher

import (
	"net"
	"net/http"

	"github.com/cespare/xxhash/v2"
)

// healthySet returns the subsequence of the backend list whose IsHealthy
// is currently true, preserving configuration order. It is a lock-free
// snapshot read of atomics — no retry, no consistency guarantee across
// the whole slice.
func (d *Dispatcher) healthySet() []*Backend {
	out := make([]*Backend, 0, len(d.backends))
	for _, b := range d.backends {
		if b.IsHealthy() {
			out = append(out, b)
		}
	}
	return out
}

// selectRoundRobin atomically post-increments the shared counter and picks
// healthy[c mod len(healthy)]. Shared with the IPHashing fallback.
func (d *Dispatcher) selectRoundRobin(healthy []*Backend) *Backend {
	c := d.counter.Add(1) - 1
	return healthy[c%uint64(len(healthy))]
}

// selectLeastConnections returns the healthy backend with the smallest
// active-connection reading, ties breaking toward configuration order.
func (d *Dispatcher) selectLeastConnections(healthy []*Backend) *Backend {
	best := healthy[0]
	for _, b := range healthy[1:] {
		if b.ActiveConnections() < best.ActiveConnections() {
			best = b
		}
	}
	return best
}

// selectWeighted implements smooth weighted round-robin (nginx-style).
// The three-step update runs under the dispatcher-wide WRR mutex so the
// whole cycle is atomic with respect to other selections; the lock is
// released before selectWeighted returns, well before any forward I/O.
func (d *Dispatcher) selectWeighted(healthy []*Backend) *Backend {
	d.wrrMu.Lock()
	defer d.wrrMu.Unlock()

	total := 0
	best := healthy[0]
	for _, b := range healthy {
		b.currentWeight += b.Weight
		total += b.Weight
		if b.currentWeight > best.currentWeight {
			best = b
		}
	}
	best.currentWeight -= total
	return best
}

// selectIPHash hashes the client's peer IP (textual address only) with a
// fixed-seed 64-bit hash and picks healthy[hash mod len(healthy)]. If the
// peer IP can't be determined it falls back to round robin, sharing the
// same counter.
func (d *Dispatcher) selectIPHash(healthy []*Backend, r *http.Request) *Backend {
	ip, ok := peerIP(r)
	if !ok {
		return d.selectRoundRobin(healthy)
	}
	h := xxhash.Sum64String(ip)
	return healthy[h%uint64(len(healthy))]
}

// selectLeastLatency returns the healthy backend with the smallest recorded
// latency. Unmeasured backends carry the "unreachable" sentinel and are
// only chosen if every healthy backend is equally unmeasured.
func (d *Dispatcher) selectLeastLatency(healthy []*Backend) *Backend {
	best := healthy[0]
	bestLatency := best.Latency()
	for _, b := range healthy[1:] {
		if l := b.Latency(); l < bestLatency {
			best = b
			bestLatency = l
		}
	}
	return best
}

// peerIP extracts the textual peer address (never the port, never a
// forwarded header) from the request's remote address.
func peerIP(r *http.Request) (string, bool) {
	if r.RemoteAddr == "" {
		return "", false
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port (rare, but stdlib does not guarantee
		// the form) — treat the whole value as the host.
		if r.RemoteAddr != "" {
			return r.RemoteAddr, true
		}
		return "", false
	}
	if host == "" {
		return "", false
	}
	return host, true
}
