package dispatcher

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-lb/kestrel/internal/config"
)

const (
	latencyProbeTimeout = 2 * time.Second
	latencyCycleSleep   = 10 * time.Second
)

// LatencySupervisor periodically measures each backend's round-trip time
// and stores it so LeastLatency can pick the fastest healthy backend. It
// only runs when the configured policy is LeastLatency. Probes within a
// cycle are strictly sequential — this bounds supervisor concurrency to 1
// regardless of pool size, per spec.
type LatencySupervisor struct {
	backends []*Backend
	client   *http.Client
	log      *zap.SugaredLogger

	cancel context.CancelFunc
	done   chan struct{}
}

// StartLatencySupervisor launches the latency loop in the background, or
// returns nil if policy is not LeastLatency.
func StartLatencySupervisor(backends []*Backend, policy config.Algorithm, log *zap.SugaredLogger) *LatencySupervisor {
	if policy != config.LeastLatency {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &LatencySupervisor{
		backends: backends,
		client:   &http.Client{Timeout: latencyProbeTimeout},
		log:      log,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Stop cancels the background loop and waits for it to exit.
func (s *LatencySupervisor) Stop() {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *LatencySupervisor) run(ctx context.Context) {
	defer close(s.done)

	for {
		for _, b := range s.backends {
			if ctx.Err() != nil {
				return
			}
			s.probeOne(ctx, b)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(latencyCycleSleep):
		}
	}
}

func (s *LatencySupervisor) probeOne(ctx context.Context, b *Backend) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.Address, nil)
	if err != nil {
		b.SetUnreachable()
		return
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		if s.log != nil {
			s.log.Warnw("latency probe failed", "backend", b.Address, "err", err)
		}
		b.SetUnreachable()
		return
	}
	elapsed := time.Since(start)
	resp.Body.Close()
	b.SetLatency(elapsed)
}
