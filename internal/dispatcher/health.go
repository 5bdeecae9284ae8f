package dispatcher

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-lb/kestrel/internal/config"
)

// HealthSupervisor periodically probes every backend's health route and
// flips its is_healthy flag. It is optional — it only runs when the
// config supplies a healthcheck block; without it every backend stays
// permanently healthy.
type HealthSupervisor struct {
	backends []*Backend
	interval time.Duration
	route    string
	client   *http.Client
	log      *zap.SugaredLogger

	cancel context.CancelFunc
	done   chan struct{}
}

// StartHealthSupervisor launches the health loop in the background and
// returns the running supervisor, or nil if cfg is nil.
func StartHealthSupervisor(backends []*Backend, cfg *config.HealthCheckConfig, log *zap.SugaredLogger) *HealthSupervisor {
	if cfg == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &HealthSupervisor{
		backends: backends,
		interval: time.Duration(cfg.IntervalSec) * time.Second,
		route:    cfg.Route,
		client: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log:    log,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Stop cancels the background loop and waits for it to exit.
func (s *HealthSupervisor) Stop() {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *HealthSupervisor) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.probeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probeAll(ctx)
		}
	}
}

// probeAll issues one health probe per backend, in configuration order.
// The probes themselves are fanned out concurrently since a single slow
// or hung backend must not delay the rest of the cycle; the health
// supervisor carries no ordering guarantee beyond which backend each
// outcome applies to.
func (s *HealthSupervisor) probeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, b := range s.backends {
		wg.Add(1)
		go func(b *Backend) {
			defer wg.Done()
			s.probeOne(ctx, b)
		}(b)
	}
	wg.Wait()
}

func (s *HealthSupervisor) probeOne(ctx context.Context, b *Backend) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.Address+s.route, nil)
	if err != nil {
		b.SetHealthy(false)
		return
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if s.log != nil && b.IsHealthy() {
			s.log.Warnw("backend failed health probe", "backend", b.Address, "err", err)
		}
		b.SetHealthy(false)
		return
	}
	defer resp.Body.Close()

	alive := resp.StatusCode >= 200 && resp.StatusCode < 300
	if s.log != nil && alive != b.IsHealthy() {
		s.log.Infow("backend health transition", "backend", b.Address, "healthy", alive, "status", resp.StatusCode)
	}
	b.SetHealthy(alive)
}
