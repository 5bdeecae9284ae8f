package dispatcher

import "github.com/kestrel-lb/kestrel/internal/config"

// BuildBackends constructs the dispatcher's backend slice from config, in
// configuration order. Each Backend starts healthy with unmeasured latency.
func BuildBackends(cfgs []config.BackendConfig) []*Backend {
	backends := make([]*Backend, len(cfgs))
	for i, c := range cfgs {
		backends[i] = NewBackend(c.URL, c.Weight)
	}
	return backends
}
