// Package config loads the load balancer's YAML configuration at startup.
// Configuration is read once; there is no file watcher and no runtime
// reconfiguration — the backend pool is static for the life of the process.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kestrel-lb/kestrel/internal/lberrors"
)

// Algorithm is the closed set of selection policies the dispatcher supports.
type Algorithm string

const (
	RoundRobin         Algorithm = "RoundRobin"
	LeastConnections   Algorithm = "LeastConnections"
	WeightedRoundRobin Algorithm = "WeightedRoundRobin"
	IPHashing          Algorithm = "IPHashing"
	LeastLatency       Algorithm = "LeastLatency"
)

func (a Algorithm) valid() bool {
	switch a {
	case RoundRobin, LeastConnections, WeightedRoundRobin, IPHashing, LeastLatency:
		return true
	}
	return false
}

// Config is the top-level shape of config.yaml.
type Config struct {
	Port        uint16             `yaml:"port"`
	HTTPSPort   uint16             `yaml:"https_port"`
	Debug       bool               `yaml:"debug"`
	Workers     int                `yaml:"workers"`
	Algorithm   Algorithm          `yaml:"algorithm"`
	HealthCheck *HealthCheckConfig `yaml:"healthcheck,omitempty"`
	Backends    []BackendConfig    `yaml:"backends"`
	SSL         *SSLConfig         `yaml:"ssl,omitempty"`

	// AdminAddr is an ambient addition beyond spec.md's schema: the
	// listen address for the read-only /metrics, /healthz, /backends
	// surface. It never affects dispatch.
	AdminAddr string `yaml:"admin_addr,omitempty"`
}

type HealthCheckConfig struct {
	IntervalSec uint64 `yaml:"interval_sec"`
	Route       string `yaml:"route"`
}

type BackendConfig struct {
	URL    string `yaml:"url"`
	Weight int    `yaml:"weight"`
}

type SSLConfig struct {
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`
}

const (
	defaultPort       = 9000
	defaultHTTPSPort  = 9001
	defaultWorkers    = 10
	defaultAlgorithm  = RoundRobin
	defaultHCInterval = 10
	defaultHCRoute    = "/"
	defaultBackendWgt = 1
	defaultAdminAddr  = ":9100"
)

// Load reads, parses, defaults and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", lberrors.ErrConfigLoad, path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", lberrors.ErrConfigLoad, path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", lberrors.ErrConfigLoad, err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.HTTPSPort == 0 {
		cfg.HTTPSPort = defaultHTTPSPort
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = defaultAlgorithm
	}
	if cfg.AdminAddr == "" {
		cfg.AdminAddr = defaultAdminAddr
	}
	if cfg.HealthCheck != nil {
		if cfg.HealthCheck.IntervalSec == 0 {
			cfg.HealthCheck.IntervalSec = defaultHCInterval
		}
		if cfg.HealthCheck.Route == "" {
			cfg.HealthCheck.Route = defaultHCRoute
		} else if !strings.HasPrefix(cfg.HealthCheck.Route, "/") {
			cfg.HealthCheck.Route = "/" + cfg.HealthCheck.Route
		}
	}
	for i := range cfg.Backends {
		if cfg.Backends[i].Weight == 0 {
			cfg.Backends[i].Weight = defaultBackendWgt
		}
	}
}

func validate(cfg *Config) error {
	if !cfg.Algorithm.valid() {
		return fmt.Errorf("unknown algorithm %q", cfg.Algorithm)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	for i, b := range cfg.Backends {
		if b.URL == "" {
			return fmt.Errorf("backends[%d]: url is required", i)
		}
		if b.Weight <= 0 {
			return fmt.Errorf("backends[%d]: weight must be positive, got %d", i, b.Weight)
		}
	}
	if cfg.SSL != nil {
		if cfg.SSL.CertPath == "" || cfg.SSL.KeyPath == "" {
			return fmt.Errorf("ssl: cert_path and key_path are both required")
		}
	}
	// An empty backend list is accepted at startup: every request yields
	// 503 until backends are configured and a restart picks them up.
	return nil
}
