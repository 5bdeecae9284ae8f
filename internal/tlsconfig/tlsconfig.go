// Package tlsconfig loads the PEM certificate chain and PKCS#8 private key
// used by the HTTPS listener. Certificate management itself (rotation,
// ACME, etc.) is out of scope — this is a one-shot load at startup.
package tlsconfig

import (
	"crypto/tls"
	"fmt"

	"github.com/kestrel-lb/kestrel/internal/config"
	"github.com/kestrel-lb/kestrel/internal/lberrors"
)

// Load builds a *tls.Config from the cert/key pair named in cfg.
func Load(cfg *config.SSLConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lberrors.ErrTLSLoad, err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
