// Package proxy is the request entry point: it glues the HTTP server into
// Dispatcher.Forward through the middleware chain (request ID, access
// logging, metrics). It holds no load-balancing state of its own.
package proxy

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kestrel-lb/kestrel/internal/dispatcher"
	"github.com/kestrel-lb/kestrel/internal/middleware"
)

// NewHandler builds the client-facing http.Handler for the proxy listener.
func NewHandler(d *dispatcher.Dispatcher, log *zap.SugaredLogger) http.Handler {
	core := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.Forward(w, r)
	})

	return middleware.Chain(core,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Metrics,
	)
}
