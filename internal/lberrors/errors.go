// Package lberrors defines the error kinds used across the load balancer.
package lberrors

import "errors"

// Fatal startup errors — the process logs these and exits non-zero.
var (
	ErrConfigLoad = errors.New("config load failed")
	ErrTLSLoad    = errors.New("tls load failed")
	ErrBind       = errors.New("listener bind failed")
)

// ErrNoHealthyBackend is returned by the dispatcher when the healthy set
// is empty at selection time. It never propagates past the request
// entry point, which turns it into a 503.
var ErrNoHealthyBackend = errors.New("no healthy backend available")

// ErrUpstreamTransport wraps a failed upstream send/receive (connection,
// DNS, TLS, timeout). The request entry point turns it into a 500.
var ErrUpstreamTransport = errors.New("upstream transport error")

// ErrUpstreamBodyRead marks a failure reading the upstream response body
// after headers were already delivered to the client. The entry point
// does not change the response status when this occurs — it just stops
// copying.
var ErrUpstreamBodyRead = errors.New("upstream body read error")
