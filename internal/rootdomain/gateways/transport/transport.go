// Package transport exposes root domain lookups over HTTP.
// It converts query parameters to calls on the service layer and renders the
// results as JSON, so the service layer never sees HTTP types.
package transport

import (
	"context"
	"net/http"

	"github.com/haukened/rootdomain/internal/rootdomain/domain"
)

// ServerTransport is implemented by servers that can be started with a
// handler and stopped gracefully.
type ServerTransport interface {
	// Start begins listening and serving handler. It returns once the
	// listener is bound.
	Start(ctx context.Context, handler http.Handler) error

	// Stop shuts the server down, waiting for in-flight requests until ctx expires.
	Stop(ctx context.Context) error

	// Address returns the network address the transport is bound to.
	Address() string
}

// RootDomainResolver is the service the HTTP handlers call for each lookup.
type RootDomainResolver interface {
	FromURL(raw string) (domain.Domain, error)
}
