package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/haukened/rootdomain/internal/rootdomain/common/log"
)

const readHeaderTimeout = 10 * time.Second

// HTTPTransport implements ServerTransport over plain HTTP.
type HTTPTransport struct {
	addr   string
	logger log.Logger

	mu       sync.RWMutex
	running  bool
	server   *http.Server
	listener net.Listener
	done     chan error
}

// NewHTTPTransport creates a transport that will listen on addr.
func NewHTTPTransport(addr string, logger log.Logger) *HTTPTransport {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &HTTPTransport{
		addr:   addr,
		logger: logger,
	}
}

// Start binds the listener and serves handler in the background.
func (t *HTTPTransport) Start(ctx context.Context, handler http.Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("HTTP transport already running")
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", t.addr, err)
	}

	t.listener = ln
	t.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	t.done = make(chan error, 1)
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   ln.Addr().String(),
	}, "HTTP transport started")

	go t.serve(t.server, ln, t.done)
	return nil
}

func (t *HTTPTransport) serve(srv *http.Server, ln net.Listener, done chan<- error) {
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if err != nil {
		t.logger.Error(map[string]any{"error": err}, "HTTP transport stopped unexpectedly")
	}
	done <- err
	close(done)
}

// Done is closed when the serve loop exits, after delivering its error (nil
// after a clean Stop). It returns nil before Start.
func (t *HTTPTransport) Done() <-chan error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.done
}

// Stop gracefully shuts down the HTTP transport.
func (t *HTTPTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false

	err := t.server.Shutdown(ctx)
	if err != nil {
		_ = t.server.Close()
	}
	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   t.listener.Addr().String(),
	}, "HTTP transport stopped")
	return err
}

// Address returns the bound address once started, else the configured one.
func (t *HTTPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}

var _ ServerTransport = (*HTTPTransport)(nil)
