package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	errNoURLsProvided = "no ruleset URLs provided"
	errBadStatus      = "unexpected HTTP status %d"
	defaultTimeout    = 30 * time.Second
	userAgent         = "rootdomaind/1 (+https://publicsuffix.org/list/)"
)

// HTTPSource downloads the ruleset from one of several mirrors, tried in order.
type HTTPSource struct {
	urls    []string
	timeout time.Duration
	client  *http.Client
}

// HTTPOptions configures an HTTPSource.
type HTTPOptions struct {
	// required parameters
	URLs    []string
	Timeout time.Duration
	// injected for testing purposes
	Client *http.Client
}

// NewHTTPSource returns an HTTPSource. A zero timeout selects 30 seconds.
func NewHTTPSource(opts HTTPOptions) (*HTTPSource, error) {
	if len(opts.URLs) == 0 {
		return nil, errors.New(errNoURLsProvided)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	return &HTTPSource{urls: opts.URLs, timeout: opts.Timeout, client: opts.Client}, nil
}

// Fetch returns the body of the first mirror answering 200 OK. The timeout
// covers the whole download, so the caller should read the body promptly.
func (h *HTTPSource) Fetch(ctx context.Context) (io.ReadCloser, string, error) {
	var lastErr error
	for _, u := range h.urls {
		body, err := h.fetchOne(ctx, u)
		if err == nil {
			return body, u, nil
		}
		lastErr = fmt.Errorf(errSourceFailed, u, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, "", fmt.Errorf(errAllSourcesFail, len(h.urls), lastErr)
}

func (h *HTTPSource) fetchOne(ctx context.Context, url string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/plain")

	resp, err := h.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf(errBadStatus, resp.StatusCode)
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

// cancelOnClose releases the request context once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

var _ Source = (*HTTPSource)(nil)
