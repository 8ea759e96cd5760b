// Package source fetches Public Suffix List text from files, HTTP mirrors and
// the local snapshot store.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/haukened/rootdomain/internal/rootdomain/common/log"
)

// Error message constants for consistent error handling
const (
	errNoSources       = "no ruleset sources configured"
	errAllSourcesFail  = "all %d ruleset sources failed: %w"
	errSourceFailed    = "source %s: %w"
	errEmptyRulesetSrc = "source %s returned no data"
)

// Source supplies ruleset text. The returned name identifies where the text
// came from (a path or URL) and is used for logging and snapshots.
type Source interface {
	Fetch(ctx context.Context) (io.ReadCloser, string, error)
}

// Chain tries each source in order and returns the first that succeeds.
type Chain struct {
	sources []Source
	logger  log.Logger
}

// NewChain returns a Chain over sources. Nil entries are skipped.
func NewChain(logger log.Logger, sources ...Source) (*Chain, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	c := &Chain{logger: logger}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	if len(c.sources) == 0 {
		return nil, errors.New(errNoSources)
	}
	return c, nil
}

// Fetch returns the first successful source. When every source fails the
// error joins all of their failures.
func (c *Chain) Fetch(ctx context.Context) (io.ReadCloser, string, error) {
	var errs []error
	for i, s := range c.sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		rc, name, err := s.Fetch(ctx)
		if err == nil {
			if i > 0 {
				c.logger.Info(map[string]any{"source": name, "attempt": i + 1}, "Ruleset fetched from fallback source")
			}
			return rc, name, nil
		}
		c.logger.Warn(map[string]any{"attempt": i + 1, "error": err}, "Ruleset source failed")
		errs = append(errs, err)
	}
	return nil, "", fmt.Errorf(errAllSourcesFail, len(c.sources), errors.Join(errs...))
}

var _ Source = (*Chain)(nil)
