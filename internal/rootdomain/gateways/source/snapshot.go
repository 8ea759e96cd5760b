package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/haukened/rootdomain/internal/rootdomain/common/clock"
	"github.com/haukened/rootdomain/internal/rootdomain/common/log"
	"github.com/haukened/rootdomain/internal/rootdomain/domain"
)

// snapshotPrefix marks names of text served from the snapshot store.
const snapshotPrefix = "snapshot:"

// SnapshotStore persists the last ruleset text that validated.
type SnapshotStore interface {
	Save(text, source string, updatedUnix int64) error
	Load() (domain.RulesetSnapshot, bool, error)
}

// SnapshotSource reads through to a live Source and remembers what it got.
// When the live source fails, the last saved snapshot is served instead.
type SnapshotSource struct {
	live     Source
	store    SnapshotStore
	validate func(text string) error
	clock    clock.Clock
	logger   log.Logger
}

// SnapshotOptions configures NewSnapshotSource. Live and Store are required.
type SnapshotOptions struct {
	Live  Source
	Store SnapshotStore
	// Validate rejects text that must not replace a good snapshot. Optional.
	Validate func(text string) error
	Clock    clock.Clock
	Logger   log.Logger
}

// NewSnapshotSource wraps opts.Live so every successful fetch is saved to
// opts.Store and the saved text is served when the live source fails. A nil
// Clock uses the wall clock and a nil Logger discards output.
func NewSnapshotSource(opts SnapshotOptions) (*SnapshotSource, error) {
	if opts.Live == nil || opts.Store == nil {
		return nil, errors.New("snapshot source needs a live source and a store")
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &SnapshotSource{
		live:     opts.Live,
		store:    opts.Store,
		validate: opts.Validate,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}, nil
}

func (s *SnapshotSource) Fetch(ctx context.Context) (io.ReadCloser, string, error) {
	text, name, liveErr := s.fetchLive(ctx)
	if liveErr == nil {
		if err := s.store.Save(text, name, s.clock.Now().Unix()); err != nil {
			s.logger.Warn(map[string]any{"source": name, "error": err}, "Failed to save ruleset snapshot")
		}
		return io.NopCloser(strings.NewReader(text)), name, nil
	}

	snap, ok, err := s.store.Load()
	if err != nil {
		return nil, "", fmt.Errorf("%w; reading snapshot: %v", liveErr, err)
	}
	if !ok {
		return nil, "", fmt.Errorf("%w; no snapshot saved", liveErr)
	}
	s.logger.Warn(map[string]any{
		"error":    liveErr,
		"source":   snap.Source,
		"version":  snap.Version,
		"saved_at": snap.Updated(),
		"age":      s.clock.Now().Sub(snap.Updated()).String(),
	}, "Serving ruleset from snapshot")
	return io.NopCloser(strings.NewReader(snap.Text)), snapshotPrefix + snap.Source, nil
}

func (s *SnapshotSource) fetchLive(ctx context.Context) (string, string, error) {
	rc, name, err := s.live.Fetch(ctx)
	if err != nil {
		return "", name, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return "", name, fmt.Errorf(errSourceFailed, name, err)
	}
	text := string(b)
	if strings.TrimSpace(text) == "" {
		return "", name, fmt.Errorf(errEmptyRulesetSrc, name)
	}
	if s.validate != nil {
		if err := s.validate(text); err != nil {
			return "", name, fmt.Errorf(errSourceFailed, name, err)
		}
	}
	return text, name, nil
}

var _ Source = (*SnapshotSource)(nil)
