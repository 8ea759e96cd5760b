package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rootdomain/internal/rootdomain/common/clock"
	"github.com/haukened/rootdomain/internal/rootdomain/common/log"
	"github.com/haukened/rootdomain/internal/rootdomain/domain"
	"github.com/haukened/rootdomain/internal/rootdomain/repos/ruleset/bolt"
)

const listText = "// ===BEGIN ICANN DOMAINS===\ncom\nco.uk\n// ===END ICANN DOMAINS===\n"

type staticSource struct {
	text  string
	name  string
	err   error
	calls int
}

func (s *staticSource) Fetch(context.Context) (io.ReadCloser, string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.name, s.err
	}
	return io.NopCloser(strings.NewReader(s.text)), s.name, nil
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public_suffix_list.dat")
	require.NoError(t, os.WriteFile(path, []byte(listText), 0o600))

	rc, name, err := FileSource{Path: path}.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, name)
	assert.Equal(t, listText, readAll(t, rc))

	_, _, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.dat")}.Fetch(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = FileSource{}.Fetch(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = FileSource{Path: path}.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewHTTPSource(t *testing.T) {
	_, err := NewHTTPSource(HTTPOptions{})
	assert.EqualError(t, err, errNoURLsProvided)

	h, err := NewHTTPSource(HTTPOptions{URLs: []string{"http://example.invalid"}})
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, h.timeout)
	assert.NotNil(t, h.client)
}

func TestHTTPSource_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, listText)
	}))
	defer srv.Close()

	h, err := NewHTTPSource(HTTPOptions{URLs: []string{srv.URL}, Timeout: time.Second, Client: srv.Client()})
	require.NoError(t, err)

	rc, name, err := h.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.URL, name)
	assert.Equal(t, listText, readAll(t, rc))
	assert.Equal(t, userAgent, gotUA)
}

func TestHTTPSource_FallsBackToNextMirror(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, listText)
	}))
	defer good.Close()

	h, err := NewHTTPSource(HTTPOptions{URLs: []string{bad.URL, good.URL}})
	require.NoError(t, err)

	rc, name, err := h.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, good.URL, name)
	assert.Equal(t, listText, readAll(t, rc))
}

func TestHTTPSource_AllMirrorsFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	h, err := NewHTTPSource(HTTPOptions{URLs: []string{bad.URL, bad.URL + "/other"}})
	require.NoError(t, err)

	_, _, err = h.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 ruleset sources failed")
	assert.Contains(t, err.Error(), "unexpected HTTP status 404")
}

func TestHTTPSource_Timeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	h, err := NewHTTPSource(HTTPOptions{URLs: []string{slow.URL}, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, _, err = h.Fetch(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPSource_BadURL(t *testing.T) {
	h, err := NewHTTPSource(HTTPOptions{URLs: []string{"://bad"}})
	require.NoError(t, err)
	_, _, err = h.Fetch(context.Background())
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	_, err := NewChain(nil)
	assert.EqualError(t, err, errNoSources)

	_, err = NewChain(nil, nil, nil)
	assert.EqualError(t, err, errNoSources)

	failing := &staticSource{name: "a", err: errors.New("a down")}
	working := &staticSource{name: "b", text: listText}
	unused := &staticSource{name: "c", text: "org\n"}

	c, err := NewChain(log.NewNoopLogger(), failing, nil, working, unused)
	require.NoError(t, err)

	rc, name, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", name)
	assert.Equal(t, listText, readAll(t, rc))
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 0, unused.calls)
}

func TestChain_AllFail(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	c, err := NewChain(nil, &staticSource{err: errA}, &staticSource{err: errB})
	require.NoError(t, err)

	_, _, err = c.Fetch(context.Background())
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestChain_StopsOnCanceledContext(t *testing.T) {
	s := &staticSource{text: listText}
	c, err := NewChain(nil, s)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = c.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.calls)
}

type memStore struct {
	snap    domain.RulesetSnapshot
	ok      bool
	saveErr error
	loadErr error
	saves   int
}

func (m *memStore) Save(text, source string, updatedUnix int64) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snap = domain.RulesetSnapshot{Text: text, Source: source, Version: m.snap.Version + 1, UpdatedUnix: updatedUnix}
	m.ok = true
	return nil
}

func (m *memStore) Load() (domain.RulesetSnapshot, bool, error) {
	return m.snap, m.ok, m.loadErr
}

func TestNewSnapshotSource(t *testing.T) {
	_, err := NewSnapshotSource(SnapshotOptions{})
	assert.Error(t, err)
	_, err = NewSnapshotSource(SnapshotOptions{Live: &staticSource{}})
	assert.Error(t, err)

	s, err := NewSnapshotSource(SnapshotOptions{Live: &staticSource{}, Store: &memStore{}})
	require.NoError(t, err)
	assert.NotNil(t, s.clock)
	assert.NotNil(t, s.logger)
}

func TestSnapshotSource_SavesLiveText(t *testing.T) {
	clk := &clock.MockClock{CurrentTime: time.Unix(1_700_000_000, 0)}
	store := &memStore{}
	s, err := NewSnapshotSource(SnapshotOptions{
		Live:  &staticSource{name: "https://mirror", text: listText},
		Store: store,
		Clock: clk,
	})
	require.NoError(t, err)

	rc, name, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://mirror", name)
	assert.Equal(t, listText, readAll(t, rc))
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, int64(1_700_000_000), store.snap.UpdatedUnix)
	assert.Equal(t, "https://mirror", store.snap.Source)
}

func TestSnapshotSource_SaveFailureIsNotFatal(t *testing.T) {
	s, err := NewSnapshotSource(SnapshotOptions{
		Live:  &staticSource{name: "live", text: listText},
		Store: &memStore{saveErr: errors.New("disk full")},
	})
	require.NoError(t, err)

	rc, _, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, listText, readAll(t, rc))
}

func TestSnapshotSource_ServesSnapshotOnFailure(t *testing.T) {
	clk := &clock.MockClock{CurrentTime: time.Unix(1_700_000_000, 0)}
	store := &memStore{}
	live := &staticSource{name: "live", text: listText}
	s, err := NewSnapshotSource(SnapshotOptions{Live: live, Store: store, Clock: clk})
	require.NoError(t, err)

	_, _, err = s.Fetch(context.Background())
	require.NoError(t, err)

	live.err = errors.New("mirror down")
	clk.Advance(48 * time.Hour)
	rc, name, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snapshot:live", name)
	assert.Equal(t, listText, readAll(t, rc))
	assert.Equal(t, 1, store.saves)
}

func TestSnapshotSource_RejectsEmptyAndInvalidText(t *testing.T) {
	store := &memStore{snap: domain.RulesetSnapshot{Text: "org\n", Source: "old"}, ok: true}

	live := &staticSource{name: "live", text: "  \n"}
	s, err := NewSnapshotSource(SnapshotOptions{Live: live, Store: store})
	require.NoError(t, err)
	rc, name, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snapshot:old", name)
	assert.Equal(t, "org\n", readAll(t, rc))

	live.text = "garbage"
	s, err = NewSnapshotSource(SnapshotOptions{
		Live:     live,
		Store:    store,
		Validate: func(string) error { return domain.ErrRulesetLoad },
	})
	require.NoError(t, err)
	_, name, err = s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snapshot:old", name)
	assert.Equal(t, 0, store.saves)
}

func TestSnapshotSource_NoSnapshot(t *testing.T) {
	liveErr := errors.New("mirror down")
	s, err := NewSnapshotSource(SnapshotOptions{Live: &staticSource{err: liveErr}, Store: &memStore{}})
	require.NoError(t, err)
	_, _, err = s.Fetch(context.Background())
	assert.ErrorIs(t, err, liveErr)
	assert.Contains(t, err.Error(), "no snapshot saved")

	s, err = NewSnapshotSource(SnapshotOptions{Live: &staticSource{err: liveErr}, Store: &memStore{loadErr: errors.New("corrupt")}})
	require.NoError(t, err)
	_, _, err = s.Fetch(context.Background())
	assert.ErrorIs(t, err, liveErr)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestSnapshotSource_WithBoltStore(t *testing.T) {
	store, err := bolt.New(filepath.Join(t.TempDir(), "psl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	live := &staticSource{name: "https://mirror", text: listText}
	s, err := NewSnapshotSource(SnapshotOptions{Live: live, Store: store})
	require.NoError(t, err)

	_, _, err = s.Fetch(context.Background())
	require.NoError(t, err)

	live.err = errors.New("offline")
	rc, name, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snapshot:https://mirror", name)
	assert.Equal(t, listText, readAll(t, rc))
	assert.Equal(t, uint64(1), store.Stats().Version)
}
