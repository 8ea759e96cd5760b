// Package bolt persists the last good ruleset text in a bbolt database.
package bolt

import (
	"encoding/binary"
	"errors"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rootdomain/internal/rootdomain/domain"
)

var (
	bucketSnapshot = []byte("snapshot")
	bucketMeta     = []byte("meta")

	keyText    = []byte("text")
	keyVersion = []byte("version")
	keyUpdated = []byte("updated")
	keySource  = []byte("source")
)

// ErrEmptySnapshot is returned when saving empty ruleset text.
var ErrEmptySnapshot = errors.New("snapshot text is empty")

// StoreStats describes the stored snapshot without reading its text.
type StoreStats struct {
	Version     uint64
	UpdatedUnix int64
	Source      string
	Bytes       int
}

// Store keeps one ruleset snapshot. Saving replaces the previous one and
// bumps the version.
type Store struct {
	db *bbolt.DB
}

type bucketCreator interface {
	CreateBucketIfNotExists(name []byte) (*bbolt.Bucket, error)
}

// seams for tests
var (
	ensureBucketsFn = ensureBuckets
	writeMetaFn     = writeMeta
)

func ensureBuckets(tx bucketCreator) error {
	for _, name := range [][]byte{bucketSnapshot, bucketMeta} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}
	return nil
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		return ensureBucketsFn(tx)
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save stores text as the current snapshot.
func (s *Store) Save(text, source string, updatedUnix int64) error {
	if text == "" {
		return ErrEmptySnapshot
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := ensureBucketsFn(tx); err != nil {
			return err
		}
		if err := tx.Bucket(bucketSnapshot).Put(keyText, []byte(text)); err != nil {
			return err
		}
		meta := tx.Bucket(bucketMeta)
		version := uint64(1)
		if v := meta.Get(keyVersion); len(v) == 8 {
			version = binary.BigEndian.Uint64(v) + 1
		}
		return writeMetaFn(meta, version, updatedUnix, source)
	})
}

func writeMeta(b *bbolt.Bucket, version uint64, updatedUnix int64, source string) error {
	vbuf := make([]byte, 8)
	ubuf := make([]byte, 8)
	binary.BigEndian.PutUint64(vbuf, version)
	binary.BigEndian.PutUint64(ubuf, uint64(updatedUnix))
	if err := b.Put(keyVersion, vbuf); err != nil {
		return err
	}
	if err := b.Put(keyUpdated, ubuf); err != nil {
		return err
	}
	return b.Put(keySource, []byte(source))
}

// Load returns the stored snapshot. ok is false when nothing was saved yet.
func (s *Store) Load() (domain.RulesetSnapshot, bool, error) {
	var (
		snap domain.RulesetSnapshot
		ok   bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSnapshot)
		if b == nil {
			return nil
		}
		text := b.Get(keyText)
		if len(text) == 0 {
			return nil
		}
		// bbolt values are only valid inside the transaction
		snap.Text = string(text)
		snap.Version, snap.UpdatedUnix, snap.Source = readMeta(tx.Bucket(bucketMeta))
		ok = true
		return nil
	})
	if err != nil {
		return domain.RulesetSnapshot{}, false, err
	}
	return snap, ok, nil
}

func readMeta(b *bbolt.Bucket) (version uint64, updatedUnix int64, source string) {
	if b == nil {
		return 0, 0, ""
	}
	if v := b.Get(keyVersion); len(v) == 8 {
		version = binary.BigEndian.Uint64(v)
	}
	if v := b.Get(keyUpdated); len(v) == 8 {
		updatedUnix = int64(binary.BigEndian.Uint64(v))
	}
	source = string(b.Get(keySource))
	return version, updatedUnix, source
}

func (s *Store) Stats() StoreStats {
	st := StoreStats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketSnapshot); b != nil {
			st.Bytes = len(b.Get(keyText))
		}
		st.Version, st.UpdatedUnix, st.Source = readMeta(tx.Bucket(bucketMeta))
		return nil
	})
	return st
}
