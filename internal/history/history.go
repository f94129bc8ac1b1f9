package history

import (
	"cmp"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	ioutils "github.com/handiism/moviedata/internal/io"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

var recentBucket = []byte("recent")

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("history: store is closed")

// Entry describes one collection file that was opened or saved.
type Entry struct {
	Path   string    `msgpack:"path"`
	Format string    `msgpack:"format"`
	Count  int       `msgpack:"count"`
	At     time.Time `msgpack:"at"`
}

// Store is the most-recently-used list of collection files, kept in a bbolt
// database keyed by absolute path. Touch, Recent and Remove may be called
// from several goroutines; Close must not race with them.
type Store struct {
	db  *bbolt.DB
	max int
}

// Open opens or creates the history database at path, keeping at most maxEntries
// entries.
func Open(path string, maxEntries int) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: db path is empty")
	}
	if maxEntries < 1 {
		return nil, fmt.Errorf("history: max entries must be at least 1, got %d", maxEntries)
	}
	if err := ioutils.EnsureParent(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recentBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: %w", err)
	}
	return &Store{db: db, max: maxEntries}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Touch records that path was used at the given time, then drops the oldest
// entries beyond the limit.
func (s *Store) Touch(path, format string, count int, at time.Time) error {
	if s.db == nil {
		return ErrClosed
	}
	key, err := keyFor(path)
	if err != nil {
		return err
	}
	value, err := msgpack.Marshal(&Entry{Path: key, Format: format, Count: count, At: at})
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(recentBucket)
		if err := b.Put([]byte(key), value); err != nil {
			return err
		}
		entries, err := readAll(b)
		if err != nil {
			return err
		}
		for _, e := range entries[min(len(entries), s.max):] {
			if err := b.Delete([]byte(e.Path)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Recent returns the entries, most recently used first.
func (s *Store) Recent() ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		entries, err = readAll(tx.Bucket(recentBucket))
		return err
	})
	return entries, err
}

// Remove forgets path. Removing an unknown path is not an error.
func (s *Store) Remove(path string) error {
	if s.db == nil {
		return ErrClosed
	}
	key, err := keyFor(path)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(recentBucket).Delete([]byte(key))
	})
}

func keyFor(path string) (string, error) {
	if path == "" {
		return "", errors.New("history: empty path")
	}
	return filepath.Abs(path)
}

// readAll decodes every entry in b, newest first.
func readAll(b *bbolt.Bucket) ([]Entry, error) {
	var entries []Entry
	err := b.ForEach(func(k, v []byte) error {
		var e Entry
		if err := msgpack.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("history: entry %q: %w", k, err)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := b.At.Compare(a.At); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	return entries, nil
}
