// Package docstore is an embedded, in-process document store: typed collections
// with primary keys, auto-increment sequences and secondary indexes, optionally
// persisted to a single JSON data file owned by one process at a time.
package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

const snapshotVersion = 1

var (
	ErrLocked    = errors.New("docstore: data file is locked by another process")
	ErrClosed    = errors.New("docstore: store is not open")
	ErrReadOnly  = errors.New("docstore: write in read-only transaction")
	ErrNoTx      = errors.New("docstore: operation outside a transaction")
	ErrKeyExists = errors.New("docstore: key already exists")
	ErrNoIndex   = errors.New("docstore: no such index")
)

// collection is the untyped view the store keeps of each registered Collection
type collection interface {
	collectionName() string
	checkpoint() func()
	snapshot() (json.RawMessage, error)
	restore(data json.RawMessage) error
}

type snapshotFile struct {
	Version     int                        `json:"version"`
	Collections map[string]json.RawMessage `json:"collections"`
}

// Store groups collections and serializes access to them.
// Readers share the store; a writer holds it exclusively until its
// transaction commits or rolls back.
type Store struct {
	mu          sync.RWMutex
	path        string
	lock        *flock.Flock
	collections []collection
	open        bool
	closed      bool
}

// New creates a store. With an empty path the store lives in memory only.
// Collections must be registered before Open.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the data file path, empty for memory-only stores
func (s *Store) Path() string {
	return s.path
}

func (s *Store) register(c collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = append(s.collections, c)
}

// Open locks and loads the data file. Opening an open store is a no-op;
// a closed store cannot be reopened.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}
	if s.closed {
		return ErrClosed
	}

	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return err
		}
		lock := flock.New(s.path + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("lock %s: %w", s.path, err)
		}
		if !locked {
			return ErrLocked
		}
		if err := s.load(); err != nil {
			_ = lock.Unlock()
			return err
		}
		s.lock = lock
	}

	s.open = true
	return nil
}

// Close persists the store and releases the data file lock. It is safe to
// call on a store that was never opened, and more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		s.closed = true
		return nil
	}

	var err error
	if s.path != "" {
		err = s.persist()
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
		s.lock = nil
	}
	s.open = false
	s.closed = true
	return err
}

// View runs fn in a read-only transaction
func (s *Store) View(fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.open {
		return ErrClosed
	}
	return fn(&Tx{})
}

// Update runs fn in a read-write transaction. If fn fails, or the data file
// cannot be written afterwards, every collection is restored to its state
// before the transaction.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return ErrClosed
	}

	restores := make([]func(), 0, len(s.collections))
	for _, c := range s.collections {
		restores = append(restores, c.checkpoint())
	}
	rollback := func() {
		for _, restore := range restores {
			restore()
		}
	}

	if err := fn(&Tx{writable: true}); err != nil {
		rollback()
		return err
	}
	if s.path != "" {
		if err := s.persist(); err != nil {
			rollback()
			return err
		}
	}
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	if file.Version != snapshotVersion {
		return fmt.Errorf("decode %s: unsupported version %d", s.path, file.Version)
	}
	for _, c := range s.collections {
		raw, ok := file.Collections[c.collectionName()]
		if !ok {
			continue
		}
		if err := c.restore(raw); err != nil {
			return fmt.Errorf("decode %s collection %s: %w", s.path, c.collectionName(), err)
		}
	}
	return nil
}

// persist writes the snapshot to a temp file and renames it over the data file
func (s *Store) persist() error {
	file := snapshotFile{
		Version:     snapshotVersion,
		Collections: make(map[string]json.RawMessage, len(s.collections)),
	}
	for _, c := range s.collections {
		raw, err := c.snapshot()
		if err != nil {
			return err
		}
		file.Collections[c.collectionName()] = raw
	}

	data, err := json.Marshal(file)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Tx scopes collection access to a View or Update call
type Tx struct {
	writable bool
}

func (tx *Tx) check(write bool) error {
	if tx == nil {
		return ErrNoTx
	}
	if write && !tx.writable {
		return ErrReadOnly
	}
	return nil
}
