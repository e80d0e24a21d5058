// Package store implements the durable key-value state backing the engine
// (C3): a single in-memory cache per JSON file, loaded once, rewritten in
// full on every mutation via a tmp-file-plus-rename so a crash never
// observes a half-written store. A file that fails to parse is moved aside
// to "<file>.bakN" (the smallest unused N) and the store resumes from its
// empty default — the same "in-memory cached store + atomic disk write"
// shape the source used, but with the crash-atomicity it lacked.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"

	"github.com/Deleranax/ccpm/pkg/event"
)

// File is a generically-typed, mutex-guarded, atomically-persisted JSON
// document. T is normally a map type (RepositoriesTable, PackagesIndex,
// PackagesDatabase); File itself stays agnostic to the schema.
type File[T any] struct {
	mu     sync.Mutex
	path   string
	empty  func() T
	cache  T
	logger *log.Logger
	events *event.Bus
}

// Open loads path into memory, backing up and resetting on corruption.
// A missing file is not corruption: the store simply starts empty.
func Open[T any](path string, empty func() T, logger *log.Logger, events *event.Bus) (*File[T], error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	f := &File[T]{path: path, empty: empty, logger: logger, events: events}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			f.cache = empty()
			return f, nil
		}
		return nil, fmt.Errorf("store: reading %s: %w", path, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		bak, backupErr := backup(path)
		if backupErr != nil {
			return nil, fmt.Errorf("store: backing up corrupt %s: %w", path, backupErr)
		}
		f.logger.Printf("store: %s was corrupt, moved to %s: %v", path, bak, err)
		if f.events != nil {
			f.events.Emit(event.Backup, path, bak, err)
		}
		f.cache = empty()
		return f, nil
	}

	f.cache = v
	return f, nil
}

// backup moves path to "<path>.bakN" for the smallest unused N and returns
// the destination.
func backup(path string) (string, error) {
	for n := 1; ; n++ {
		dst := fmt.Sprintf("%s.bak%d", path, n)
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			if err := os.Rename(path, dst); err != nil {
				return "", err
			}
			return dst, nil
		}
	}
}

// View runs fn with the current in-memory value; fn must not retain slices
// or maps reachable from v beyond its own call, since View does not copy.
// Callers that hand data to the outside world are expected to copy it
// first (see copyTable in repositories.go and copyDB in installed.go).
func (f *File[T]) View(fn func(v T)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.cache)
}

// Mutate runs fn against the current value, persists whatever fn returns,
// and only then updates the in-memory cache — so a failed write leaves the
// cache exactly as it was.
func (f *File[T]) Mutate(fn func(v T) (T, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := fn(f.cache)
	if err != nil {
		return err
	}
	if err := f.persist(next); err != nil {
		return err
	}
	f.cache = next
	return nil
}

// Set overwrites the whole document (used by whole-table set() operations
// in §4.3: packages-index.json and packages-database.json are replaced
// wholesale on every refresh/commit, never patched field by field).
func (f *File[T]) Set(next T) error {
	return f.Mutate(func(T) (T, error) { return next, nil })
}

func (f *File[T]) persist(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshaling %s: %w", f.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("store: creating directory for %s: %w", f.path, err)
	}
	if err := renameio.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("store: writing %s: %w", f.path, err)
	}
	return nil
}
