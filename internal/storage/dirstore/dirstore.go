// Package dirstore persists JSON records one directory per entity, each with
// an atomically replaced meta.json.
package dirstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const metaFile = "meta.json"

// ErrNotFound is returned when an entity directory has no meta.json.
var ErrNotFound = errors.New("not found")

// Store keeps records of type T under baseDir/<id>/meta.json.
type Store[T any] struct {
	mu         sync.RWMutex
	baseDir    string
	entityName string // for error messages: "task"
}

// New creates a Store rooted at baseDir.
func New[T any](baseDir, entityName string) *Store[T] {
	return &Store[T]{baseDir: baseDir, entityName: entityName}
}

// Dir returns the directory path for a given entity ID.
func (s *Store[T]) Dir(id string) string {
	return filepath.Join(s.baseDir, id)
}

// Put creates or replaces the record for id.
func (s *Store[T]) Put(id string, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(id, v)
}

// Get reads the record for id.
func (s *Store[T]) Get(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

// Update applies fn to the stored record and writes the result back. The
// record is left untouched when fn returns an error.
func (s *Store[T]) Update(id string, fn func(*T) error) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.read(id)
	if err != nil {
		return v, err
	}
	if err := fn(&v); err != nil {
		var zero T
		return zero, err
	}
	if err := s.write(id, v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Delete removes the record and its directory.
func (s *Store[T]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Join(s.Dir(id), metaFile)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s %s: %w", s.entityName, id, ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w", s.entityName, err)
	}
	if err := os.RemoveAll(s.Dir(id)); err != nil {
		return fmt.Errorf("remove %s dir: %w", s.entityName, err)
	}
	return nil
}

// List returns every readable record. Directories with a missing or corrupt
// meta.json are skipped.
func (s *Store[T]) List() ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %ss dir: %w", s.entityName, err)
	}

	var out []T
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		v, err := s.read(entry.Name())
		if err != nil {
			slog.Warn("skip unreadable record", "entity", s.entityName, "id", entry.Name(), "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store[T]) read(id string) (T, error) {
	var v T
	data, err := os.ReadFile(filepath.Join(s.Dir(id), metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return v, fmt.Errorf("%s %s: %w", s.entityName, id, ErrNotFound)
		}
		return v, fmt.Errorf("read meta: %w", err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("unmarshal meta: %w", err)
	}
	return v, nil
}

// write atomically replaces meta.json using a temp file + rename.
func (s *Store[T]) write(id string, v T) error {
	if err := os.MkdirAll(s.Dir(id), 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", s.entityName, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	path := filepath.Join(s.Dir(id), metaFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write meta tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename meta: %w", err)
	}
	return nil
}
