// Package jobdesc holds the process-wide job description shared by all
// evaluations.
package jobdesc

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"skrut/internal/errors"
)

// Store is a file-backed job description with a single writer and many
// readers. An empty path keeps the value in memory only.
type Store struct {
	mu      sync.RWMutex
	path    string
	content string
	logger  *errors.Logger
}

// NewStore creates a store and loads the file if it exists
func NewStore(path string, logger *errors.Logger) (*Store, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	s := &Store{path: path, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Get returns the current job description, empty when unset
func (s *Store) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

// Set replaces the job description and persists it. The file is written to
// a sibling temp file and renamed so readers never see a partial write.
func (s *Store) Set(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if err := writeAtomic(s.path, content); err != nil {
			return errors.NewIOError(errors.ErrCodeFileNotReadable,
				"failed to save job description", err).
				WithContext("path", s.path)
		}
	}

	s.content = content
	s.logger.Info("Job description updated", "path", s.path, "length", len(content))
	return nil
}

// Reload re-reads the backing file. A missing file clears the value.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}

	// read under the write lock so a concurrent Set cannot be overwritten
	// by older file contents
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			"failed to read job description", err).
			WithContext("path", s.path)
	}

	s.content = string(data)
	s.logger.Debug("Job description loaded", "path", s.path, "length", len(data))
	return nil
}

func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
