package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dtroode/console-auth/internal/model"
)

var _ model.StateStore = (*FileStore)(nil)

// FileStore keeps the serialized session state in a single local file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state path is empty")
	}
	return &FileStore{path: path}, nil
}

// Load returns the stored state. A missing file is the unauthenticated state.
// A blob that fails validation is returned as the error state along with ErrCorrupted.
func (s *FileStore) Load(_ context.Context) (model.AuthState[model.SessionToken], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Unauthenticated[model.SessionToken](), nil
	}
	if err != nil {
		return model.Unauthenticated[model.SessionToken](), fmt.Errorf("failed to read state file: %w", err)
	}

	return Decode(raw)
}

// Save replaces the stored state.
func (s *FileStore) Save(_ context.Context, state model.AuthState[model.SessionToken]) error {
	raw, err := Encode(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// Clear erases the stored state.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
