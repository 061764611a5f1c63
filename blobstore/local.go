package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore implements Store on the local filesystem. Names are slash
// separated paths relative to the root directory.
type LocalStore struct {
	root string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Exists implements Store.
func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Open implements Store.
func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Create implements Store. Data is staged in a temp file next to the target
// and renamed on Close, so partially written artifacts are never visible.
func (s *LocalStore) Create(_ context.Context, name string) (io.WriteCloser, error) {
	dst := s.path(name)
	if _, err := os.Stat(dst); err == nil {
		return nil, ErrAlreadyExists
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp*")
	if err != nil {
		return nil, err
	}
	return &localWriter{f: tmp, dst: dst}, nil
}

type localWriter struct {
	f   *os.File
	dst string
}

func (w *localWriter) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWriter) Close() error {
	if err := w.f.Sync(); err != nil {
		w.abort()
		return err
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.f.Name())
		return err
	}
	if _, err := os.Stat(w.dst); err == nil {
		_ = os.Remove(w.f.Name())
		return fmt.Errorf("%w: %s", ErrAlreadyExists, w.dst)
	}
	return os.Rename(w.f.Name(), w.dst)
}

func (w *localWriter) abort() {
	_ = w.f.Close()
	_ = os.Remove(w.f.Name())
}
