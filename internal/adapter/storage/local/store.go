// Package local stores clip audio on the local filesystem for development.
package local

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
)

// Store writes objects below Dir and serves them under BaseURL.
type Store struct {
	Dir     string
	BaseURL string
}

func NewStore(dir, baseURL string) *Store {
	if dir == "" {
		dir = "data/audio"
	}
	return &Store{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Store) path(key string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("%w: invalid object key %q", domain.ErrInvalidArgument, key)
	}
	return filepath.Join(s.Dir, filepath.FromSlash(key)), nil
}

// Put writes data to {dir}/{key}; an existing file is never replaced.
func (s *Store) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return fmt.Errorf("op=storage.put: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("op=storage.put: %w", err)
	}
	// #nosec G304 -- key is validated as a local path below Dir
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("op=storage.put: %w: object %s already exists", domain.ErrConflict, key)
		}
		return fmt.Errorf("op=storage.put: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return fmt.Errorf("op=storage.put: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("op=storage.put: %w", err)
	}
	return nil
}

// PublicURL returns BaseURL/key.
func (s *Store) PublicURL(key string) string {
	return s.BaseURL + "/" + strings.TrimLeft(key, "/")
}

// Remove deletes the object at key. Removing a missing object succeeds.
func (s *Store) Remove(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return fmt.Errorf("op=storage.remove: %w", err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("op=storage.remove: %w", err)
	}
	return nil
}

// Ready verifies that Dir exists and is writable.
func (s *Store) Ready(_ context.Context) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.Dir, ".ready-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Handler serves stored objects read-only. Directory listings are not served.
func (s *Store) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
