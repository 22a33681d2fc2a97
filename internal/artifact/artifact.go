// Package artifact keeps the audio files produced for each consultation so
// transports can serve them after the pipeline returns. Every consultation
// owns one directory named by its request ID; directories older than the
// TTL are swept.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown IDs or files.
var ErrNotFound = errors.New("artifact not found")

// Store is a directory of per-consultation artifact directories.
type Store struct {
	root string
	ttl  time.Duration
}

// New creates the store root if needed.
func New(root string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving artifact dir: %w", err)
	}
	return &Store{root: abs, ttl: ttl}, nil
}

// Reserve creates the directory for id and returns its path.
func (s *Store) Reserve(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid artifact id %q: %w", id, err)
	}
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("reserving artifact dir: %w", err)
	}
	return dir, nil
}

// Path resolves an existing artifact file. Names must be plain file names.
func (s *Store) Path(id, name string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrNotFound
	}
	p := filepath.Join(s.root, id, name)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return p, nil
}

// Discard removes everything stored for id.
func (s *Store) Discard(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid artifact id %q: %w", id, err)
	}
	return os.RemoveAll(filepath.Join(s.root, id))
}

// Sweep removes consultation directories last modified before now-ttl and
// returns how many were removed.
func (s *Store) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("listing artifacts: %w", err)
	}

	cutoff := now.Add(-s.ttl)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			slog.Warn("failed to remove expired artifacts", "id", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.Sweep(now)
			if err != nil {
				slog.Error("artifact sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("swept expired artifacts", "count", n)
			}
		}
	}
}
