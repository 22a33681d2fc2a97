package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// workspace is a per-consultation scratch directory for intermediate audio.
// It is removed by Close whatever the outcome.
type workspace struct {
	dir string
}

func newWorkspace(parent, id string) (*workspace, error) {
	dir, err := os.MkdirTemp(parent, "consult-"+id+"-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) path(name string) string { return filepath.Join(w.dir, name) }

func (w *workspace) Close() error { return os.RemoveAll(w.dir) }
