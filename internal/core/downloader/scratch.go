package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Scratch is the process-wide root under which every request gets its own
// workspace directory, so concurrent requests never share a filename.
type Scratch struct {
	root string
}

// NewScratch creates the scratch root if needed
func NewScratch(root string) (*Scratch, error) {
	if root == "" {
		return nil, fmt.Errorf("scratch root is empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch root: %w", err)
	}
	return &Scratch{root: root}, nil
}

// Root returns the scratch root directory
func (s *Scratch) Root() string {
	return s.root
}

// Workspace returns the directory for request id, creating it if needed.
// Calling it twice with the same id yields the same directory.
func (s *Scratch) Workspace(id string) (*Workspace, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, fmt.Errorf("invalid workspace id %q", id)
	}
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// Sweep removes workspaces older than maxAge, left behind by a crash.
func (s *Scratch) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Workspace is one request's private directory
type Workspace struct {
	Dir string
}

// Path joins name onto the workspace directory
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Cleanup removes the workspace and everything in it
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.Dir)
}
