package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultPrefix = "ytdlp_"
	batchInfix    = "batch_"
	taskPrefix    = "task_"
)

// Manager hands out batch roots under baseDir. Every directory it creates starts with
// prefix so leftovers from a crashed run can be swept later.
type Manager struct {
	baseDir string
	prefix  string
}

func New(baseDir, prefix string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Manager{baseDir: baseDir, prefix: prefix}
}

func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Allocate creates a fresh, uniquely named batch root.
func (m *Manager) Allocate() (string, error) {
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace base: %w", err)
	}
	root, err := os.MkdirTemp(m.baseDir, m.prefix+batchInfix)
	if err != nil {
		return "", fmt.Errorf("allocate workspace: %w", err)
	}
	return root, nil
}

// TaskDir creates the subdirectory owned by the item at index.
func TaskDir(root string, index int) (string, error) {
	dir := filepath.Join(root, fmt.Sprintf("%s%d", taskPrefix, index))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create task dir: %w", err)
	}
	return dir, nil
}

// Cleanup recursively removes root. A root that no longer exists is already clean.
// It must only be called once every worker of the batch has returned.
func Cleanup(root string) (bool, error) {
	if root == "" {
		return true, nil
	}
	if _, err := os.Lstat(root); errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err := os.RemoveAll(root); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			err = fmt.Errorf("permission error while cleaning up %s, some files may remain: %w", root, err)
		} else {
			err = fmt.Errorf("failed to clean up %s: %w", root, err)
		}
		slog.Warn("Workspace cleanup failed", "root", root, "error", err)
		return false, err
	}
	slog.Debug("Workspace removed", "root", root)
	return true, nil
}

// SweepStale removes every prefixed directory directly under the base dir, ignoring
// errors. It returns how many entries were removed.
func (m *Manager) SweepStale() int {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), m.prefix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.baseDir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		slog.Info("Swept stale workspaces", "count", removed, "base", m.baseDir)
	}
	return removed
}

// Owns reports whether path lies inside a workspace created by m.
func (m *Manager) Owns(path string) bool {
	rel, err := filepath.Rel(m.baseDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return strings.HasPrefix(rel, m.prefix)
}
