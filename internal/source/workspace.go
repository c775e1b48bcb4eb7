package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace owns per-deployment working directories under a common root.
type Workspace struct {
	root string
}

// NewWorkspace ensures the workspace root exists and is accessible.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Prepare creates an empty directory for the given deployment id, removing
// any leftovers from a previous run.
func (w *Workspace) Prepare(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("workspace id cannot be empty")
	}
	dir := filepath.Join(w.root, id)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clean workspace %s: %w", id, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace %s: %w", id, err)
	}
	return dir, nil
}

// Remove deletes the working directory for the given deployment id. Removal
// never reaches outside the workspace root.
func (w *Workspace) Remove(id string) error {
	if id == "" {
		return nil
	}
	dir := filepath.Join(w.root, id)
	rel, err := filepath.Rel(w.root, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove path outside workspace root")
	}
	return os.RemoveAll(dir)
}
