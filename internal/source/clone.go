// Package source materializes remote repositories into local working
// directories and enumerates their files for upload.
package source

import (
	"context"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
)

// Cloner fetches a remote source tree into dest.
type Cloner interface {
	Clone(ctx context.Context, url, dest string) error
}

// GitCloner clones over git with a bounded timeout. Only the tip of the
// default branch is fetched; build input never needs history.
type GitCloner struct {
	timeout time.Duration
}

func NewGitCloner(timeout time.Duration) *GitCloner {
	return &GitCloner{timeout: timeout}
}

func (c *GitCloner) Clone(ctx context.Context, url, dest string) error {
	if url == "" {
		return fmt.Errorf("repository URL cannot be empty")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}
