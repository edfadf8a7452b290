package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Validate rejects configurations the server cannot start against,
// mirroring the shape of the teacher's internal/config/validator.go.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return fmt.Errorf("project.root must not be empty")
	}
	if info, err := os.Stat(c.Project.Root); err != nil || !info.IsDir() {
		return fmt.Errorf("project.root %q is not a directory", c.Project.Root)
	}
	if c.Scheduler.ParallelThreshold < 0 {
		return fmt.Errorf("scheduler.parallel_threshold must be >= 0, got %d", c.Scheduler.ParallelThreshold)
	}
	if c.Scheduler.MaxWorkers < 0 {
		return fmt.Errorf("scheduler.max_workers must be >= 0, got %d", c.Scheduler.MaxWorkers)
	}
	if c.Server.SocketPath != "" {
		dir := filepath.Dir(c.Server.SocketPath)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("server.socket_path directory %q does not exist", dir)
		}
	}
	for _, pattern := range c.Exclude {
		if _, err := doublestar.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("exclude pattern %q is not a valid glob: %w", pattern, err)
		}
	}
	for _, pattern := range c.Include {
		if _, err := doublestar.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("include pattern %q is not a valid glob: %w", pattern, err)
		}
	}
	return nil
}

// ExcludeMatcher builds the include/exclude glob matcher used by the
// dispatcher and pipeline to drop configured paths from
// update_environment_with/check before they enter Stage 4 of the
// type-check pipeline (spec.md §4.4), adapted from the teacher's
// gitignore-style pattern matching in internal/config/gitignore.go.
type ExcludeMatcher struct {
	include []string
	exclude []string
}

// NewExcludeMatcher builds a matcher from the configured include/exclude
// glob lists.
func NewExcludeMatcher(cfg *Config) *ExcludeMatcher {
	return &ExcludeMatcher{include: cfg.Include, exclude: cfg.Exclude}
}

// Excluded reports whether relPath (root-relative, forward-slashed)
// should be dropped: it matches any exclude pattern, or include patterns
// are configured and it matches none of them.
func (m *ExcludeMatcher) Excluded(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range m.exclude {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	if len(m.include) == 0 {
		return false
	}
	for _, pattern := range m.include {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return false
		}
	}
	return true
}
