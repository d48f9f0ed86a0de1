// Package uploads sweeps stale temporary files left behind by aborted
// import and export requests.
package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evalforge/assessment-platform/internal/utils"
)

// Cleaner periodically removes import-*/export-* workbooks from the
// temp directory once they outlive maxAge. The handlers remove their own
// files on the happy path; the cleaner covers crashes and dropped
// connections.
type Cleaner struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
	logger   utils.Logger

	stop chan struct{}
	done chan struct{}
}

func NewCleaner(dir string, interval, maxAge time.Duration, logger utils.Logger) *Cleaner {
	return &Cleaner{
		dir:      dir,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep loop. Call Stop to terminate it.
func (c *Cleaner) Start() {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (c *Cleaner) Stop() {
	close(c.stop)
	<-c.done
}

func (c *Cleaner) sweep() {
	cutoff := time.Now().Add(-c.maxAge)
	removed := 0

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Warn("upload sweep: cannot read temp dir", "dir", c.dir, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !managedFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			c.logger.Warn("upload sweep: remove failed", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		c.logger.Info("upload sweep finished", "removed", removed, "dir", c.dir)
	}
}

// managedFile reports whether the cleaner owns this file. Only workbooks
// created by the import/export handlers are touched; the temp dir may be
// shared with other processes.
func managedFile(name string) bool {
	if !strings.HasSuffix(name, ".xlsx") {
		return false
	}
	return strings.HasPrefix(name, "import-") || strings.HasPrefix(name, "export-")
}
