package rules

import (
	"context"
	"os"
	"time"
)

// FileWatcher polls a rule file and calls onChange when its modification
// time or size differs from the last scan. An older mtime counts as a change.
type FileWatcher struct {
	Path     string
	Interval time.Duration
	onChange func(string)
	lastMod  time.Time
	lastSize int64
}

// NewFileWatcher creates a watcher for path polling every interval.
func NewFileWatcher(path string, interval time.Duration, onChange func(string)) *FileWatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &FileWatcher{
		Path:     path,
		Interval: interval,
		onChange: onChange,
	}
}

// Run polls until ctx is cancelled. It always returns nil so it can sit in an
// errgroup next to the HTTP server.
func (w *FileWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	// prime
	w.scan(true)
	for {
		select {
		case <-ticker.C:
			w.scan(false)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *FileWatcher) scan(prime bool) {
	fi, err := os.Stat(w.Path)
	if err != nil {
		// a missing file keeps the last good snapshot
		return
	}
	mt, size := fi.ModTime(), fi.Size()
	if w.lastMod.IsZero() || prime {
		w.lastMod, w.lastSize = mt, size
		return
	}
	if !mt.Equal(w.lastMod) || size != w.lastSize {
		w.lastMod, w.lastSize = mt, size
		if w.onChange != nil {
			w.onChange(w.Path)
		}
	}
}
