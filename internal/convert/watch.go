// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a
// watched document is converted again.
const DefaultDebounce = 300 * time.Millisecond

// Watch calls onChange with a source path whenever that source is written,
// created or renamed into place. Parent directories are watched rather than
// the files, so editors that save by replacing the file are still seen.
// Events for the same source within debounce are coalesced. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, sources []string, debounce time.Duration, logger *slog.Logger, onChange func(src string)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	wanted := make(map[string]string, len(sources))
	dirs := make(map[string]bool)
	for _, src := range sources {
		abs, err := filepath.Abs(src)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", src, err)
		}
		wanted[abs] = src
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	d := newDebouncer(debounce)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", slog.Any("error", err))
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			src, ok := wanted[abs]
			if !ok {
				continue
			}
			logger.Debug("source changed", slog.String("path", src), slog.String("op", event.Op.String()))
			d.trigger(src)
		case src := <-d.fired:
			onChange(src)
		}
	}
}

// debouncer delivers a key on fired once no trigger for that key has been
// seen for delay. A key is removed from the pending set the moment its timer
// fires, so a trigger arriving after that starts a new period rather than
// rearming a timer whose delivery is already in flight.
type debouncer struct {
	delay time.Duration
	fired chan string
	done  chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		fired:   make(chan string),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}
}

func (d *debouncer) trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.pending[key]; ok && t.Stop() {
		t.Reset(d.delay)
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.pending[key] == t {
			delete(d.pending, key)
		}
		d.mu.Unlock()
		select {
		case d.fired <- key:
		case <-d.done:
		}
	})
	d.pending[key] = t
}

// pendingCount returns the number of keys waiting for their quiet period.
func (d *debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// stop cancels pending timers and releases callbacks blocked on delivery.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	for key, t := range d.pending {
		t.Stop()
		delete(d.pending, key)
	}
	close(d.done)
}
