package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchDebounce is how long Watch waits after the last filesystem event
// before triggering a re-ingest, coalescing bursts of saves (editors often
// write a file, then rewrite it seconds later; a single debounced run
// avoids re-indexing on every intermediate write).
const WatchDebounce = 500 * time.Millisecond

// Watch runs Run once immediately, then again each time the watched tree
// settles after a write, until ctx is cancelled. This is the optional
// live-reindex-on-save mode supplementing spec §4.5's on-demand `ingest`
// operation. Grounded on the teacher's pkg/prefetch.GitEventDetector: a
// single fsnotify.Watcher with explicit per-directory Add calls (fsnotify
// has no recursive-watch mode) feeding one event-processing loop.
func (p *Pipeline) Watch(ctx context.Context, opts Options, onRun func(Stats, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	rules := NewIgnoreRules(opts.Path, opts.IncludePatterns, opts.UseIgnoreFiles)
	if err := addDirsRecursive(watcher, opts.Path, rules); err != nil {
		return fmt.Errorf("watching %s: %w", opts.Path, err)
	}

	var runMu sync.Mutex
	run := func() {
		runMu.Lock()
		defer runMu.Unlock()
		stats, err := p.Run(ctx, opts)
		if onRun != nil {
			onRun(stats, err)
		}
	}
	go run()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			rel, relErr := filepath.Rel(opts.Path, event.Name)
			if relErr == nil && (rules.Excluded(rel) || !rules.Included(rel)) {
				continue
			}
			if debounce == nil {
				debounce = time.AfterFunc(WatchDebounce, run)
			} else {
				debounce.Reset(WatchDebounce)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.Logger.Warn("ingest: watcher error", zap.Error(werr))
		}
	}
}

// addDirsRecursive registers root and every non-ignored subdirectory with
// the watcher; fsnotify only watches the directories it's explicitly given.
func addDirsRecursive(w *fsnotify.Watcher, root string, rules *IgnoreRules) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries, don't abort the walk
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && rules.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
