// Package watch implements A6: re-invoking the CLI driver's replay whenever
// a board file or command-stream file changes on disk, for the
// `topola --watch` flag. Adapted directly from cwilson613-specularium's
// internal/watcher (same fsnotify-on-directory-plus-debounce shape,
// because fsnotify only reliably reports CREATE/WRITE on the containing
// directory, not the file itself, across editors that write via a
// rename).
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"topola/internal/logging"
)

// Watcher watches one or more files, invoking onChange(path) whenever any
// of them is written or recreated, debounced so a single save does not
// trigger onChange multiple times.
type Watcher struct {
	paths    []string
	debounce time.Duration
	log      *logging.Logger
}

// New creates a Watcher over the given files.
func New(paths []string, log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.Discard()
	}
	return &Watcher{paths: paths, debounce: 300 * time.Millisecond, log: log.With("watch")}
}

// WithDebounce overrides the default debounce window.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch blocks, calling onChange(path) each time a watched file changes,
// until ctx is cancelled or the underlying fsnotify watcher errors fatally.
func (w *Watcher) Watch(ctx context.Context, onChange func(path string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	watchedDirs := make(map[string]bool)
	fileSet := make(map[string]bool)
	for _, path := range w.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		dir := filepath.Dir(abs)
		if !watchedDirs[dir] {
			if err := fsw.Add(dir); err != nil {
				w.log.Printf("failed to watch directory %s: %v", dir, err)
				continue
			}
			watchedDirs[dir] = true
		}
		fileSet[abs] = true
		w.log.Printf("watching %s for changes", abs)
	}

	debounceTimers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range debounceTimers {
			t.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !fileSet[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer, exists := debounceTimers[abs]; exists {
				timer.Stop()
			}
			debounceTimers[abs] = time.AfterFunc(w.debounce, func() {
				w.log.Printf("file changed: %s", abs)
				onChange(abs)
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Printf("watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
