package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reruns a function whenever one of a set of files changes.
type Watcher struct {
	files    map[string]bool
	dirs     map[string]bool
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher watches files by name. Their directories are watched rather than
// the files themselves so that editors replacing a file on save are noticed.
func NewWatcher(files []string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		debounce: debounce,
		logger:   logger,
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		w.files[abs] = true
		w.dirs[filepath.Dir(abs)] = true
	}
	if len(w.files) == 0 {
		return nil, fmt.Errorf("nothing to watch")
	}
	return w, nil
}

// Run calls fn once, then again after every change, until ctx is done. Errors
// from fn are logged and do not stop the watch.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer fsw.Close()

	for dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.invoke(ctx, fn)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("watched file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		case <-timer.C:
			w.invoke(ctx, fn)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

func (w *Watcher) invoke(ctx context.Context, fn func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	if err := fn(ctx); err != nil {
		w.logger.Warn("watched run failed", zap.Error(err))
	}
}
