package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadTimeout bounds one watcher-triggered catalog rebuild.
const reloadTimeout = 30 * time.Second

// Watcher reloads the catalog when its file changes on disk. Editors
// and deploy tooling tend to write via rename, so the watch sits on the
// parent directory and filters events down to the one file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	reload   func(context.Context) error
	logger   *zap.Logger
	cancel   context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for one catalog file
func NewWatcher(path string, debounce time.Duration, reload func(context.Context) error, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create catalog watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		watcher:  fsWatcher,
		path:     filepath.Clean(path),
		debounce: debounce,
		reload:   reload,
		logger:   logger.Named("catalog-watcher"),
	}, nil
}

// Start begins watching. It returns once the watch is registered; event
// handling runs in the background until Stop.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch catalog directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.watchLoop(ctx)

	w.logger.Info("Watching catalog file", zap.String("path", w.path))
	return nil
}

// Stop shuts the watcher down
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Catalog watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	// Debounce rapid events: one rebuild per burst of writes.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.runReload(ctx)
	})
}

func (w *Watcher) runReload(ctx context.Context) {
	reloadCtx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()

	w.logger.Info("Catalog file changed, reloading", zap.String("path", w.path))
	if err := w.reload(reloadCtx); err != nil {
		w.logger.Error("Catalog reload after file change failed", zap.Error(err))
		return
	}
	w.logger.Info("Catalog reloaded after file change")
}
