package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDebounce coalesces the burst of events a single write produces.
const DefaultWatchDebounce = 500 * time.Millisecond

// StoreWatcher invalidates the schema snapshot when a file-backed store
// changes on disk outside this process.
type StoreWatcher struct {
	path     string
	provider *SnapshotProvider
	debounce time.Duration
	logger   *zap.Logger
}

// NewStoreWatcher watches the store file at path. A debounce of zero uses
// DefaultWatchDebounce.
func NewStoreWatcher(path string, provider *SnapshotProvider, debounce time.Duration, logger *zap.Logger) *StoreWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	return &StoreWatcher{
		path:     filepath.Clean(path),
		provider: provider,
		debounce: debounce,
		logger:   logger.Named("store_watcher"),
	}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// the file may be created or replaced after Run starts.
func (w *StoreWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("Watching store file", zap.String("path", w.path))

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			name := event.Name
			timer = time.AfterFunc(w.debounce, func() {
				w.provider.Invalidate("store file changed: " + filepath.Base(name))
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Store watcher error", zap.Error(err))
		}
	}
}

// relevant matches changes to the store file and its journal or WAL. The
// shared-memory file is ignored because readers write to it too.
func (w *StoreWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == w.path || name == w.path+"-wal" || name == w.path+"-journal"
}
