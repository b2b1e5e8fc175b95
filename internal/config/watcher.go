package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"ravel/internal/logging"
)

// debounceWindow is long enough to coalesce an editor's multi-write
// save, short enough that a hot-reload still feels immediate.
const debounceWindow = 500 * time.Millisecond

// Watcher reloads Config from path whenever the file changes on disk,
// invoking onReload with the freshly parsed value. Only MaxRewinds,
// MinSpacing, DefaultMode, and Temperatures are intended to change at
// runtime; Provider/Model/Logging changes require a process restart to
// take effect, since the adapter and logger are already constructed by
// the time a reload fires.
//
// An fsnotify.Watcher plus a debounce map drained on a ticker, adapted
// here from watching a directory of rule files to a single settings file.
type Watcher struct {
	mu      sync.Mutex
	path    string
	watcher *fsnotify.Watcher
	log     *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a Watcher for path. Call Start to begin watching.
func NewWatcher(path string, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:    path,
		watcher: fw,
		log:     logging.NopIfNil(log).Named("config.watcher"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching the config file's parent directory (fsnotify
// cannot watch a single file reliably across editor rename-on-save
// patterns) and invokes onReload after each settled write. Non-blocking;
// the watch loop runs in a goroutine until Stop is called.
func (w *Watcher) Start(onReload func(*Config, error)) error {
	dir := parentDir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	go w.run(onReload)
	return nil
}

// Stop terminates the watch loop and releases the underlying fsnotify
// watcher. Safe to call once; blocks until the goroutine has exited.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(onReload func(*Config, error)) {
	defer close(w.doneCh)

	var pending bool
	var lastEvent time.Time
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if matchesPath(ev.Name, w.path) {
				pending = true
				lastEvent = time.Now()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			if pending && time.Since(lastEvent) >= debounceWindow {
				pending = false
				cfg, err := Load(w.path)
				if err != nil {
					w.log.Warn("reload failed, keeping previous config", zap.Error(err))
				} else {
					w.log.Info("config reloaded",
						zap.Int("max_rewinds", cfg.MaxRewinds),
						zap.Int("min_spacing", cfg.MinSpacing),
						zap.String("default_mode", string(cfg.DefaultMode)))
				}
				onReload(cfg, err)
			}
		}
	}
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func matchesPath(eventPath, watched string) bool {
	return eventPath == watched || eventPath == "./"+watched
}
