package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DebounceDelay coalesces the burst of events editors emit per save.
const DebounceDelay = 100 * time.Millisecond

// Watcher reloads a config file when it changes on disk and hands the new
// Config to subscribers. Subscribers run on the watcher's goroutine.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	errs    chan error

	mu        sync.RWMutex
	current   *Config
	callbacks []func(*Config)
	timer     *time.Timer
	wg        sync.WaitGroup
}

// Watch starts watching path. cfg is the config currently in use.
func Watch(path string, cfg *Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// The directory is watched so editors that replace the file by rename
	// keep being seen.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:    path,
		watcher: fw,
		ctx:     ctx,
		cancel:  cancel,
		errs:    make(chan error, 1),
		current: cfg,
	}
	w.wg.Add(1)
	go w.watchLoop()
	return w, nil
}

// OnChange registers fn to receive every successfully reloaded config.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Current returns the last loaded config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Errors reports reload and watch failures. Only the latest unread error
// is kept.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(DebounceDelay, w.reload)
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(fmt.Errorf("watcher error: %w", err))
		}
	}
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.report(fmt.Errorf("reload config: %w", err))
		return
	}
	log.Debugf("Reloaded config from %s", w.path)

	w.mu.Lock()
	w.current = cfg
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

func (w *Watcher) report(err error) {
	log.Warn(err)
	select {
	case w.errs <- err:
	default:
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
