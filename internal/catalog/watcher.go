package catalog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/msageha/devtimer/internal/model"
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the destination and threshold for watcher logs.
func WithLogger(logger *log.Logger, level model.LogLevel) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
		w.logLevel = level
	}
}

// WithDebounce sets how long the watcher waits for file events to settle.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// OnReload registers a callback run after every successful reload.
func OnReload(fn func(c *Catalog)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// Watcher reloads user modes into a Catalog when the modes directory changes.
// A reload that fails keeps the previous catalog.
type Watcher struct {
	loader   *Loader
	catalog  *Catalog
	debounce time.Duration
	onReload func(*Catalog)
	logger   *log.Logger
	logLevel model.LogLevel

	fsw  *fsnotify.Watcher
	sf   singleflight.Group
	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

func NewWatcher(loader *Loader, catalog *Catalog, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		loader:   loader,
		catalog:  catalog,
		debounce: 300 * time.Millisecond,
		logger:   log.New(io.Discard, "", 0),
		logLevel: model.LogLevelInfo,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. The modes directory is created if missing.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.loader.Dir(), 0755); err != nil {
		return fmt.Errorf("ensure modes dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(w.loader.Dir()); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.loader.Dir(), err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.loop()
	w.log(model.LogLevelDebug, "watching %s", w.loader.Dir())
	return nil
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.debounceMu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.debounceMu.Unlock()
		if w.fsw != nil {
			err = w.fsw.Close()
		}
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isModeFile(filepath.Base(event.Name)) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.log(model.LogLevelDebug, "fsnotify event=%s file=%s", event.Op, event.Name)
				w.debounceReload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log(model.LogLevelError, "fsnotify error=%v", err)
		}
	}
}

func (w *Watcher) debounceReload() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		_ = w.Reload()
	})
}

// Reload reads the modes directory now. Concurrent calls share one load.
func (w *Watcher) Reload() error {
	_, err, _ := w.sf.Do("reload", func() (interface{}, error) {
		modes, err := w.loader.LoadDir()
		if err != nil {
			w.log(model.LogLevelError, "reload failed, keeping previous modes: %v", err)
			return nil, err
		}
		w.catalog.Replace(modes)
		w.log(model.LogLevelInfo, "reloaded %d custom modes", len(modes))
		if w.onReload != nil {
			w.onReload(w.catalog)
		}
		return nil, nil
	})
	return err
}

func (w *Watcher) log(level model.LogLevel, format string, args ...any) {
	if level < w.logLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	w.logger.Printf("%s %s catalog: %s", time.Now().Format(time.RFC3339), level, msg)
}
