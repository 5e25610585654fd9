package config

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is invoked after the watched config file was reloaded
// successfully.
type ChangeCallback func(oldConfig, newConfig *Config)

// Watcher watches a configuration file and reloads it on change. Reload
// failures keep the previous configuration and are logged; callbacks only
// see configurations that passed validation.
type Watcher struct {
	configFile string
	logger     *slog.Logger

	config   *Config
	configMu sync.RWMutex

	fsWatcher *fsnotify.Watcher

	callbacks   []ChangeCallback
	callbacksMu sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// debounceDelay coalesces the bursts of fs events editors produce for a
// single save.
const debounceDelay = 100 * time.Millisecond

// NewWatcher creates a Watcher for configFile and loads the initial
// configuration. A nil logger selects slog.Default().
func NewWatcher(configFile string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file system watcher: %w", err)
	}

	return &Watcher{
		configFile: configFile,
		logger:     logger,
		config:     cfg,
		fsWatcher:  fsWatcher,
		stop:       make(chan struct{}),
	}, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.configMu.RLock()
	defer w.configMu.RUnlock()

	return w.config
}

// OnChange registers a callback invoked after every successful reload.
func (w *Watcher) OnChange(cb ChangeCallback) {
	w.callbacksMu.Lock()
	defer w.callbacksMu.Unlock()

	w.callbacks = append(w.callbacks, cb)
}

// Start begins watching the configuration file.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.configFile); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	w.wg.Add(1)

	go w.watchLoop()

	return nil
}

// Stop stops watching and waits for the watch goroutine to exit. It is safe
// to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})

	w.wg.Wait()

	_ = w.fsWatcher.Close()
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	var debounce *time.Timer

	reload := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			// Editors fire several events per save; reload once after
			// the burst settles.
			if debounce != nil {
				debounce.Stop()
			}

			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.reload()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}

			w.logger.Warn("config watcher error", "err", err)

		case <-w.stop:
			if debounce != nil {
				debounce.Stop()
			}

			return
		}
	}
}

func (w *Watcher) reload() {
	newConfig, err := Load(w.configFile)
	if err != nil {
		w.logger.Warn("config reload failed; keeping previous config", "err", err)
		return
	}

	w.configMu.Lock()
	oldConfig := w.config
	w.config = newConfig
	w.configMu.Unlock()

	w.callbacksMu.RLock()
	callbacks := make([]ChangeCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.callbacksMu.RUnlock()

	for _, cb := range callbacks {
		cb(oldConfig, newConfig)
	}
}
