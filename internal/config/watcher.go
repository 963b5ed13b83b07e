package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadHandler is invoked with the freshly loaded configuration
type ReloadHandler func(cfg *Config)

// Watcher reloads the config file when it changes on disk
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	handlers []ReloadHandler
	logger   zerolog.Logger
	mu       sync.Mutex
	done     chan struct{}
}

// NewWatcher creates a watcher for the given config file
func NewWatcher(path string, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory; editors replace files rather than writing in place
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		watcher: fw,
		logger:  logger,
		done:    make(chan struct{}),
	}

	go w.run()

	return w, nil
}

// OnReload registers a handler called after each successful reload
func (w *Watcher) OnReload(handler ReloadHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn().Err(err).Str("path", w.path).Msg("Config reload failed, keeping previous config")
				continue
			}

			w.logger.Info().Str("path", w.path).Msg("Config reloaded")

			w.mu.Lock()
			handlers := make([]ReloadHandler, len(w.handlers))
			copy(handlers, w.handlers)
			w.mu.Unlock()

			for _, handler := range handlers {
				handler(cfg)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Config watcher error")

		case <-w.done:
			return
		}
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
