package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a settings file whenever it changes on disk.
type Watcher struct {
	path     string
	onChange func(Settings, error)
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	// reappearTimeout bounds the wait for a file replaced by rename
	// (editors commonly save that way).
	reappearTimeout time.Duration
}

// NewWatcher creates a Watcher for path. onChange is called with the freshly
// loaded settings, or the load error, after each write.
func NewWatcher(path string, onChange func(Settings, error), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:            path,
		onChange:        onChange,
		logger:          logger,
		reappearTimeout: 10 * time.Second,
	}
}

// Run blocks until ctx is cancelled or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	w.watcher = watcher
	defer watcher.Close()

	if err := watcher.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.logger.Debug("watching config file", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			if err := w.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) error {
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		w.reload()
		return nil

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return w.waitForFile(ctx)
	}

	// Chmod and anything else.
	return nil
}

func (w *Watcher) reload() {
	s, err := Load(w.path)
	if err != nil {
		w.logger.Debug("config reload failed", "path", w.path, "error", err)
	}
	w.onChange(s, err)
}

// waitForFile waits for a removed or renamed file to reappear, then re-adds
// it to the watcher and reloads it.
func (w *Watcher) waitForFile(ctx context.Context) error {
	timeout := time.After(w.reappearTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for %s to reappear", w.path)
		case <-ticker.C:
			if _, err := os.Stat(w.path); err != nil {
				continue
			}
			if err := w.watcher.Add(w.path); err != nil {
				return fmt.Errorf("failed to re-watch %s: %w", w.path, err)
			}
			w.reload()
			return nil
		}
	}
}
