package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Netflix/go-env"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the delay after the last change event before the file is reloaded.
// Editors often write a file in several steps.
var watchDebounce = 100 * time.Millisecond

// Watch reloads the config file at path when it changes and calls onChange with the new configuration.
// overrides are applied to every reload the same way Load applies them.
//
// The directory containing the file is watched so that editors which replace the file (write and rename)
// are handled. Reloads that fail to parse or validate are logged and ignored.
// The watcher stops when ctx is cancelled.
func Watch(ctx context.Context, path string, overrides env.EnvSet, logger *slog.Logger, onChange func(*ServerEnvironment)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	logger.Info("watching config file", slog.String("path", target))

	reload := func() {
		if ctx.Err() != nil {
			return
		}
		cfg, err := Load(target, overrides)
		if err != nil {
			logger.Warn("ignoring invalid config file change",
				slog.String("path", target),
				slog.String("error", err.Error()))
			return
		}
		WarnUnknownFileKeys(logger, target, cfg)
		onChange(cfg)
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, reload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", slog.String("error", err.Error()))
			}
		}
	}()

	return nil
}

// WarnUnknownFileKeys logs a warning for each config file key that does not name a setting
func WarnUnknownFileKeys(logger *slog.Logger, path string, cfg *ServerEnvironment) {
	for _, key := range cfg.UnknownFileKeys() {
		logger.Warn("ignoring unknown config file key",
			slog.String("path", path),
			slog.String("key", key))
	}
}
