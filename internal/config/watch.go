package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/paddock/pkg/logger"
)

// reloadDebounce is how long the file must stay quiet before a reload.
const reloadDebounce = 150 * time.Millisecond

// errEmptyFile marks a config file caught between truncate and write.
var errEmptyFile = errors.New("config file is empty")

// Watch monitors path and calls onChange with the reloaded Config each time
// the file is written, recreated or renamed into place. It runs until ctx is
// cancelled.
//
// The parent directory is watched so atomic saves keep being seen. Bursts of
// events are collapsed into one reload. A reload that fails to load or
// validate is logged and skipped, so the previous config stays active.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	log := logger.Named("config")
	log.Info(ctx, "watching for changes", logger.String("path", path))

	debounce := time.NewTimer(reloadDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(reloadDebounce)

		case <-debounce.C:
			cfg, err := reload(ctx, path)
			if err != nil {
				log.Error(ctx, "reload failed, keeping previous config",
					logger.String("path", path), logger.Error(err))
				continue
			}

			log.Info(ctx, "reloaded", logger.String("path", path))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, "watcher error", logger.Error(err))
		}
	}
}

func reload(ctx context.Context, path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, errEmptyFile)
	}
	return LoadFile(ctx, path)
}
