package automation

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/san-kum/nemsim/internal/config"
)

// Watch calls onChange with the config at path once, then again every time
// the file is written or replaced, until ctx is done. A config that fails to
// load or validate, or an onChange error, is logged and the watch goes on.
// The parent directory is watched so editors that save by rename are seen.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func(context.Context, *config.Config) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	reload := func() {
		cfg, err := config.Load(path)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			logger.Warn("config rejected", zap.String("path", path), zap.Error(err))
			return
		}
		if err := onChange(ctx, cfg); err != nil {
			logger.Error("run failed", zap.String("path", path), zap.Error(err))
		}
	}

	reload()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			logger.Debug("config changed", zap.String("path", path), zap.Stringer("op", ev.Op))
			reload()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}
