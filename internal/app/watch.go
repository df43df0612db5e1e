package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is how long Watch waits after the last change before
// re-evaluating.
var WatchDebounce = 200 * time.Millisecond

// Watch evaluates the script at path, then again after every change to it,
// calling fn with each result until ctx is cancelled. The script's
// directory is watched so editors that replace the file on save are seen.
func (a *App) Watch(ctx context.Context, path string, mesh bool, fn func(Result)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	a.logger.Info("watcher: started", slog.String("path", abs))
	fn(a.EvaluateFile(abs, mesh))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			a.logger.Info("watcher: stopped")
			return nil

		case <-fire:
			fire = nil
			fn(a.EvaluateFile(abs, mesh))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			a.logger.Debug("watcher: changed", slog.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(WatchDebounce)
			} else {
				timer.Reset(WatchDebounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher: error", slog.String("error", err.Error()))
		}
	}
}
