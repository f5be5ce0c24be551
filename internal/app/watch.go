package app

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/fsutil"
)

// watchedExts are the files whose changes trigger a new run. Data files are
// left out so stages writing their outputs next to the bindings cannot
// trigger themselves.
var watchedExts = map[string]bool{".dot": true, ".gv": true, ".hcl": true}

// Watch runs the pipeline, then runs it again whenever the diagram or a
// binding file changes, until ctx is cancelled. Failed runs are logged and
// do not stop watching.
func (a *App) Watch(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	if err := a.startHealthCheckServer(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	debounce := a.config.WatchDebounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watched := make(map[string]bool)
	cycle := func() {
		p, _, err := a.runOnce(ctx)
		if err != nil {
			logger.Error("Run failed, waiting for changes.", "error", err)
		}
		paths := append([]string(nil), a.config.BindingPaths...)
		if p != nil {
			paths = append(paths, p.diagramPath)
		} else if a.config.DiagramPath != "" {
			paths = append(paths, a.config.DiagramPath)
		}
		dirs, err := fsutil.WatchDirs(paths...)
		if err != nil {
			logger.Warn("Could not list directories to watch.", "error", err)
		}
		for _, dir := range dirs {
			if watched[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				logger.Warn("Could not watch directory.", "dir", dir, "error", err)
				continue
			}
			watched[dir] = true
		}
		logger.Info("👀 Watching for changes", "dirs", len(watched))
	}

	cycle()

	var rerun <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watch stopped.")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watchedExts[strings.ToLower(filepath.Ext(ev.Name))] || ev.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("File changed.", "file", ev.Name, "op", ev.Op.String())
			rerun = time.After(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)
		case <-rerun:
			rerun = nil
			logger.Info("🔁 Change detected, re-running pipeline")
			cycle()
		}
	}
}
