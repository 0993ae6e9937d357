package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/wikivault/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change. path is the
// absolute, slash-normalized note path.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the workspace root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db NameIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if _, err := reconcile(db, store, logger, cb); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			handleEvent(w, db, store, logger, cb, ev, scheduleReconcile)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func handleEvent(w *fsnotify.Watcher, db NameIndex, store storage.Provider, logger *slog.Logger, cb EventCallback, ev fsnotify.Event, scheduleReconcile func()) {
	absPath := ev.Name
	if isHidden(store.Root(), absPath) {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") {
				return
			}
			if addErr := addDirsRecursive(w, absPath); addErr != nil {
				logger.Warn("watcher: add new dir failed",
					slog.String("path", absPath),
					slog.String("error", addErr.Error()))
			} else {
				logger.Debug("watcher: watching new dir", slog.String("path", absPath))
			}
			// Files may land in the directory before it is watched.
			scheduleReconcile()
			return
		}
	}

	slashed := filepath.ToSlash(absPath)
	if !strings.HasSuffix(absPath, store.NoteExt()) {
		// A removed or renamed directory takes its notes with it.
		if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			removed, err := db.DeleteUnder(slashed)
			if err != nil {
				logger.Warn("watcher: delete dir failed", slog.String("path", slashed), slog.String("error", err.Error()))
			}
			for _, p := range removed {
				if cb != nil {
					cb(EventDeleted, p)
				}
			}
			if ev.Op&fsnotify.Rename != 0 {
				scheduleReconcile()
			}
		}
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		info, statErr := os.Stat(absPath)
		if statErr != nil || !info.Mode().IsRegular() {
			return
		}
		if idxErr := db.Upsert(NoteRow{Path: slashed, Size: info.Size(), ModTime: info.ModTime()}); idxErr != nil {
			logger.Warn("watcher: index failed", slog.String("path", slashed), slog.String("error", idxErr.Error()))
			return
		}
		kind := EventUpdated
		if ev.Op&fsnotify.Create != 0 {
			kind = EventCreated
		}
		logger.Debug("watcher: indexed", slog.String("path", slashed), slog.String("op", kind))
		if cb != nil {
			cb(kind, slashed)
		}

	case ev.Op&fsnotify.Remove != 0:
		if delErr := db.Delete(slashed); delErr != nil {
			logger.Warn("watcher: delete failed", slog.String("path", slashed), slog.String("error", delErr.Error()))
			return
		}
		logger.Debug("watcher: deleted", slog.String("path", slashed))
		if cb != nil {
			cb(EventDeleted, slashed)
		}

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify fires Rename on the old path only; the new path arrives
		// as a Create if it stays inside a watched directory.
		if delErr := db.Delete(slashed); delErr != nil {
			logger.Warn("watcher: rename delete failed", slog.String("path", slashed), slog.String("error", delErr.Error()))
		} else {
			logger.Debug("watcher: rename old deleted", slog.String("path", slashed))
			if cb != nil {
				cb(EventDeleted, slashed)
			}
		}
		scheduleReconcile()
	}
}

// isHidden reports whether p lies inside a dot-directory below root.
func isHidden(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts[:len(parts)-1] {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
