package index

import (
	"log/slog"
	"path"
	"path/filepath"

	"github.com/starford/wikivault/internal/models"
	"github.com/starford/wikivault/internal/storage"
)

// Sync walks the workspace and brings the index up to date:
//   - new/changed files (by size and mtime) are upserted
//   - files removed from disk are deleted from the index
func Sync(db NameIndex, store storage.Provider, logger *slog.Logger) error {
	_, err := reconcile(db, store, logger, nil)
	return err
}

// reconcile is the shared body of Sync and the watcher's rename pass.
// It reports how many rows changed.
func reconcile(db NameIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) (int, error) {
	metas, err := store.List("")
	if err != nil {
		return 0, err
	}
	indexed, err := db.AllMeta()
	if err != nil {
		return 0, err
	}

	root := filepath.ToSlash(store.Root())
	changed := 0
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		abs := absPath(root, m)
		disk[abs] = struct{}{}

		row, ok := indexed[abs]
		if ok && !row.Changed(m.Size, m.ModTime) {
			continue
		}
		if err := db.Upsert(NoteRow{Path: abs, Size: m.Size, ModTime: m.ModTime}); err != nil {
			logger.Warn("sync: index failed", slog.String("path", abs), slog.String("error", err.Error()))
			continue
		}
		changed++
		logger.Debug("sync: indexed", slog.String("path", abs))
		if cb != nil {
			kind := EventUpdated
			if !ok {
				kind = EventCreated
			}
			cb(kind, abs)
		}
	}

	for p := range indexed {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.Delete(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		changed++
		logger.Debug("sync: removed stale", slog.String("path", p))
		if cb != nil {
			cb(EventDeleted, p)
		}
	}

	return changed, nil
}

func absPath(root string, m models.NoteMetadata) string {
	return path.Join(root, m.Path)
}
