package importer

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
)

// Watch starts an fsnotify watcher on the designs root and processes
// file change events until ctx is cancelled. It calls cb (if non-nil)
// after each successful store mutation.
//
// New directories created at runtime are added to the watch list.
// Rename events trigger a debounced reconciliation pass that removes
// mechanisms whose design files no longer exist on disk.
func Watch(ctx context.Context, db store.Store, designs storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
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
			if err := Sync(db, designs, logger); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					// Pick up any design files already inside.
					scheduleReconcile()
					continue
				}
			}

			if !storage.IsDesignFile(absPath) {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				handleWrite(db, designs, rel, logger, cb)

			case ev.Op&fsnotify.Remove != 0:
				handleRemove(db, rel, logger, cb)

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path
				// arrives as a separate Create. Remove the old entry
				// now and reconcile shortly after for stragglers.
				handleRemove(db, rel, logger, cb)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func handleWrite(db store.Store, designs storage.Provider, rel string, logger *slog.Logger, cb EventCallback) {
	data, err := designs.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	// A Create event can fire before any content lands; the follow-up
	// Write event re-delivers the path once the bytes are there.
	if len(data) == 0 {
		return
	}

	records, err := db.ListImports()
	if err != nil {
		logger.Warn("watcher: list imports failed", slog.String("error", err.Error()))
		return
	}
	known := make(map[string]store.ImportRecord, len(records))
	for _, rec := range records {
		known[rec.Path] = rec
	}
	// The event kind follows the import-record state, not the fsnotify
	// op: a racing Create whose content arrives in a later Write event
	// must still be reported as a creation.
	_, existed := known[rel]

	m, err := importFile(db, rel, data, known)
	if err != nil {
		logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}

	kind := "mechanism.updated"
	if !existed {
		kind = "mechanism.created"
	}
	logger.Debug("watcher: imported", slog.String("path", rel), slog.String("op", kind))
	if cb != nil {
		cb(kind, m.ID)
	}
}

func handleRemove(db store.Store, rel string, logger *slog.Logger, cb EventCallback) {
	mechID, err := db.DeleteImport(rel)
	if errors.Is(err, apperr.ErrNotFound) {
		return
	}
	if err != nil {
		logger.Warn("watcher: delete import failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := db.DeleteMechanism(mechID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		logger.Warn("watcher: delete mechanism failed", slog.String("id", mechID), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: removed", slog.String("path", rel), slog.String("id", mechID))
	if cb != nil {
		cb("mechanism.deleted", mechID)
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
