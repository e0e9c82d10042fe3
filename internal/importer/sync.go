// Package importer keeps the mechanism store in step with a directory
// of YAML design files: a full sync at startup and an fsnotify watcher
// afterwards. The design directory is the configuration-input surface
// of the system; the interactive tooling that writes these files is an
// external collaborator.
package importer

import (
	"errors"
	"log/slog"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/model"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
)

// EventCallback is called after an importer-driven store change.
// kind uses the same namespace the simulation service emits, one of
// "mechanism.created", "mechanism.updated", "mechanism.deleted"; id is
// the mechanism.
type EventCallback func(kind, id string)

// Sync walks the design directory and brings the store up to date:
//   - new/changed design files are parsed, validated, and saved
//   - files removed from disk have their mechanisms deleted
//
// Invalid designs are logged and skipped; they never abort the sync.
func Sync(db store.Store, designs storage.Provider, logger *slog.Logger) error {
	records, err := db.ListImports()
	if err != nil {
		return err
	}
	known := make(map[string]store.ImportRecord, len(records))
	for _, rec := range records {
		known[rec.Path] = rec
	}

	metas, err := designs.List("")
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if rec, ok := known[m.Path]; ok && rec.Checksum == m.Checksum {
			continue
		}
		data, err := designs.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := importFile(db, m.Path, data, known); err != nil {
			logger.Warn("sync: import failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: imported", slog.String("path", m.Path))
		}
	}

	// Designs removed from disk take their mechanisms with them.
	for path, rec := range known {
		if _, ok := disk[path]; ok {
			continue
		}
		if _, err := db.DeleteImport(path); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("sync: delete import failed", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if err := db.DeleteMechanism(rec.MechanismID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("sync: delete mechanism failed", slog.String("id", rec.MechanismID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", path))
		}
	}

	return nil
}

// importFile parses, validates, and saves one design file, reusing the
// mechanism identity from a previous import of the same path so that
// edits bump the version instead of spawning a new mechanism.
func importFile(db store.Store, path string, data []byte, known map[string]store.ImportRecord) (*model.Mechanism, error) {
	m, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateTopology(m.Joints, m.Links); err != nil {
		return nil, err
	}
	if rec, ok := known[path]; ok {
		m.ID = rec.MechanismID
	}
	if _, _, err := db.SaveMechanism(m); err != nil {
		return nil, err
	}
	rec := store.ImportRecord{Path: path, Checksum: checksum.Sum(data), MechanismID: m.ID}
	if err := db.SaveImport(rec); err != nil {
		return nil, err
	}
	known[path] = rec
	return m, nil
}
