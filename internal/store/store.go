package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/kinematics"
	"github.com/starford/raido/internal/model"
)

// MechanismInfo is the lightweight listing row.
type MechanismInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version int    `json:"version"`
}

// ImportRecord tracks which design file produced which mechanism, so
// the importer can skip unchanged files and clean up after deletions.
type ImportRecord struct {
	Path        string
	Checksum    string
	MechanismID string
}

// Store defines the persistence operations. Consumers should depend on
// this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type Store interface {
	SaveMechanism(m *model.Mechanism) (id string, version int, err error)
	GetMechanism(id string) (*model.Mechanism, error)
	ListMechanisms(nameFilter string) ([]MechanismInfo, error)
	DeleteMechanism(id string) error

	SaveTrajectory(t *kinematics.Trajectory) error
	LoadTrajectory(mechanismID string, version, steps int) (*kinematics.Trajectory, error)
	DeleteTrajectory(mechanismID string) error

	SaveImport(rec ImportRecord) error
	ListImports() ([]ImportRecord, error)
	DeleteImport(path string) (mechanismID string, err error)

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// definition is the stored geometric payload; identity and version live
// in their own columns.
type definition struct {
	Joints []model.Joint `json:"joints"`
	Links  []model.Link  `json:"links"`
}

// SaveMechanism persists m and returns its identity and version.
//
// A mechanism without an ID gets a fresh UUID and version 1. Re-saving
// an existing mechanism compares value equality against the stored
// definition: an unchanged definition is a no-op (the stored version is
// returned untouched), any real change bumps the version by one.
func (db *DB) SaveMechanism(m *model.Mechanism) (string, int, error) {
	def, err := json.Marshal(definition{Joints: m.Joints, Links: m.Links})
	if err != nil {
		return "", 0, fmt.Errorf("store: marshal definition: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return "", 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if m.ID == "" {
		m.ID = uuid.NewString()
		m.Version = 1
		_, err = tx.Exec(`INSERT INTO mechanisms (id, name, version, definition, updated_at) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.Version, string(def), time.Now().UTC())
		if err != nil {
			return "", 0, fmt.Errorf("store: insert mechanism: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return "", 0, err
		}
		return m.ID, m.Version, nil
	}

	existing, err := scanMechanism(tx.QueryRow(
		`SELECT id, name, version, definition FROM mechanisms WHERE id = ?`, m.ID))
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		// Caller supplied an identity we have never seen; keep it.
		if m.Version == 0 {
			m.Version = 1
		}
		_, err = tx.Exec(`INSERT INTO mechanisms (id, name, version, definition, updated_at) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.Version, string(def), time.Now().UTC())
		if err != nil {
			return "", 0, fmt.Errorf("store: insert mechanism: %w", err)
		}
	case err != nil:
		return "", 0, err
	default:
		if existing.Equal(m) {
			// No-op save: identical canonical tuple, version untouched.
			m.Version = existing.Version
			return m.ID, m.Version, tx.Commit()
		}
		m.Version = existing.Version + 1
		_, err = tx.Exec(`UPDATE mechanisms SET name = ?, version = ?, definition = ?, updated_at = ? WHERE id = ?`,
			m.Name, m.Version, string(def), time.Now().UTC(), m.ID)
		if err != nil {
			return "", 0, fmt.Errorf("store: update mechanism: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", 0, err
	}
	return m.ID, m.Version, nil
}

// GetMechanism loads one mechanism by id.
func (db *DB) GetMechanism(id string) (*model.Mechanism, error) {
	return scanMechanism(db.conn.QueryRow(
		`SELECT id, name, version, definition FROM mechanisms WHERE id = ?`, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMechanism(row rowScanner) (*model.Mechanism, error) {
	var (
		m   model.Mechanism
		def string
	)
	err := row.Scan(&m.ID, &m.Name, &m.Version, &def)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan mechanism: %w", err)
	}
	var d definition
	if err := json.Unmarshal([]byte(def), &d); err != nil {
		return nil, fmt.Errorf("store: unmarshal definition: %w", err)
	}
	m.Joints = d.Joints
	m.Links = d.Links
	return &m, nil
}

// ListMechanisms returns id/name/version rows, optionally filtered by a
// case-insensitive name substring.
func (db *DB) ListMechanisms(nameFilter string) ([]MechanismInfo, error) {
	query := `SELECT id, name, version FROM mechanisms ORDER BY name, id`
	args := []any{}
	if nameFilter != "" {
		query = `SELECT id, name, version FROM mechanisms WHERE name LIKE ? ORDER BY name, id`
		args = append(args, "%"+nameFilter+"%")
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list mechanisms: %w", err)
	}
	defer rows.Close()

	out := []MechanismInfo{}
	for rows.Next() {
		var info MechanismInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Version); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteMechanism removes a mechanism together with its cached
// trajectory and import records, in one transaction.
func (db *DB) DeleteMechanism(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM mechanisms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete mechanism: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	_, _ = tx.Exec(`DELETE FROM trajectories WHERE mechanism_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM imports WHERE mechanism_id = ?`, id)

	return tx.Commit()
}

// SaveImport records (or refreshes) the design-file provenance row.
func (db *DB) SaveImport(rec ImportRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO imports (path, checksum, mechanism_id) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum     = excluded.checksum,
			mechanism_id = excluded.mechanism_id
	`, rec.Path, rec.Checksum, rec.MechanismID)
	if err != nil {
		return fmt.Errorf("store: save import: %w", err)
	}
	return nil
}

// ListImports returns every recorded design-file import.
func (db *DB) ListImports() ([]ImportRecord, error) {
	rows, err := db.conn.Query(`SELECT path, checksum, mechanism_id FROM imports`)
	if err != nil {
		return nil, fmt.Errorf("store: list imports: %w", err)
	}
	defer rows.Close()

	var out []ImportRecord
	for rows.Next() {
		var rec ImportRecord
		if err := rows.Scan(&rec.Path, &rec.Checksum, &rec.MechanismID); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteImport removes the provenance row for path and returns the
// mechanism it pointed at, or ErrNotFound.
func (db *DB) DeleteImport(path string) (string, error) {
	var mechID string
	err := db.conn.QueryRow(`SELECT mechanism_id FROM imports WHERE path = ?`, path).Scan(&mechID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: lookup import: %w", err)
	}
	if _, err := db.conn.Exec(`DELETE FROM imports WHERE path = ?`, path); err != nil {
		return "", fmt.Errorf("store: delete import: %w", err)
	}
	return mechID, nil
}
