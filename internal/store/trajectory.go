package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	curve "honnef.co/go/curve"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/kinematics"
)

// SaveTrajectory stores t as the single cached trajectory for its
// mechanism, atomically replacing any previous entry (delete + insert
// in one transaction; readers never observe a partial overwrite).
func (db *DB) SaveTrajectory(t *kinematics.Trajectory) error {
	if t.MechanismID == "" {
		return fmt.Errorf("%w: trajectory has no mechanism id; save the mechanism first", apperr.ErrUsage)
	}
	thetas, err := json.Marshal(t.Thetas)
	if err != nil {
		return fmt.Errorf("store: marshal thetas: %w", err)
	}
	frames, err := json.Marshal(packFrames(t.Frames))
	if err != nil {
		return fmt.Errorf("store: marshal frames: %w", err)
	}
	converged, err := json.Marshal(t.Converged)
	if err != nil {
		return fmt.Errorf("store: marshal converged: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM trajectories WHERE mechanism_id = ?`, t.MechanismID)
	_, err = tx.Exec(`
		INSERT INTO trajectories (mechanism_id, mechanism_version, steps, thetas, frames, converged, fail_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.MechanismID, t.MechanismVersion, t.Steps, string(thetas), string(frames), string(converged), t.FailCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: insert trajectory: %w", err)
	}
	return tx.Commit()
}

// LoadTrajectory returns the cached trajectory for mechanismID, but
// only when the stored mechanism version matches version AND the stored
// step count matches steps; either mismatch is ErrCacheMiss and the
// caller recomputes. steps == 0 accepts whatever step count is stored,
// for consumers that only want the latest computed run.
func (db *DB) LoadTrajectory(mechanismID string, version, steps int) (*kinematics.Trajectory, error) {
	var (
		t                         kinematics.Trajectory
		thetas, frames, converged string
	)
	err := db.conn.QueryRow(`
		SELECT mechanism_id, mechanism_version, steps, thetas, frames, converged, fail_count
		FROM trajectories WHERE mechanism_id = ?
	`, mechanismID).Scan(&t.MechanismID, &t.MechanismVersion, &t.Steps, &thetas, &frames, &converged, &t.FailCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("store: load trajectory: %w", err)
	}

	if t.MechanismVersion != version {
		return nil, apperr.ErrCacheMiss
	}
	if steps != 0 && t.Steps != steps {
		return nil, apperr.ErrCacheMiss
	}

	if err := json.Unmarshal([]byte(thetas), &t.Thetas); err != nil {
		return nil, fmt.Errorf("store: unmarshal thetas: %w", err)
	}
	var packed [][][2]float64
	if err := json.Unmarshal([]byte(frames), &packed); err != nil {
		return nil, fmt.Errorf("store: unmarshal frames: %w", err)
	}
	t.Frames = unpackFrames(packed)
	if err := json.Unmarshal([]byte(converged), &t.Converged); err != nil {
		return nil, fmt.Errorf("store: unmarshal converged: %w", err)
	}
	// Rows written before the flags were stored carry an empty list;
	// only clean runs were ever cached, so every frame converged.
	if len(t.Converged) == 0 && t.FailCount == 0 {
		t.Converged = make([]bool, len(t.Frames))
		for i := range t.Converged {
			t.Converged[i] = true
		}
	}
	return &t, nil
}

// DeleteTrajectory removes the cached trajectory for a mechanism, if
// any.
func (db *DB) DeleteTrajectory(mechanismID string) error {
	if _, err := db.conn.Exec(`DELETE FROM trajectories WHERE mechanism_id = ?`, mechanismID); err != nil {
		return fmt.Errorf("store: delete trajectory: %w", err)
	}
	return nil
}

// packFrames flattens points to (x, y) pairs for compact JSON storage.
func packFrames(frames [][]curve.Point) [][][2]float64 {
	out := make([][][2]float64, len(frames))
	for i, frame := range frames {
		out[i] = make([][2]float64, len(frame))
		for j, p := range frame {
			out[i][j] = [2]float64{p.X, p.Y}
		}
	}
	return out
}

func unpackFrames(packed [][][2]float64) [][]curve.Point {
	out := make([][]curve.Point, len(packed))
	for i, frame := range packed {
		out[i] = make([]curve.Point, len(frame))
		for j, xy := range frame {
			out[i][j] = curve.Pt(xy[0], xy[1])
		}
	}
	return out
}
