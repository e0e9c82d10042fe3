// Package testutil provides shared test helpers for setting up stores
// and mechanism fixtures.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/raido/internal/model"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDesigns creates a temporary designs directory with a storage.Provider.
func TestDesigns(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	designs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, designs
}

// FourBar returns a Grashof crank-rocker four-bar linkage. The crank
// turns about the origin with radius 0.25, the rocker swings about
// (2, 0) with length 2, and the coupler is 2.658 long, so the free
// joint stays on the upper circle-intersection branch for every crank
// angle. The closed-form pose is easy to compute, which makes this the
// reference fixture for solver tests.
func FourBar() *model.Mechanism {
	return &model.Mechanism{
		Name: "four-bar",
		Joints: []model.Joint{
			{X: 0, Y: 0, Kind: model.Fixed},
			{X: 2, Y: 0, Kind: model.Fixed},
			{X: 0.25, Y: 0, Kind: model.Driven, Pivot: &model.Pivot{Cx: 0, Cy: 0, Radius: 0.25}},
			{X: 2, Y: 2, Kind: model.Free},
		},
		Links: []model.Link{
			{A: 0, B: 2, Protected: true},
			{A: 2, B: 3, Length: 2.658},
			{A: 3, B: 1, Length: 2},
		},
	}
}

// StrandbeestLeg returns one leg of Theo Jansen's Strandbeest walker
// in its classic proportions. Joint 6 is the foot.
func StrandbeestLeg() *model.Mechanism {
	return &model.Mechanism{
		Name: "strandbeest-leg",
		Joints: []model.Joint{
			{X: 0, Y: 0, Kind: model.Fixed},
			{X: 38, Y: 7.81, Kind: model.Fixed},
			{X: 49.73, Y: -1.55, Kind: model.Driven, Pivot: &model.Pivot{Cx: 38, Cy: 7.81}},
			{X: 18.2, Y: 37.3, Kind: model.Free},
			{X: -34.82, Y: 19.9, Kind: model.Free},
			{X: -30.5, Y: -19.22, Kind: model.Free},
			{X: -19.33, Y: -84.03, Kind: model.Free},
			{X: 0.67, Y: -39.3, Kind: model.Free},
		},
		Links: []model.Link{
			{A: 1, B: 2, Protected: true},
			{A: 3, B: 2},
			{A: 3, B: 4},
			{A: 5, B: 4},
			{A: 5, B: 6},
			{A: 7, B: 6},
			{A: 7, B: 2},
			{A: 7, B: 5},
			{A: 0, B: 7},
			{A: 0, B: 4},
			{A: 0, B: 3},
		},
	}
}
