package importer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_NewFileImported(t *testing.T) {
	dir, designs, db := syncTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, designs, dir, quietLogger(), func(kind, id string) {
		mu.Lock()
		events = append(events, kind)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "four-bar.yaml"), []byte(fourBarDesign), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mechs, _ := db.ListMechanisms("")
		return len(mechs) == 1
	}, "new design not imported by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) > 0
	}, "expected an import callback")

	mu.Lock()
	defer mu.Unlock()
	if events[0] != "mechanism.created" {
		t.Errorf("first event = %q, want mechanism.created", events[0])
	}
}

// A design file can show up as a Create event with no content yet, the
// bytes arriving only in a later Write event. The first successful
// import must still be reported as a creation.
func TestWatch_EmptyCreateThenWriteReportsCreated(t *testing.T) {
	dir, designs, db := syncTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, designs, dir, quietLogger(), func(kind, id string) {
		mu.Lock()
		events = append(events, kind)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "slow.yaml")
	_ = os.WriteFile(path, nil, 0o644)
	time.Sleep(150 * time.Millisecond)
	_ = os.WriteFile(path, []byte(fourBarDesign), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mechs, _ := db.ListMechanisms("")
		return len(mechs) == 1
	}, "design not imported after its content arrived")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) > 0
	}, "expected an import callback")

	mu.Lock()
	defer mu.Unlock()
	if events[0] != "mechanism.created" {
		t.Errorf("first event = %q, want mechanism.created", events[0])
	}
}

func TestWatch_NewDirWatched(t *testing.T) {
	dir, designs, db := syncTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, designs, dir, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(dir, "legs")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(300 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.yaml"), []byte(fourBarDesign), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mechs, _ := db.ListMechanisms("")
		return len(mechs) == 1
	}, "design in new subdir not imported by watcher")
}

func TestWatch_RemoveDeletesMechanism(t *testing.T) {
	dir, designs, db := syncTestEnv(t)
	path := filepath.Join(dir, "del.yaml")
	_ = os.WriteFile(path, []byte(fourBarDesign), 0o644)
	if err := Sync(db, designs, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var deleted []string

	go Watch(ctx, db, designs, dir, quietLogger(), func(kind, id string) {
		if kind == "mechanism.deleted" {
			mu.Lock()
			deleted = append(deleted, id)
			mu.Unlock()
		}
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(path)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mechs, _ := db.ListMechanisms("")
		return len(mechs) == 0
	}, "mechanism not removed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(deleted) == 1
	}, "expected deleted callback")
}

func TestWatch_EditBumpsVersion(t *testing.T) {
	dir, designs, db := syncTestEnv(t)
	path := filepath.Join(dir, "four-bar.yaml")
	_ = os.WriteFile(path, []byte(fourBarDesign), 0o644)
	if err := Sync(db, designs, quietLogger()); err != nil {
		t.Fatal(err)
	}
	mechs, _ := db.ListMechanisms("")
	id := mechs[0].ID

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, designs, dir, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	edited := fourBarDesign[:len(fourBarDesign)-len("length: 2}\n")] + "length: 2.2}\n"
	_ = os.WriteFile(path, []byte(edited), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		m, err := db.GetMechanism(id)
		return err == nil && m.Version == 2
	}, "edit did not bump the mechanism version")
}
