package telemetry

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/stackfall/config"
	"github.com/pthm-cable/stackfall/physics"
	"github.com/pthm-cable/stackfall/stack"
)

func testWorld(t *testing.T, ticks int) *stack.World {
	t.Helper()
	cfg := config.Default()
	opts := stack.OptionsFromConfig(cfg)
	opts.Backend = physics.BackendArk
	opts.Seed = 7
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	w := stack.Initialize(stack.LabelsFromConfig(cfg), stack.Size{Width: 400, Height: 300}, opts)
	t.Cleanup(w.Teardown)
	for i := 0; i < ticks; i++ {
		w.Tick(1.0 / 60)
	}
	return w
}

func TestSnapshotFromWorld(t *testing.T) {
	w := testWorld(t, 30)

	snap := SnapshotFromWorld(w, 7)
	if snap.Version != SnapshotVersion {
		t.Errorf("Version = %d, want %d", snap.Version, SnapshotVersion)
	}
	if snap.Tick != 30 {
		t.Errorf("Tick = %d, want 30", snap.Tick)
	}
	if snap.Width != 400 || snap.Height != 300 {
		t.Errorf("size = %vx%v, want 400x300", snap.Width, snap.Height)
	}
	if snap.Backend != physics.BackendArk {
		t.Errorf("Backend = %q, want %q", snap.Backend, physics.BackendArk)
	}
	if len(snap.Badges) != 14 {
		t.Fatalf("len(Badges) = %d, want 14", len(snap.Badges))
	}

	states := w.Badges(nil)
	for i, b := range snap.Badges {
		if b.ID != states[i].ID || b.X != states[i].X || b.Y != states[i].Y {
			t.Errorf("badge %d = %+v, world has %+v", i, b, states[i])
		}
	}

	labels := snap.Labels()
	if labels[0].Name != "React" || labels[0].Category != stack.CategoryFrontend {
		t.Errorf("Labels()[0] = %+v, want React/frontend", labels[0])
	}
}

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version:  SnapshotVersion,
		Seed:     42,
		Backend:  "box2d",
		Mode:     "running",
		Width:    960,
		Height:   540,
		GravityY: 0.6,
		Tick:     1000,
		Badges: []BadgeSnapshot{
			{ID: 1, Label: "Go", Category: "backend", Width: 32, Height: 24, X: 150, Y: 520, Angle: 0.1},
			{ID: 2, Label: "PostgreSQL", Category: "data", Width: 76, Height: 24, X: 300, Y: 516, Speed: 2},
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if filepath.Base(path) != "snapshot_1000.json" {
		t.Errorf("unexpected filename: %s", filepath.Base(path))
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.Seed != 42 || loaded.Tick != 1000 || loaded.GravityY != 0.6 {
		t.Errorf("header mismatch: %+v", loaded)
	}
	if len(loaded.Badges) != 2 {
		t.Fatalf("len(Badges) = %d, want 2", len(loaded.Badges))
	}
	if loaded.Badges[1] != snapshot.Badges[1] {
		t.Errorf("badge = %+v, want %+v", loaded.Badges[1], snapshot.Badges[1])
	}
}

func TestSnapshotWithBookmark(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version: SnapshotVersion,
		Tick:    5000,
		Bookmark: &Bookmark{
			Type:        BookmarkEscape,
			Tick:        5000,
			Description: "1 badges left the container",
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if filepath.Base(path) != "snapshot_5000_escape.json" {
		t.Errorf("unexpected filename: %s", filepath.Base(path))
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.Bookmark == nil || loaded.Bookmark.Type != BookmarkEscape {
		t.Errorf("bookmark not restored: %+v", loaded.Bookmark)
	}
}

func TestLoadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	data, _ := json.Marshal(Snapshot{Version: SnapshotVersion + 1})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected error for unknown version")
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
