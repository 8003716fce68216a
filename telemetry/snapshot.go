package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/stackfall/stack"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the layout state of one world at one tick.
type Snapshot struct {
	Version int    `json:"version"`
	Seed    int64  `json:"seed"`
	Backend string `json:"backend"`
	Mode    string `json:"mode"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	GravityX float64 `json:"gravity_x"`
	GravityY float64 `json:"gravity_y"`

	Tick uint64 `json:"tick"`

	Badges []BadgeSnapshot `json:"badges"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// BadgeSnapshot holds one badge's pose.
type BadgeSnapshot struct {
	ID       uint32  `json:"id"`
	Label    string  `json:"label"`
	Category string  `json:"category"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	Speed    float64 `json:"speed"`
}

// SnapshotFromWorld captures the world's current layout.
func SnapshotFromWorld(w *stack.World, seed int64) *Snapshot {
	bounds := w.Bounds()
	g := w.Gravity()
	states := w.Badges(nil)
	speeds := w.Speeds(nil)

	s := &Snapshot{
		Version:  SnapshotVersion,
		Seed:     seed,
		Backend:  w.BackendName(),
		Mode:     w.Mode().String(),
		Width:    bounds.Width,
		Height:   bounds.Height,
		GravityX: g.X,
		GravityY: g.Y,
		Tick:     w.Ticks(),
		Badges:   make([]BadgeSnapshot, len(states)),
	}
	for i, b := range states {
		s.Badges[i] = BadgeSnapshot{
			ID:       b.ID,
			Label:    b.Label,
			Category: b.Category.String(),
			Width:    b.Width,
			Height:   b.Height,
			X:        b.X,
			Y:        b.Y,
			Angle:    b.Angle,
		}
		if i < len(speeds) {
			s.Badges[i].Speed = speeds[i]
		}
	}
	return s
}

// Labels returns the snapshot's badge labels in ID order.
func (s *Snapshot) Labels() []stack.Label {
	labels := make([]stack.Label, len(s.Badges))
	for i, b := range s.Badges {
		labels[i] = stack.Label{Name: b.Label, Category: stack.ParseCategory(b.Category)}
	}
	return labels
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
