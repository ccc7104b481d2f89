package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/journal"
	"terraining/internal/noise"
	"terraining/internal/physics"
	"terraining/internal/terrain"
)

func testSettings() terrain.Settings {
	return terrain.Settings{SpawnRadius: 10, MaxTiles: 50, VertsX: 5, VertsZ: 5, Spacing: 1, RelocateDistance: 2}
}

func flatEditor(t *testing.T, docPath string, j *journal.Journal) *Editor {
	t.Helper()
	m, err := terrain.New(testSettings(), noise.Settings{Seed: 1})
	if err != nil {
		t.Fatalf("terrain.New: %v", err)
	}
	m.Relocate(mgl32.Vec3{})
	return New(m, docPath, j)
}

func downAt(x, z float32) physics.Ray {
	return physics.Ray{Position: mgl32.Vec3{x, 20, z}, Direction: mgl32.Vec3{0, -1, 0}}
}

var raise = terrain.Brush{Axis: terrain.AxisY, Shape: terrain.Square, Mode: terrain.Raise, Strength: 1, Radius: 0.5}

func TestStrokeRateLimit(t *testing.T) {
	e := flatEditor(t, "", nil)
	now := time.Unix(100, 0)

	if n := e.Stroke(downAt(2.5, 2.5), raise, now); n == 0 {
		t.Fatalf("first stroke should sculpt")
	}
	if n := e.Stroke(downAt(2.5, 2.5), raise, now.Add(5*time.Millisecond)); n != 0 {
		t.Errorf("stroke inside the interval should be skipped")
	}
	if n := e.Stroke(downAt(2.5, 2.5), raise, now.Add(e.StrokeInterval)); n == 0 {
		t.Errorf("stroke after the interval should sculpt")
	}
	e.EndStroke()
	if n := e.Stroke(downAt(2.5, 2.5), raise, now.Add(e.StrokeInterval+time.Millisecond)); n == 0 {
		t.Errorf("stroke after EndStroke should sculpt")
	}

	up := physics.Ray{Position: mgl32.Vec3{2, 20, 2}, Direction: mgl32.Vec3{0, 1, 0}}
	if n := e.Stroke(up, raise, now.Add(time.Hour)); n != 0 {
		t.Errorf("a ray missing the terrain must not sculpt")
	}
}

func TestInvert(t *testing.T) {
	if Invert(raise).Mode != terrain.Lower {
		t.Errorf("raise should invert to lower")
	}
	b := raise
	b.Mode = terrain.Flatten
	if Invert(b).Mode != terrain.Flatten {
		t.Errorf("flatten should stay flatten")
	}
}

func TestPreviewToggle(t *testing.T) {
	e := flatEditor(t, "", nil)
	e.Apply(raise, mgl32.Vec3{2, 0, 2})
	p, ok := e.Pick(downAt(2, 2))
	if !ok || p.Y() != 1 {
		t.Fatalf("expected the raised vertex under the ray, got %v %v", p, ok)
	}

	if !e.TogglePreview() {
		t.Fatalf("first toggle should hide edits")
	}
	if p, _ := e.Pick(downAt(2, 2)); p.Y() != 0 {
		t.Errorf("hidden edits still visible at %v", p)
	}

	// sculpting shows the edits again
	e.Apply(raise, mgl32.Vec3{2, 0, 2})
	if p, _ := e.Pick(downAt(2, 2)); p.Y() != 2 {
		t.Errorf("expected both strokes after sculpting, got %v", p)
	}
	if e.TogglePreview() != true {
		t.Errorf("toggle after sculpting should hide again")
	}
}

func TestSaveRestoreJournal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	j, err := journal.Open(filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer j.Close()

	doc := filepath.Join(dir, "terrain.yaml")
	e := flatEditor(t, doc, j)
	e.Apply(raise, mgl32.Vec3{2, 0, 2})

	rev, err := e.Save(ctx, "first")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rev.Tiles != 1 {
		t.Errorf("revision holds %d tiles", rev.Tiles)
	}
	if _, err := os.Stat(doc); err != nil {
		t.Errorf("document not written: %v", err)
	}

	e.ClearEdits()
	if _, err := e.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if p, _ := e.Pick(downAt(2, 2)); p.Y() != 1 {
		t.Errorf("restored height %v", p.Y())
	}

	m, loaded, err := OpenTerrain(doc, testSettings(), noise.Settings{})
	if err != nil || !loaded {
		t.Fatalf("OpenTerrain: loaded=%v err=%v", loaded, err)
	}
	if len(m.EditSnapshot()) != 1 {
		t.Errorf("reopened document has %d edited tiles", len(m.EditSnapshot()))
	}
}

func TestRestoreWhileHidden(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	j, err := journal.Open(filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer j.Close()

	e := flatEditor(t, filepath.Join(dir, "terrain.json"), j)
	e.Apply(raise, mgl32.Vec3{2, 0, 2})
	if _, err := e.Save(ctx, "raised"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !e.TogglePreview() {
		t.Fatalf("toggle should hide edits")
	}

	if _, err := e.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if p, _ := e.Pick(downAt(2, 2)); p.Y() != 1 {
		t.Errorf("restored edit not visible, height %v", p.Y())
	}
	if !e.TogglePreview() {
		t.Errorf("first toggle after restore should hide edits")
	}
	if p, _ := e.Pick(downAt(2, 2)); p.Y() != 0 {
		t.Errorf("edits still visible after hiding, height %v", p.Y())
	}
}

func TestRestoreWithoutJournal(t *testing.T) {
	e := flatEditor(t, "", nil)
	if _, err := e.Restore(context.Background()); !errors.Is(err, ErrNoJournal) {
		t.Errorf("expected ErrNoJournal, got %v", err)
	}
	if rev, err := e.Save(context.Background(), ""); err != nil || rev.Tiles != 0 {
		t.Errorf("save without journal or path: %+v %v", rev, err)
	}
}

func TestOpenTerrainMissingFile(t *testing.T) {
	m, loaded, err := OpenTerrain(filepath.Join(t.TempDir(), "none.json"), testSettings(), noise.Settings{Seed: 4})
	if err != nil || loaded {
		t.Fatalf("loaded=%v err=%v", loaded, err)
	}
	if m.NoiseSettings().Seed != 4 {
		t.Errorf("new manager ignores the given noise settings")
	}
}

func TestReseedAndFollow(t *testing.T) {
	e := flatEditor(t, "", nil)
	e.Reseed(99)
	if e.Terrain().NoiseSettings().Seed != 99 {
		t.Errorf("seed not applied")
	}
	on, err := e.ToggleFollow()
	if err != nil || !on || !e.Terrain().Settings().FollowFocus {
		t.Errorf("follow toggle: %v %v", on, err)
	}
}

func TestLoadStrokes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strokes.yaml")
	raw := `
- {x: 2, z: 2, shape: square, mode: raise, strength: 1, radius: 0.5, repeat: 3}
- {x: 2, z: 2, axis: y, mode: lower, strength: 1, radius: 0.5}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	specs, err := LoadStrokes(path)
	if err != nil {
		t.Fatalf("LoadStrokes: %v", err)
	}
	if len(specs) != 2 || specs[0].Repeat != 3 {
		t.Fatalf("unexpected specs %+v", specs)
	}

	e := flatEditor(t, "", nil)
	if n, err := e.ApplyStrokes(specs); err != nil || n != 4 {
		t.Errorf("ApplyStrokes = %d, %v", n, err)
	}
	if p, _ := e.Pick(downAt(2, 2)); p.Y() != 2 {
		t.Errorf("height after strokes %v, want 2", p.Y())
	}

	if err := os.WriteFile(path, []byte("- {mode: smudge}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadStrokes(path); err == nil {
		t.Errorf("unknown mode should fail")
	}
}
