package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"terraining/internal/terrain"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != Default() {
		t.Errorf("expected defaults, got %+v", c)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terraining.yaml")
	raw := "window:\n  width: 800\nterrain:\n  verts: 9\n  seed: 1234\nframe_budget_ms: 7\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Window.Width != 800 || c.Window.Height != 720 {
		t.Errorf("window %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.FrameBudget() != 7*time.Millisecond {
		t.Errorf("frame budget %v", c.FrameBudget())
	}
	s := c.TerrainSettings()
	if s.VertsX != 9 || s.VertsZ != 9 || s.Spacing != 1 {
		t.Errorf("terrain settings %+v", s)
	}
	if ns := c.NoiseSettings(); ns.Seed != 1234 || len(ns.Layers) != 3 {
		t.Errorf("noise settings %+v", ns)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("terrain:\n  verts: 1\n  spacing: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected a validation error")
	}
	if err := os.WriteFile(path, []byte("window: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected a parse error")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	c := Default()
	c.Camera.Speed = 12.5
	c.JournalPath = "j.db"
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back != c {
		t.Errorf("round trip gave %+v", back)
	}
}

func TestBrushClamps(t *testing.T) {
	prev := GetBrush()
	defer func() {
		SetBrushAxis(prev.Axis)
		SetBrushShape(prev.Shape)
		SetBrushMode(prev.Mode)
		SetBrushStrength(prev.Strength)
		SetBrushRadius(prev.Radius)
	}()

	SetBrushStrength(1000)
	SetBrushRadius(0)
	b := GetBrush()
	if b.Strength != 100 || b.Radius != 0.25 {
		t.Errorf("unclamped brush %+v", b)
	}

	SetBrushAxis(terrain.AlongNormal)
	if got := CycleBrushAxis(); got != terrain.AxisX {
		t.Errorf("axis after normal = %v", got)
	}
	SetBrushShape(terrain.Circle)
	if got := ToggleBrushShape(); got != terrain.Square {
		t.Errorf("toggle gave %v", got)
	}
}
