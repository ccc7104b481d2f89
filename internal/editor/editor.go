// Package editor holds the sculpting session shared by the viewer and the
// command line tools: brush strokes, edit preview, saving and journaling.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/journal"
	"terraining/internal/noise"
	"terraining/internal/physics"
	"terraining/internal/terrain"
)

// DefaultStrokeInterval limits how often a held mouse button sculpts.
const DefaultStrokeInterval = 30 * time.Millisecond

// ErrNoJournal is returned by Restore when the editor has no journal.
var ErrNoJournal = errors.New("editor: no journal attached")

// Editor drives one terrain manager.
type Editor struct {
	terrain *terrain.Manager
	journal *journal.Journal
	docPath string

	StrokeInterval time.Duration
	lastStroke     time.Time
}

// OpenTerrain loads the document at path, or creates a manager from s and ns
// when the file does not exist yet. The bool reports whether a file was loaded.
func OpenTerrain(path string, s terrain.Settings, ns noise.Settings) (*terrain.Manager, bool, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			m, err := terrain.LoadFile(path)
			return m, err == nil, err
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, false, err
		}
	}
	m, err := terrain.New(s, ns)
	return m, false, err
}

// New wraps m. j may be nil.
func New(m *terrain.Manager, docPath string, j *journal.Journal) *Editor {
	return &Editor{
		terrain:        m,
		journal:        j,
		docPath:        docPath,
		StrokeInterval: DefaultStrokeInterval,
	}
}

func (e *Editor) Terrain() *terrain.Manager { return e.terrain }

// Pick returns the terrain point hit by ray.
func (e *Editor) Pick(ray physics.Ray) (mgl32.Vec3, bool) {
	hit := e.terrain.RayCollision(ray)
	return hit.Point, hit.Hit
}

// Invert swaps raising and lowering. Flatten is unchanged.
func Invert(b terrain.Brush) terrain.Brush {
	switch b.Mode {
	case terrain.Raise:
		b.Mode = terrain.Lower
	case terrain.Lower:
		b.Mode = terrain.Raise
	}
	return b
}

// Stroke applies b where ray meets the terrain, at most once per
// StrokeInterval. It returns the number of tiles changed.
func (e *Editor) Stroke(ray physics.Ray, b terrain.Brush, now time.Time) int {
	if !e.lastStroke.IsZero() && now.Sub(e.lastStroke) < e.StrokeInterval {
		return 0
	}
	p, ok := e.Pick(ray)
	if !ok {
		return 0
	}
	e.lastStroke = now
	return e.Apply(b, p)
}

// Apply sculpts at the world position p. Hidden edits are shown again first
// so the stroke lands on the visible surface.
func (e *Editor) Apply(b terrain.Brush, p mgl32.Vec3) int {
	return e.terrain.ManipulateTerrain(b, p)
}

// EndStroke lets the next Stroke run immediately.
func (e *Editor) EndStroke() {
	e.lastStroke = time.Time{}
}

// TogglePreview hides or shows every edit and reports whether edits are hidden.
func (e *Editor) TogglePreview() bool {
	if e.terrain.EditsHidden() {
		e.terrain.AddDifference()
	} else {
		e.terrain.RemoveDifference()
	}
	return e.terrain.EditsHidden()
}

// ClearEdits drops every live edit.
func (e *Editor) ClearEdits() {
	e.terrain.ClearDifference()
	log.Printf("editor: edits cleared")
}

// Reseed regenerates the noise with a new seed, keeping the layers and edits.
func (e *Editor) Reseed(seed int64) {
	ns := e.terrain.NoiseSettings()
	ns.Seed = seed
	e.terrain.SetNoiseSettings(ns)
}

// ToggleFollow switches whether the tile window follows the focus.
func (e *Editor) ToggleFollow() (bool, error) {
	s := e.terrain.Settings()
	s.FollowFocus = !s.FollowFocus
	if err := e.terrain.SetSettings(s); err != nil {
		return !s.FollowFocus, err
	}
	return s.FollowFocus, nil
}

// Save writes the terrain document and, with a journal attached, records the
// edits as a new revision. The returned revision is zero without a journal.
func (e *Editor) Save(ctx context.Context, note string) (journal.Revision, error) {
	if e.docPath != "" {
		if err := e.terrain.SaveFile(e.docPath); err != nil {
			return journal.Revision{}, err
		}
	}
	if e.journal == nil {
		return journal.Revision{}, nil
	}
	rev, err := e.journal.Record(ctx, note, e.terrain.EditSnapshot())
	if err != nil {
		return journal.Revision{}, fmt.Errorf("editor: %w", err)
	}
	return rev, nil
}

// Restore replaces the edits with the latest journal revision.
func (e *Editor) Restore(ctx context.Context) (journal.Revision, error) {
	if e.journal == nil {
		return journal.Revision{}, ErrNoJournal
	}
	rev, err := e.journal.Restore(ctx, e.terrain)
	if err != nil {
		return journal.Revision{}, err
	}
	return rev, nil
}
