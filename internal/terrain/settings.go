package terrain

import (
	"errors"
	"fmt"
)

// Settings configures the tile window. Tiles receive it by value.
type Settings struct {
	SpawnRadius float32 // radius of the disc around the focus that keeps tiles alive
	MaxTiles    int     // maximum number of live tiles

	VertsX  int     // vertices along x per tile
	VertsZ  int     // vertices along z per tile
	Spacing float32 // distance between neighbouring vertices

	AsyncRegen       bool    // fill tile noise on the worker pool
	FollowFocus      bool    // track the focus provider
	RelocateDistance float32 // focus drift that triggers a new relocate
}

// DefaultSettings returns the settings the viewer starts with.
func DefaultSettings() Settings {
	return Settings{
		SpawnRadius:      200,
		MaxTiles:         500,
		VertsX:           20,
		VertsZ:           20,
		Spacing:          1,
		AsyncRegen:       true,
		FollowFocus:      true,
		RelocateDistance: 10,
	}
}

// TileWidth is the world extent of one tile along x.
func (s Settings) TileWidth() float32 {
	return float32(s.VertsX-1) * s.Spacing
}

// TileDepth is the world extent of one tile along z.
func (s Settings) TileDepth() float32 {
	return float32(s.VertsZ-1) * s.Spacing
}

// VertexCount is the number of vertices in one tile.
func (s Settings) VertexCount() int {
	return s.VertsX * s.VertsZ
}

// Validate rejects settings no tile can be built from.
func (s Settings) Validate() error {
	var errs []error
	if s.VertsX < 2 || s.VertsZ < 2 {
		errs = append(errs, fmt.Errorf("tile needs at least 2x2 vertices, got %dx%d", s.VertsX, s.VertsZ))
	}
	if !(s.Spacing > 0) {
		errs = append(errs, fmt.Errorf("vertex spacing must be positive, got %v", s.Spacing))
	}
	if s.SpawnRadius < 0 {
		errs = append(errs, fmt.Errorf("spawn radius must not be negative, got %v", s.SpawnRadius))
	}
	if s.MaxTiles < 0 {
		errs = append(errs, fmt.Errorf("max tile count must not be negative, got %d", s.MaxTiles))
	}
	if s.RelocateDistance < 0 {
		errs = append(errs, fmt.Errorf("relocate distance must not be negative, got %v", s.RelocateDistance))
	}
	if len(errs) > 0 {
		return fmt.Errorf("terrain settings: %w", errors.Join(errs...))
	}
	return nil
}

// needsRebuild reports whether moving from s to next changes tile geometry.
func (s Settings) needsRebuild(next Settings) bool {
	return s.VertsX != next.VertsX || s.VertsZ != next.VertsZ || s.Spacing != next.Spacing
}
