package config

import (
	"sync"

	"terraining/internal/terrain"
)

// BrushSettings holds the sculpting brush the viewer applies on click.
type BrushSettings struct {
	mu       sync.RWMutex
	axis     terrain.Axis
	shape    terrain.Shape
	mode     terrain.Mode
	strength float32
	radius   float32
}

var globalBrushSettings = &BrushSettings{
	axis:     terrain.AxisY,
	shape:    terrain.Circle,
	mode:     terrain.Raise,
	strength: 0.5,
	radius:   6,
}

// GetBrush returns a copy of the current brush
func GetBrush() terrain.Brush {
	globalBrushSettings.mu.RLock()
	defer globalBrushSettings.mu.RUnlock()
	return terrain.Brush{
		Axis:     globalBrushSettings.axis,
		Shape:    globalBrushSettings.shape,
		Mode:     globalBrushSettings.mode,
		Strength: globalBrushSettings.strength,
		Radius:   globalBrushSettings.radius,
	}
}

// SetBrushAxis sets the direction vertices move in
func SetBrushAxis(axis terrain.Axis) {
	globalBrushSettings.mu.Lock()
	defer globalBrushSettings.mu.Unlock()
	globalBrushSettings.axis = axis
}

// CycleBrushAxis advances to the next axis and returns it
func CycleBrushAxis() terrain.Axis {
	globalBrushSettings.mu.Lock()
	defer globalBrushSettings.mu.Unlock()
	globalBrushSettings.axis = (globalBrushSettings.axis + 1) % (terrain.AlongNormal + 1)
	return globalBrushSettings.axis
}

// SetBrushShape sets the brush footprint
func SetBrushShape(shape terrain.Shape) {
	globalBrushSettings.mu.Lock()
	defer globalBrushSettings.mu.Unlock()
	globalBrushSettings.shape = shape
}

// ToggleBrushShape switches between circle and square and returns the new shape
func ToggleBrushShape() terrain.Shape {
	globalBrushSettings.mu.Lock()
	defer globalBrushSettings.mu.Unlock()
	if globalBrushSettings.shape == terrain.Circle {
		globalBrushSettings.shape = terrain.Square
	} else {
		globalBrushSettings.shape = terrain.Circle
	}
	return globalBrushSettings.shape
}

// SetBrushMode sets how the brush moves vertices
func SetBrushMode(mode terrain.Mode) {
	globalBrushSettings.mu.Lock()
	defer globalBrushSettings.mu.Unlock()
	globalBrushSettings.mode = mode
}

// SetBrushStrength sets the brush strength
func SetBrushStrength(strength float32) {
	globalBrushSettings.mu.Lock()
	defer globalBrushSettings.mu.Unlock()

	// Clamp to reasonable values
	if strength < -100 {
		strength = -100
	}
	if strength > 100 {
		strength = 100
	}

	globalBrushSettings.strength = strength
}

// SetBrushRadius sets the brush radius in world units
func SetBrushRadius(radius float32) {
	globalBrushSettings.mu.Lock()
	defer globalBrushSettings.mu.Unlock()

	if radius < 0.25 {
		radius = 0.25
	}
	if radius > 200 {
		radius = 200
	}

	globalBrushSettings.radius = radius
}
