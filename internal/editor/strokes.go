package editor

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"terraining/internal/terrain"
)

// StrokeSpec is one scripted brush stroke.
type StrokeSpec struct {
	X        float32 `yaml:"x"`
	Y        float32 `yaml:"y"`
	Z        float32 `yaml:"z"`
	Axis     string  `yaml:"axis"`
	Shape    string  `yaml:"shape"`
	Mode     string  `yaml:"mode"`
	Strength float32 `yaml:"strength"`
	Radius   float32 `yaml:"radius"`
	Repeat   int     `yaml:"repeat"`
}

// Brush converts the stroke. Empty names default to y, circle and raise.
func (s StrokeSpec) Brush() (terrain.Brush, error) {
	b := terrain.Brush{Axis: terrain.AxisY, Shape: terrain.Circle, Mode: terrain.Raise, Strength: s.Strength, Radius: s.Radius}
	var err error
	if s.Axis != "" {
		if b.Axis, err = terrain.ParseAxis(s.Axis); err != nil {
			return b, err
		}
	}
	if s.Shape != "" {
		if b.Shape, err = terrain.ParseShape(s.Shape); err != nil {
			return b, err
		}
	}
	if s.Mode != "" {
		if b.Mode, err = terrain.ParseMode(s.Mode); err != nil {
			return b, err
		}
	}
	return b, nil
}

// LoadStrokes reads a YAML list of strokes.
func LoadStrokes(path string) ([]StrokeSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var specs []StrokeSpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i, s := range specs {
		if _, err := s.Brush(); err != nil {
			return nil, fmt.Errorf("%s: stroke %d: %w", path, i, err)
		}
	}
	return specs, nil
}

// ApplyStrokes runs every stroke in order, Repeat times each (at least once),
// and returns the total number of tile changes.
func (e *Editor) ApplyStrokes(specs []StrokeSpec) (int, error) {
	total := 0
	for i, s := range specs {
		b, err := s.Brush()
		if err != nil {
			return total, fmt.Errorf("stroke %d: %w", i, err)
		}
		for n := 0; n < max(s.Repeat, 1); n++ {
			total += e.Apply(b, mgl32.Vec3{s.X, s.Y, s.Z})
		}
	}
	return total, nil
}
