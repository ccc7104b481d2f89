package terrain

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Axis selects which vertex component a brush moves.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AlongNormal
)

// Shape selects the brush falloff.
type Shape int

const (
	Circle Shape = iota
	Square
)

// Mode selects what a brush does to the vertices under it.
type Mode int

const (
	Raise Mode = iota
	Lower
	Flatten
)

var (
	axisNames  = [...]string{"x", "y", "z", "normal"}
	shapeNames = [...]string{"circle", "square"}
	modeNames  = [...]string{"raise", "lower", "flatten"}
)

func (a Axis) String() string { return enumName(axisNames[:], int(a)) }
func (s Shape) String() string { return enumName(shapeNames[:], int(s)) }
func (m Mode) String() string { return enumName(modeNames[:], int(m)) }

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("%d", v)
	}
	return names[v]
}

func parseEnum(names []string, kind, s string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown brush %s %q", kind, s)
}

// ParseAxis reads an axis name as printed by Axis.String.
func ParseAxis(s string) (Axis, error) {
	v, err := parseEnum(axisNames[:], "axis", s)
	return Axis(v), err
}

func ParseShape(s string) (Shape, error) {
	v, err := parseEnum(shapeNames[:], "shape", s)
	return Shape(v), err
}

func ParseMode(s string) (Mode, error) {
	v, err := parseEnum(modeNames[:], "mode", s)
	return Mode(v), err
}

// Brush describes one sculpting stroke.
type Brush struct {
	Axis     Axis
	Shape    Shape
	Mode     Mode
	Strength float32
	Radius   float32
}

// minNormalY is the smallest normal slope a flatten-along-normal stroke
// still divides by.
const minNormalY = 1e-3

// indexRange returns the vertex indices along one axis whose grid position
// lies within [center-radius, center+radius], clamped to the tile.
func indexRange(center, radius, spacing float32, verts int) (lo, hi int, ok bool) {
	lo = int(math.Ceil(float64((center - radius) / spacing)))
	hi = int(math.Floor(float64((center + radius) / spacing)))
	if hi < 0 || lo > verts-1 || lo > hi {
		return 0, 0, false
	}
	return max(lo, 0), min(hi, verts-1), true
}

func falloff(shape Shape, radius, dist float32) float32 {
	if shape == Square {
		return 1
	}
	if radius <= 0 {
		if dist == 0 {
			return 1
		}
		return 0
	}
	return max(0, 1-dist/radius)
}

// Manipulate applies b centered at rel, a position relative to the tile
// corner. It reports whether any vertex moved. Brushes outside the tile and
// tiles still waiting for their noise fill are left alone.
func (t *Tile) Manipulate(b Brush, rel mgl32.Vec3) bool {
	if t.pending != nil || t.state == Destroyed {
		return false
	}
	s := t.settings
	x0, x1, ok := indexRange(rel.X(), b.Radius, s.Spacing, s.VertsX)
	if !ok {
		return false
	}
	z0, z1, ok := indexRange(rel.Z(), b.Radius, s.Spacing, s.VertsZ)
	if !ok {
		return false
	}

	// sculpting a hidden preview brings the edits back first
	if t.hidden {
		t.AddDifference()
	}

	verts := t.mesh.Vertices
	normals := t.mesh.Normals
	changed := false
	for x := x0; x <= x1; x++ {
		for z := z0; z <= z1; z++ {
			dx := float32(x)*s.Spacing - rel.X()
			dz := float32(z)*s.Spacing - rel.Z()
			f := falloff(b.Shape, b.Radius, float32(math.Hypot(float64(dx), float64(dz))))
			if f == 0 {
				continue
			}
			i := (x*s.VertsZ + z) * 3
			var move mgl32.Vec3
			if b.Axis == AlongNormal {
				move = normalMove(b, f, verts[i+1], mgl32.Vec3{normals[i], normals[i+1], normals[i+2]})
			} else {
				c := int(b.Axis)
				move[c] = axisMove(b, f, verts[i+c])
			}
			if move == (mgl32.Vec3{}) {
				continue
			}
			for c := 0; c < 3; c++ {
				if move[c] == 0 {
					continue
				}
				t.delta[i+c] += move[c]
				verts[i+c] = t.base[i+c] + t.delta[i+c]
			}
			changed = true
		}
	}
	if !changed {
		return false
	}

	t.hasEdits = true
	t.mesh.refresh()
	t.dirty = true
	t.syncState()
	return true
}

func axisMove(b Brush, f, current float32) float32 {
	switch b.Mode {
	case Raise:
		return b.Strength * f
	case Lower:
		return -b.Strength * f
	case Flatten:
		return f * (b.Strength - current)
	}
	return 0
}

// normalMove moves a vertex along n. Flatten walks along n until y reaches
// the brush strength.
func normalMove(b Brush, f, y float32, n mgl32.Vec3) mgl32.Vec3 {
	switch b.Mode {
	case Raise:
		return n.Mul(b.Strength * f)
	case Lower:
		return n.Mul(-b.Strength * f)
	case Flatten:
		if float32(math.Abs(float64(n.Y()))) < minNormalY {
			return mgl32.Vec3{}
		}
		return n.Mul(f * (b.Strength - y) / n.Y())
	}
	return mgl32.Vec3{}
}
