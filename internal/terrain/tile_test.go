package terrain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/noise"
	"terraining/internal/workers"
)

func smallSettings() Settings {
	return Settings{
		SpawnRadius:      10,
		MaxTiles:         50,
		VertsX:           5,
		VertsZ:           5,
		Spacing:          1,
		RelocateDistance: 2,
	}
}

func testNoise() noise.Settings {
	ns := noise.DefaultSettings()
	ns.Seed = 77
	return ns
}

// flatTile returns a filled tile at the origin whose procedural heights are all zero.
func flatTile(s Settings) *Tile {
	tile := NewTile(s, CoordFromIndex(0, 0), nil, false)
	tile.ApplyNoise(noise.Settings{Seed: 1})
	return tile
}

func height(tile *Tile, x, z int) float32 {
	return tile.mesh.Vertices[(x*tile.settings.VertsZ+z)*3+1]
}

func TestTileGeometry(t *testing.T) {
	s := smallSettings()
	tile := NewTile(s, TileCoord{X: 1, I: -1, Z: 0, N: 1}, nil, false)

	if pos := tile.Position(); pos != (mgl32.Vec3{-8, 0, 0}) {
		t.Errorf("unexpected position %v", pos)
	}
	if tile.State() != MeshBuilt {
		t.Errorf("expected %v, got %v", MeshBuilt, tile.State())
	}
	m := tile.Mesh()
	if len(m.Vertices) != 75 || len(m.Normals) != 75 || len(m.Texcoords) != 50 {
		t.Errorf("unexpected buffer sizes %d %d %d", len(m.Vertices), len(m.Normals), len(m.Texcoords))
	}
	if len(m.Indices) != 4*4*6 {
		t.Errorf("expected 96 indices, got %d", len(m.Indices))
	}
	// vertex (4, 3) is x-major at index 4*5+3
	i := (4*5 + 3) * 3
	if m.Vertices[i] != -4 || m.Vertices[i+2] != 3 {
		t.Errorf("vertex (4,3) at (%v, %v)", m.Vertices[i], m.Vertices[i+2])
	}
	if u, v := m.Texcoords[(4*5+3)*2], m.Texcoords[(4*5+3)*2+1]; u != 1 || v != 0.75 {
		t.Errorf("texcoord of (4,3) = (%v, %v)", u, v)
	}
	for n := 0; n < len(m.Normals); n += 3 {
		if math.Abs(float64(m.Normals[n+1]-1)) > 1e-6 || m.Normals[n] != 0 || m.Normals[n+2] != 0 {
			t.Fatalf("flat tile normal %d not up: %v", n/3, m.Normals[n:n+3])
		}
	}
}

func TestManipulateSquareRaise(t *testing.T) {
	tile := flatTile(smallSettings())
	b := Brush{Axis: AxisY, Shape: Square, Mode: Raise, Strength: 2, Radius: 1}

	if !tile.Manipulate(b, mgl32.Vec3{2, 0, 2}) {
		t.Fatalf("expected the brush to change the tile")
	}
	for x := 0; x < 5; x++ {
		for z := 0; z < 5; z++ {
			want := float32(0)
			if x >= 1 && x <= 3 && z >= 1 && z <= 3 {
				want = 2
			}
			if got := height(tile, x, z); got != want {
				t.Errorf("height at (%d,%d) = %v, want %v", x, z, got, want)
			}
		}
	}
	if !tile.HasEdits() {
		t.Errorf("tile should report edits")
	}
}

func TestManipulateRaiseLowerRestores(t *testing.T) {
	tile := NewTile(smallSettings(), CoordFromIndex(0, 0), nil, false)
	tile.ApplyNoise(testNoise())
	before := append([]float32(nil), tile.mesh.Vertices...)

	center := mgl32.Vec3{2, 0, 2}
	tile.Manipulate(Brush{Axis: AxisY, Shape: Circle, Mode: Raise, Strength: 1, Radius: 2}, center)
	tile.Manipulate(Brush{Axis: AxisY, Shape: Circle, Mode: Lower, Strength: 1, Radius: 2}, center)

	for i := range before {
		if d := math.Abs(float64(tile.mesh.Vertices[i] - before[i])); d > 1e-5 {
			t.Fatalf("component %d off by %v", i, d)
		}
	}
}

func TestManipulateCircleFalloff(t *testing.T) {
	tile := flatTile(smallSettings())
	tile.Manipulate(Brush{Axis: AxisY, Shape: Circle, Mode: Raise, Strength: 4, Radius: 2}, mgl32.Vec3{2, 0, 2})

	if got := height(tile, 2, 2); got != 4 {
		t.Errorf("center height %v, want 4", got)
	}
	if got := height(tile, 3, 2); got != 2 {
		t.Errorf("height one unit out %v, want 2", got)
	}
	if got := height(tile, 0, 0); got != 0 {
		t.Errorf("corner outside the circle moved to %v", got)
	}
}

func randomBrush(r *rand.Rand) (Brush, mgl32.Vec3) {
	b := Brush{
		Axis:     Axis(r.Intn(4)),
		Shape:    Shape(r.Intn(2)),
		Mode:     Mode(r.Intn(3)),
		Strength: r.Float32()*4 - 1,
		Radius:   r.Float32()*3 + 0.25,
	}
	return b, mgl32.Vec3{r.Float32() * 5, 0, r.Float32() * 5}
}

func TestEditRoundTrip(t *testing.T) {
	tile := NewTile(smallSettings(), CoordFromIndex(-1, 2), nil, false)
	tile.ApplyNoise(testNoise())
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 40; i++ {
		b, pos := randomBrush(r)
		tile.Manipulate(b, pos)
	}
	edited := append([]float32(nil), tile.mesh.Vertices...)

	tile.RemoveDifference()
	for i, v := range tile.mesh.Vertices {
		if v != tile.base[i] {
			t.Fatalf("removed preview differs from base at %d", i)
		}
	}
	tile.AddDifference()
	for i, v := range tile.mesh.Vertices {
		if v != edited[i] {
			t.Fatalf("restored vertex component %d = %v, want %v", i, v, edited[i])
		}
	}
}

func TestClearDifference(t *testing.T) {
	tile := NewTile(smallSettings(), CoordFromIndex(0, 0), nil, false)
	tile.ApplyNoise(testNoise())
	pure := append([]float32(nil), tile.mesh.Vertices...)

	tile.Manipulate(Brush{Axis: AxisY, Shape: Circle, Mode: Raise, Strength: 3, Radius: 2}, mgl32.Vec3{2, 0, 2})
	tile.ClearDifference()
	tile.AddDifference()

	if tile.HasEdits() {
		t.Errorf("edits should be gone")
	}
	for i, v := range tile.Delta() {
		if v != 0 {
			t.Fatalf("delta %d = %v after clear", i, v)
		}
	}
	for i, v := range tile.mesh.Vertices {
		if v != pure[i] {
			t.Fatalf("vertex component %d = %v, want pure noise %v", i, v, pure[i])
		}
	}
}

func TestManipulateOutsideIsNoop(t *testing.T) {
	tile := flatTile(smallSettings())
	for _, pos := range []mgl32.Vec3{{-3, 0, 2}, {2, 0, 9}, {20, 0, 20}} {
		if tile.Manipulate(Brush{Axis: AxisY, Shape: Square, Mode: Raise, Strength: 1, Radius: 1}, pos) {
			t.Errorf("brush at %v should miss the tile", pos)
		}
	}
	if tile.HasEdits() {
		t.Errorf("missed brushes must not mark edits")
	}
}

func TestManipulateFlatten(t *testing.T) {
	tile := flatTile(smallSettings())
	tile.Manipulate(Brush{Axis: AxisY, Shape: Square, Mode: Flatten, Strength: 5, Radius: 0.5}, mgl32.Vec3{1, 0, 1})
	if got := height(tile, 1, 1); got != 5 {
		t.Errorf("flatten to 5 left %v", got)
	}
	if got := height(tile, 2, 2); got != 0 {
		t.Errorf("vertex outside the brush moved to %v", got)
	}
}

func TestManipulateAlongNormal(t *testing.T) {
	tile := flatTile(smallSettings())
	tile.Manipulate(Brush{Axis: AlongNormal, Shape: Square, Mode: Raise, Strength: 1.5, Radius: 0.5}, mgl32.Vec3{2, 0, 2})
	if got := height(tile, 2, 2); math.Abs(float64(got-1.5)) > 1e-5 {
		t.Errorf("raise along an up normal gave %v", got)
	}

	// the neighbours of the raised vertex now slope toward it
	i := (1*5 + 2) * 3
	n := mgl32.Vec3{tile.mesh.Normals[i], tile.mesh.Normals[i+1], tile.mesh.Normals[i+2]}
	if n.X() >= 0 {
		t.Errorf("normal at (1,2) should lean away from the bump, got %v", n)
	}
	if l := n.Len(); math.Abs(float64(l-1)) > 1e-5 {
		t.Errorf("normal not unit length: %v", l)
	}
}

func TestManipulateHorizontalAxis(t *testing.T) {
	tile := flatTile(smallSettings())
	tile.Manipulate(Brush{Axis: AxisX, Shape: Square, Mode: Raise, Strength: 0.25, Radius: 0.1}, mgl32.Vec3{2, 0, 2})
	i := (2*5 + 2) * 3
	if got := tile.mesh.Vertices[i]; got != 2.25 {
		t.Errorf("x of vertex (2,2) = %v, want 2.25", got)
	}
	if tile.Delta()[i] != 0.25 || tile.Delta()[i+1] != 0 {
		t.Errorf("delta not recorded on x only: %v", tile.Delta()[i:i+3])
	}
}

func TestManipulateSkipsPendingTile(t *testing.T) {
	pool := workers.NewPool(1)
	defer pool.Shutdown()

	tile := NewTile(smallSettings(), CoordFromIndex(0, 0), nil, false)
	tile.startFill(pool, testNoise())
	if tile.Manipulate(Brush{Axis: AxisY, Shape: Square, Mode: Raise, Strength: 1, Radius: 1}, mgl32.Vec3{2, 0, 2}) {
		t.Errorf("pending tile must not be sculpted")
	}
}

func TestTileNoiseMatchesAcrossSeam(t *testing.T) {
	s := smallSettings()
	ns := testNoise()
	left := NewTile(s, CoordFromIndex(0, 0), nil, false)
	right := NewTile(s, CoordFromIndex(1, 0), nil, false)
	left.ApplyNoise(ns)
	right.ApplyNoise(ns)

	for z := 0; z < s.VertsZ; z++ {
		if l, r := height(left, s.VertsX-1, z), height(right, 0, z); l != r {
			t.Errorf("seam height mismatch at z=%d: %v != %v", z, l, r)
		}
	}
}
