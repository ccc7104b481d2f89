package physics_test

import (
	"math"
	"testing"

	"terraining/internal/physics"

	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestRayBox(t *testing.T) {
	box := physics.BoundingBox{Min: mgl32.Vec3{4, -1, -1}, Max: mgl32.Vec3{6, 1, 1}}

	// Test 1: ray along +X hits the near face
	hit := physics.RayBox(physics.Ray{Position: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}, box)
	if !hit.Hit {
		t.Fatalf("Expected hit, got miss")
	}
	if !near(hit.Distance, 4) {
		t.Errorf("Expected distance 4, got %f", hit.Distance)
	}
	if hit.Normal != (mgl32.Vec3{-1, 0, 0}) {
		t.Errorf("Expected normal {-1,0,0}, got %v", hit.Normal)
	}

	// Test 2: ray pointing away misses
	miss := physics.RayBox(physics.Ray{Position: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{-1, 0, 0}}, box)
	if miss.Hit {
		t.Errorf("Expected miss, got hit at %v", miss.Point)
	}

	// Test 3: parallel ray outside the slab misses
	miss = physics.RayBox(physics.Ray{Position: mgl32.Vec3{0, 3, 0}, Direction: mgl32.Vec3{1, 0, 0}}, box)
	if miss.Hit {
		t.Errorf("Expected miss for parallel ray above the box")
	}

	// Test 4: ray starting inside hits at zero
	inside := physics.RayBox(physics.Ray{Position: mgl32.Vec3{5, 0, 0}, Direction: mgl32.Vec3{0, 1, 0}}, box)
	if !inside.Hit || inside.Distance != 0 {
		t.Errorf("Expected hit at distance 0 from inside, got %+v", inside)
	}

	// Test 5: empty box never hits
	if physics.RayBox(physics.Ray{Direction: mgl32.Vec3{1, 0, 0}}, physics.EmptyBox()).Hit {
		t.Errorf("Empty box should not be hit")
	}
}

func TestRayTriangle(t *testing.T) {
	p1 := mgl32.Vec3{0, 0, 0}
	p2 := mgl32.Vec3{1, 0, 0}
	p3 := mgl32.Vec3{0, 0, 1}
	down := physics.Ray{Position: mgl32.Vec3{0.25, 5, 0.25}, Direction: mgl32.Vec3{0, -1, 0}}

	hit := physics.RayTriangle(down, p1, p2, p3)
	if !hit.Hit {
		t.Fatalf("Expected hit, got miss")
	}
	if !near(hit.Distance, 5) {
		t.Errorf("Expected distance 5, got %f", hit.Distance)
	}
	if !near(hit.Point.X(), 0.25) || !near(hit.Point.Y(), 0) || !near(hit.Point.Z(), 0.25) {
		t.Errorf("Unexpected hit point %v", hit.Point)
	}

	outside := physics.Ray{Position: mgl32.Vec3{0.9, 5, 0.9}, Direction: mgl32.Vec3{0, -1, 0}}
	if physics.RayTriangle(outside, p1, p2, p3).Hit {
		t.Errorf("Expected miss outside the triangle")
	}

	behind := physics.Ray{Position: mgl32.Vec3{0.25, -5, 0.25}, Direction: mgl32.Vec3{0, -1, 0}}
	if physics.RayTriangle(behind, p1, p2, p3).Hit {
		t.Errorf("Expected miss for triangle behind the ray")
	}
}

func TestRayMeshNearest(t *testing.T) {
	// two stacked quads, the upper one at y=2
	vertices := []float32{
		0, 0, 0, 1, 0, 0, 0, 0, 1, 1, 0, 1,
		0, 2, 0, 1, 2, 0, 0, 2, 1, 1, 2, 1,
	}
	indices := []uint32{
		0, 1, 2, 1, 3, 2,
		4, 5, 6, 5, 7, 6,
	}
	ray := physics.Ray{Position: mgl32.Vec3{0.5, 10, 0.5}, Direction: mgl32.Vec3{0, -1, 0}}

	hit := physics.RayMesh(ray, vertices, indices)
	if !hit.Hit {
		t.Fatalf("Expected hit, got miss")
	}
	if !near(hit.Point.Y(), 2) {
		t.Errorf("Expected nearest hit on the upper quad, got %v", hit.Point)
	}
}

func TestMeshBoundingBox(t *testing.T) {
	box := physics.MeshBoundingBox([]float32{-1, 2, 3, 4, -5, 6, 0, 0, 0})
	if box.Min != (mgl32.Vec3{-1, -5, 0}) || box.Max != (mgl32.Vec3{4, 2, 6}) {
		t.Errorf("Unexpected box %+v", box)
	}
	if !box.Contains(mgl32.Vec3{0, 0, 1}) {
		t.Errorf("Box should contain {0,0,1}")
	}
	if !physics.MeshBoundingBox(nil).IsEmpty() {
		t.Errorf("Box of no vertices should be empty")
	}

	moved := box.Translate(mgl32.Vec3{10, 0, 0})
	if box.Intersects(moved) {
		t.Errorf("Translated box should not overlap the original")
	}
	if !box.Intersects(box.Translate(mgl32.Vec3{1, 0, 0})) {
		t.Errorf("Slightly moved box should overlap")
	}
}

func BenchmarkRayMesh(b *testing.B) {
	const n = 20
	vertices := make([]float32, 0, n*n*3)
	for x := 0; x < n; x++ {
		for z := 0; z < n; z++ {
			vertices = append(vertices, float32(x), 0, float32(z))
		}
	}
	var indices []uint32
	for x := 0; x < n-1; x++ {
		for z := 0; z < n-1; z++ {
			i := uint32(x*n + z)
			indices = append(indices, i, i+1, i+n, i+1, i+n+1, i+n)
		}
	}
	ray := physics.Ray{Position: mgl32.Vec3{9.5, 10, 9.5}, Direction: mgl32.Vec3{0, -1, 0}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		physics.RayMesh(ray, vertices, indices)
	}
}
