package physics_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/physics"
)

func TestFrustumCulling(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	f := physics.ExtractFrustum(proj.Mul4(view))

	cases := []struct {
		name string
		box  physics.BoundingBox
		want bool
	}{
		{"ahead", physics.BoundingBox{Min: mgl32.Vec3{-1, -1, -11}, Max: mgl32.Vec3{1, 1, -9}}, true},
		{"behind", physics.BoundingBox{Min: mgl32.Vec3{-1, -1, 5}, Max: mgl32.Vec3{1, 1, 7}}, false},
		{"far left", physics.BoundingBox{Min: mgl32.Vec3{-60, -1, -11}, Max: mgl32.Vec3{-50, 1, -9}}, false},
		{"beyond far plane", physics.BoundingBox{Min: mgl32.Vec3{-1, -1, -300}, Max: mgl32.Vec3{1, 1, -200}}, false},
		{"around the eye", physics.BoundingBox{Min: mgl32.Vec3{-5, -5, -5}, Max: mgl32.Vec3{5, 5, 5}}, true},
		{"empty", physics.EmptyBox(), false},
	}
	for _, tc := range cases {
		if got := f.IntersectsBox(tc.box); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
