package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const triangleEpsilon = 1e-7

// Ray is a half line starting at Position.
type Ray struct {
	Position  mgl32.Vec3
	Direction mgl32.Vec3
}

// RayHit stores the result of a ray query.
type RayHit struct {
	Hit      bool
	Distance float32
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
}

// Closer reports whether h is a hit nearer than o.
func (h RayHit) Closer(o RayHit) bool {
	if !h.Hit {
		return false
	}
	return !o.Hit || h.Distance < o.Distance
}

// RayBox intersects ray with box using the slab method. A ray starting
// inside the box hits at distance zero.
func RayBox(ray Ray, box BoundingBox) RayHit {
	result := RayHit{}
	if box.IsEmpty() {
		return result
	}

	tMin := float32(0)
	tMax := float32(math.Inf(1))
	var normal mgl32.Vec3

	for axis := 0; axis < 3; axis++ {
		origin := ray.Position[axis]
		dir := ray.Direction[axis]
		if dir == 0 {
			if origin < box.Min[axis] || origin > box.Max[axis] {
				return result
			}
			continue
		}

		inv := 1 / dir
		t0 := (box.Min[axis] - origin) * inv
		t1 := (box.Max[axis] - origin) * inv
		sign := float32(-1)
		if t0 > t1 {
			t0, t1 = t1, t0
			sign = 1
		}
		if t0 > tMin {
			tMin = t0
			normal = mgl32.Vec3{}
			normal[axis] = sign
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMin > tMax {
			return result
		}
	}

	result.Hit = true
	result.Distance = tMin
	result.Point = ray.Position.Add(ray.Direction.Mul(tMin))
	result.Normal = normal
	return result
}

// RayTriangle intersects ray with the triangle (p1, p2, p3) using the
// Moller-Trumbore algorithm. Both faces count.
func RayTriangle(ray Ray, p1, p2, p3 mgl32.Vec3) RayHit {
	result := RayHit{}

	edge1 := p2.Sub(p1)
	edge2 := p3.Sub(p1)
	p := ray.Direction.Cross(edge2)
	det := edge1.Dot(p)
	if det > -triangleEpsilon && det < triangleEpsilon {
		return result
	}

	invDet := 1 / det
	tv := ray.Position.Sub(p1)
	u := tv.Dot(p) * invDet
	if u < 0 || u > 1 {
		return result
	}

	q := tv.Cross(edge1)
	v := ray.Direction.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return result
	}

	t := edge2.Dot(q) * invDet
	if t <= triangleEpsilon {
		return result
	}

	result.Hit = true
	result.Distance = t
	result.Point = ray.Position.Add(ray.Direction.Mul(t))
	result.Normal = edge1.Cross(edge2).Normalize()
	return result
}

// RayMesh returns the nearest hit of ray against an indexed triangle list
// over packed xyz vertices.
func RayMesh(ray Ray, vertices []float32, indices []uint32) RayHit {
	best := RayHit{}
	vertex := func(i uint32) mgl32.Vec3 {
		return mgl32.Vec3{vertices[i*3], vertices[i*3+1], vertices[i*3+2]}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		hit := RayTriangle(ray, vertex(indices[i]), vertex(indices[i+1]), vertex(indices[i+2]))
		if hit.Closer(best) {
			best = hit
		}
	}
	return best
}
