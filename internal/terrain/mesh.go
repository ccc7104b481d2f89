package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/physics"
)

// Mesh is the CPU copy of one tile's geometry. Vertices are laid out x-major:
// vertex (x, z) lives at index x*VertsZ + z. Positions are in manager space.
type Mesh struct {
	Vertices  []float32 // xyz
	Normals   []float32 // xyz
	Texcoords []float32 // uv
	Indices   []uint32
	Bounds    physics.BoundingBox
}

// flatGrid returns the vertex positions of a flat tile whose corner sits at pos.
func flatGrid(s Settings, pos mgl32.Vec3) []float32 {
	vertices := make([]float32, 0, s.VertexCount()*3)
	for x := 0; x < s.VertsX; x++ {
		for z := 0; z < s.VertsZ; z++ {
			vertices = append(vertices,
				float32(x)*s.Spacing+pos.X(),
				pos.Y(),
				float32(z)*s.Spacing+pos.Z(),
			)
		}
	}
	return vertices
}

// gridIndices triangulates a vx by vz grid into two counter-clockwise
// triangles per quad, facing +y.
func gridIndices(vx, vz int) []uint32 {
	indices := make([]uint32, 0, (vx-1)*(vz-1)*6)
	stride := uint32(vz)
	for x := 0; x < vx-1; x++ {
		for z := 0; z < vz-1; z++ {
			i := uint32(x*vz + z)
			indices = append(indices,
				i, i+1, i+stride,
				i+1, i+stride+1, i+stride,
			)
		}
	}
	return indices
}

func gridTexcoords(vx, vz int) []float32 {
	texcoords := make([]float32, 0, vx*vz*2)
	for x := 0; x < vx; x++ {
		for z := 0; z < vz; z++ {
			texcoords = append(texcoords, float32(x)/float32(vx-1), float32(z)/float32(vz-1))
		}
	}
	return texcoords
}

func upNormals(n int) []float32 {
	normals := make([]float32, n*3)
	for i := 1; i < len(normals); i += 3 {
		normals[i] = 1
	}
	return normals
}

// computeNormals accumulates the area weighted face normals of every
// triangle touching a vertex.
func computeNormals(vertices []float32, indices []uint32, normals []float32) {
	clear(normals)
	at := func(i uint32) mgl32.Vec3 {
		return mgl32.Vec3{vertices[i*3], vertices[i*3+1], vertices[i*3+2]}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		pa := at(a)
		face := at(b).Sub(pa).Cross(at(c).Sub(pa))
		for _, i := range [3]uint32{a, b, c} {
			normals[i*3] += face.X()
			normals[i*3+1] += face.Y()
			normals[i*3+2] += face.Z()
		}
	}
	for i := 0; i+2 < len(normals); i += 3 {
		n := mgl32.Vec3{normals[i], normals[i+1], normals[i+2]}
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		} else {
			n = mgl32.Vec3{0, 1, 0}
		}
		normals[i], normals[i+1], normals[i+2] = n.X(), n.Y(), n.Z()
	}
}

// refresh recomputes everything derived from the vertex positions.
func (m *Mesh) refresh() {
	computeNormals(m.Vertices, m.Indices, m.Normals)
	m.Bounds = physics.MeshBoundingBox(m.Vertices)
}
