// Package terrainmesh keeps terrain tile meshes on the GPU and draws the
// render batch. Every method must run on the goroutine owning the GL context.
package terrainmesh

import (
	_ "embed"
	"fmt"
	"log"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/graphics"
	renderer "terraining/internal/graphics/renderer"
	"terraining/internal/physics"
	"terraining/internal/profiling"
	"terraining/internal/terrain"
)

var (
	//go:embed shaders/terrain.vert
	vertShader string
	//go:embed shaders/terrain.frag
	fragShader string
)

type gpuMesh struct {
	vao, vbo, nbo, tbo, ebo uint32
	vertexFloats            int
	indexCount              int32
	bounds                  physics.BoundingBox
}

// Backend implements terrain.MeshBackend and renderer.Renderable.
type Backend struct {
	shader *graphics.Shader
	meshes map[terrain.ID]*gpuMesh
	batch  []terrain.ID

	origin   mgl32.Vec3
	lightDir mgl32.Vec3
	ShowGrid bool

	// per-frame stats
	Drawn  int
	Culled int
}

var _ terrain.MeshBackend = (*Backend)(nil)

func New() *Backend {
	return &Backend{
		meshes:   make(map[terrain.ID]*gpuMesh),
		lightDir: mgl32.Vec3{-0.4, -1, -0.3}.Normalize(),
	}
}

// Init compiles the terrain shader
func (b *Backend) Init() error {
	var err error
	b.shader, err = graphics.NewShader(vertShader, fragShader)
	if err != nil {
		return fmt.Errorf("terrain shader: %w", err)
	}
	return nil
}

// SetOrigin sets the world offset the tile meshes are drawn at.
func (b *Backend) SetOrigin(o mgl32.Vec3) {
	b.origin = o
}

func (b *Backend) SetViewport(width, height int) {}

// Upload creates GPU buffers for a tile mesh.
func (b *Backend) Upload(id terrain.ID, mesh *terrain.Mesh) error {
	if old, ok := b.meshes[id]; ok {
		deleteMesh(old)
	}
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return fmt.Errorf("terrainmesh: tile %d has an empty mesh", id)
	}

	m := &gpuMesh{
		vertexFloats: len(mesh.Vertices),
		indexCount:   int32(len(mesh.Indices)),
		bounds:       mesh.Bounds,
	}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	m.vbo = arrayBuffer(0, 3, mesh.Vertices, gl.DYNAMIC_DRAW)
	m.nbo = arrayBuffer(1, 3, mesh.Normals, gl.DYNAMIC_DRAW)
	m.tbo = arrayBuffer(2, 2, mesh.Texcoords, gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	b.meshes[id] = m
	if terrain.Debug {
		log.Printf("terrainmesh: uploaded tile %d (%d indices)", id, m.indexCount)
	}
	return nil
}

func arrayBuffer(index uint32, size int32, data []float32, usage uint32) uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), usage)
	gl.EnableVertexAttribArray(index)
	gl.VertexAttribPointerWithOffset(index, size, gl.FLOAT, false, size*4, 0)
	return buf
}

// Update rewrites positions and normals of an uploaded mesh in place.
func (b *Backend) Update(id terrain.ID, mesh *terrain.Mesh) error {
	m, ok := b.meshes[id]
	if !ok || m.vertexFloats != len(mesh.Vertices) {
		return b.Upload(id, mesh)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(mesh.Vertices)*4, gl.Ptr(mesh.Vertices))
	gl.BindBuffer(gl.ARRAY_BUFFER, m.nbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(mesh.Normals)*4, gl.Ptr(mesh.Normals))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	m.bounds = mesh.Bounds
	return nil
}

// Unload frees the buffers of a tile.
func (b *Backend) Unload(id terrain.ID) {
	if m, ok := b.meshes[id]; ok {
		deleteMesh(m)
		delete(b.meshes, id)
	}
}

// SetBatch replaces the set of tiles drawn each frame.
func (b *Backend) SetBatch(ids []terrain.ID) {
	b.batch = ids
}

func deleteMesh(m *gpuMesh) {
	bufs := []uint32{m.vbo, m.nbo, m.tbo, m.ebo}
	gl.DeleteBuffers(int32(len(bufs)), &bufs[0])
	gl.DeleteVertexArrays(1, &m.vao)
}

// Render draws every batched tile inside the view frustum.
func (b *Backend) Render(ctx renderer.RenderContext) {
	defer profiling.Track("renderer.renderTerrain")()

	b.Drawn, b.Culled = 0, 0
	if len(b.batch) == 0 {
		return
	}

	b.shader.Use()
	b.shader.SetMatrix4("proj", &ctx.Proj[0])
	b.shader.SetMatrix4("view", &ctx.View[0])
	model := mgl32.Translate3D(b.origin.X(), b.origin.Y(), b.origin.Z())
	b.shader.SetMatrix4("model", &model[0])
	b.shader.SetVec3("lightDir", b.lightDir)
	b.shader.SetBool("showGrid", b.ShowGrid)

	frustum := physics.ExtractFrustum(ctx.Proj.Mul4(ctx.View))
	low, high := float32(0), float32(0)
	first := true
	for _, id := range b.batch {
		m, ok := b.meshes[id]
		if !ok {
			continue
		}
		world := m.bounds.Translate(b.origin)
		if first {
			low, high = world.Min.Y(), world.Max.Y()
			first = false
		} else {
			low, high = min(low, world.Min.Y()), max(high, world.Max.Y())
		}
	}
	b.shader.SetFloat("lowHeight", low)
	b.shader.SetFloat("highHeight", high)

	for _, id := range b.batch {
		m, ok := b.meshes[id]
		if !ok {
			continue
		}
		if !frustum.IntersectsBox(m.bounds.Translate(b.origin)) {
			b.Culled++
			continue
		}
		gl.BindVertexArray(m.vao)
		gl.DrawElementsWithOffset(gl.TRIANGLES, m.indexCount, gl.UNSIGNED_INT, 0)
		b.Drawn++
	}
	gl.BindVertexArray(0)
}

// Dispose frees every mesh and the shader.
func (b *Backend) Dispose() {
	for id, m := range b.meshes {
		deleteMesh(m)
		delete(b.meshes, id)
	}
	b.batch = nil
	if b.shader != nil {
		b.shader.Delete()
	}
}
