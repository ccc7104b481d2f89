package terrain

import (
	"image"
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/noise"
	"terraining/internal/physics"
	"terraining/internal/workers"
)

// State is the build stage of a tile.
type State int

const (
	Unbuilt      State = iota
	MeshBuilt          // geometry allocated, heights may still be flat
	GPUReady           // uploaded, showing procedural heights
	EditsApplied       // uploaded, showing procedural heights plus edits
	Destroyed
)

func (s State) String() string {
	switch s {
	case Unbuilt:
		return "unbuilt"
	case MeshBuilt:
		return "mesh-built"
	case GPUReady:
		return "gpu-ready"
	case EditsApplied:
		return "edits-applied"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Tile is one patch of the height field.
type Tile struct {
	id       ID
	coord    TileCoord
	settings Settings
	position mgl32.Vec3

	mesh Mesh
	base []float32 // procedural vertex positions

	delta    []float32 // on loan from the DeltaStore
	hasEdits bool
	hidden   bool // edits are stored but not shown

	samples []*image.Gray
	state   State

	pending  *fillJob
	resident bool // the backend holds a copy
	dirty    bool // mesh changed since the backend last saw it
}

// fillJob is one noise fill. The task writes result and nothing else, so a
// tile is never shared with a worker.
type fillJob struct {
	handle *workers.Handle
	result fillResult
	noise  noise.Settings
}

type fillResult struct {
	base    []float32
	samples []*image.Gray
}

// NewTile allocates a flat tile at coord. delta must hold VertexCount*3
// values or be nil; it is kept, not copied.
func NewTile(s Settings, coord TileCoord, delta []float32, hasEdits bool) *Tile {
	n := s.VertexCount()
	if len(delta) != n*3 {
		delta = make([]float32, n*3)
		hasEdits = false
	}

	t := &Tile{
		id:       coord.ID(),
		coord:    coord,
		settings: s,
		position: TilePosition(s, coord),
		delta:    delta,
		hasEdits: hasEdits,
		state:    Unbuilt,
	}

	t.base = flatGrid(s, t.position)
	t.mesh = Mesh{
		Vertices:  make([]float32, len(t.base)),
		Normals:   upNormals(n),
		Texcoords: gridTexcoords(s.VertsX, s.VertsZ),
		Indices:   gridIndices(s.VertsX, s.VertsZ),
	}
	t.rebuildVertices()
	t.state = MeshBuilt

	if Debug {
		log.Printf("terrain: tile %s (id %d) built at %v", coord, t.id, t.position)
	}
	return t
}

// TilePosition returns the corner of the tile at coord.
func TilePosition(s Settings, c TileCoord) mgl32.Vec3 {
	ix, iz := c.Index()
	return mgl32.Vec3{float32(ix) * s.TileWidth(), 0, float32(iz) * s.TileDepth()}
}

func (t *Tile) ID() ID { return t.id }
func (t *Tile) Coord() TileCoord { return t.coord }
func (t *Tile) Position() mgl32.Vec3 { return t.position }
func (t *Tile) State() State { return t.state }
func (t *Tile) HasEdits() bool { return t.hasEdits }
func (t *Tile) Pending() bool { return t.pending != nil }
func (t *Tile) Mesh() *Mesh { return &t.mesh }
func (t *Tile) Samples() []*image.Gray { return t.samples }

// Center returns the middle of the tile footprint.
func (t *Tile) Center() mgl32.Vec3 {
	return t.position.Add(mgl32.Vec3{t.settings.TileWidth() / 2, 0, t.settings.TileDepth() / 2})
}

// Delta returns the edit buffer. Callers must not keep it.
func (t *Tile) Delta() []float32 {
	return t.delta
}

// Base returns the procedural vertex positions.
func (t *Tile) Base() []float32 {
	return t.base
}

// ApplyNoise samples every noise layer at this tile and writes the heights
// into the mesh. Existing edits are applied on top.
func (t *Tile) ApplyNoise(ns noise.Settings) {
	t.pending = nil
	t.applyFill(computeFill(t.settings, t.position, ns))
}

func computeFill(s Settings, pos mgl32.Vec3, ns noise.Settings) fillResult {
	samples := noise.SampleLayers(ns, pos, s.VertsX, s.VertsZ, s.Spacing)
	base := flatGrid(s, pos)
	for x := 0; x < s.VertsX; x++ {
		for z := 0; z < s.VertsZ; z++ {
			i := (x*s.VertsZ + z) * 3
			base[i+1] = pos.Y() + noise.CombinedHeight(samples, ns.Layers, x, z)
		}
	}
	return fillResult{base: base, samples: samples}
}

// startFill submits a noise fill to pool and marks the tile pending.
func (t *Tile) startFill(pool *workers.Pool, ns noise.Settings) {
	job := &fillJob{noise: ns}
	s, pos := t.settings, t.position
	job.handle = pool.Submit(func() {
		job.result = computeFill(s, pos, ns)
	})
	t.pending = job
}

// pollFill merges a finished fill and reports whether the tile left the
// pending state. A fill discarded by a stopped pool is redone inline.
func (t *Tile) pollFill() bool {
	job := t.pending
	if job == nil {
		return true
	}
	switch {
	case job.handle.Completed():
		t.pending = nil
		if job.result.base == nil {
			log.Printf("terrain: noise fill for tile %s produced no data, keeping previous heights", t.coord)
			t.rebuildVertices()
			return true
		}
		t.applyFill(job.result)
		return true
	case job.handle.Discarded():
		t.pending = nil
		t.applyFill(computeFill(t.settings, t.position, job.noise))
		return true
	default:
		return false
	}
}

func (t *Tile) applyFill(res fillResult) {
	t.base = res.base
	t.samples = res.samples
	t.rebuildVertices()
}

// rebuildVertices sets every vertex to base plus the shown edits and
// refreshes normals and bounds.
func (t *Tile) rebuildVertices() {
	if t.hasEdits && !t.hidden {
		for i := range t.mesh.Vertices {
			t.mesh.Vertices[i] = t.base[i] + t.delta[i]
		}
	} else {
		copy(t.mesh.Vertices, t.base)
	}
	t.mesh.refresh()
	t.dirty = true
	t.syncState()
}

func (t *Tile) syncState() {
	if !t.resident {
		return
	}
	if t.hasEdits && !t.hidden {
		t.state = EditsApplied
	} else {
		t.state = GPUReady
	}
}

// RemoveDifference shows the unedited terrain while keeping the edit buffer.
func (t *Tile) RemoveDifference() {
	if t.hidden {
		return
	}
	t.hidden = true
	if t.hasEdits {
		t.rebuildVertices()
	}
}

// AddDifference shows the edits again.
func (t *Tile) AddDifference() {
	if !t.hidden {
		return
	}
	t.hidden = false
	if t.hasEdits {
		t.rebuildVertices()
	}
}

// ClearDifference drops every edit and restores the procedural heights.
func (t *Tile) ClearDifference() {
	clear(t.delta)
	t.hasEdits = false
	t.hidden = false
	t.rebuildVertices()
}

// setDelta replaces the edit buffer contents with values.
func (t *Tile) setDelta(values []float32) bool {
	if len(values) != len(t.delta) {
		return false
	}
	copy(t.delta, values)
	t.hasEdits = hasAnyEdit(t.delta)
	t.rebuildVertices()
	return true
}

// markUploaded records that the backend has the current mesh.
func (t *Tile) markUploaded() {
	t.resident = true
	t.dirty = false
	t.syncState()
}

// WorldBounds returns the tile bounds shifted by origin.
func (t *Tile) WorldBounds(origin mgl32.Vec3) physics.BoundingBox {
	return t.mesh.Bounds.Translate(origin)
}

// destroy hands the edit buffer back to store and releases scratch data.
func (t *Tile) destroy(store *DeltaStore) {
	store.Return(t.coord, t.delta, t.hasEdits)
	t.delta = nil
	t.samples = nil
	t.pending = nil
	t.resident = false
	t.state = Destroyed
	if Debug {
		log.Printf("terrain: tile %s destroyed (edits=%v)", t.coord, t.hasEdits)
	}
}
