// Package terrain keeps a moving window of procedurally generated tiles
// around a focus point and lets callers sculpt them.
package terrain

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/noise"
	"terraining/internal/physics"
	"terraining/internal/profiling"
	"terraining/internal/workers"
)

// Debug enables per-tile log output.
var Debug = false

// FocusProvider reports the world position the window follows.
type FocusProvider interface {
	FocusPosition() mgl32.Vec3
}

// FocusFunc adapts a function to FocusProvider.
type FocusFunc func() mgl32.Vec3

func (f FocusFunc) FocusPosition() mgl32.Vec3 { return f() }

// Manager owns the live tiles. Relocate and Update serialize on mu; tile
// contents are only mutated by the goroutine that calls Update.
type Manager struct {
	mu sync.RWMutex

	settings Settings
	noise    noise.Settings
	origin   mgl32.Vec3

	tiles   map[ID]*Tile
	pending []ID
	store   *DeltaStore

	pool    *workers.Pool
	backend MeshBackend
	focus   FocusProvider

	center     mgl32.Vec3 // focus used by the last relocate
	located    bool
	hidden     bool // edits are hidden on every tile, new ones included
	batchDirty bool
	batch      []ID
}

// New creates an empty manager. Call GenerateDefaultTerrain or Relocate to
// populate it.
func New(s Settings, ns noise.Settings) (*Manager, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		settings: s,
		noise:    ns.Clone(),
		tiles:    make(map[ID]*Tile),
		store:    NewDeltaStore(),
		backend:  NopBackend{},
	}, nil
}

// SetWorkerPool sets the pool used for asynchronous noise fills. A nil pool
// makes every fill synchronous.
func (m *Manager) SetWorkerPool(p *workers.Pool) {
	m.mu.Lock()
	m.pool = p
	m.mu.Unlock()
}

// SetBackend replaces the mesh backend. Tiles already uploaded to the old
// backend are uploaded again on the next Update.
func (m *Manager) SetBackend(b MeshBackend) {
	if b == nil {
		b = NopBackend{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tiles {
		if t.resident {
			m.backend.Unload(t.id)
			t.resident = false
		}
	}
	m.backend = b
	m.batchDirty = true
}

func (m *Manager) SetFocusProvider(f FocusProvider) {
	m.mu.Lock()
	m.focus = f
	m.mu.Unlock()
}

// Origin is the world position of the manager. Tile geometry is relative to it.
func (m *Manager) Origin() mgl32.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.origin
}

func (m *Manager) SetOrigin(o mgl32.Vec3) {
	m.mu.Lock()
	m.origin = o
	m.mu.Unlock()
}

func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

func (m *Manager) NoiseSettings() noise.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.noise.Clone()
}

// focusLocked returns the window center in manager space. Without a
// followed focus the window stays where it was last placed, initially at
// the origin.
func (m *Manager) focusLocked() mgl32.Vec3 {
	if m.settings.FollowFocus && m.focus != nil {
		return m.focus.FocusPosition().Sub(m.origin)
	}
	return m.center
}

// GenerateDefaultTerrain fills the window around the current focus.
func (m *Manager) GenerateDefaultTerrain() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relocateLocked(m.focusLocked())
	log.Printf("terrain: default terrain generated, %d tiles", len(m.tiles))
}

// Relocate moves the window to focus, given in manager space.
func (m *Manager) Relocate(focus mgl32.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relocateLocked(focus)
}

type candidate struct {
	coord TileCoord
	id    ID
	dist  float32
	owner bool
}

// selectCoords picks the tiles whose center lies within the spawn radius of
// focus, plus the tile containing focus. The nearest ones win when the cap
// is reached; equal distances are ordered by id.
func selectCoords(s Settings, focus mgl32.Vec3) []TileCoord {
	if s.MaxTiles <= 0 {
		return nil
	}
	tw, th := s.TileWidth(), s.TileDepth()
	r := s.SpawnRadius
	fx, fz := focus.X(), focus.Z()

	owner := CoordOf(fx, fz, tw, th)
	ox0 := int(floor32((fx-r)/tw)) - 1
	ox1 := int(floor32((fx+r)/tw)) + 1
	oz0 := int(floor32((fz-r)/th)) - 1
	oz1 := int(floor32((fz+r)/th)) + 1

	var list []candidate
	for ix := ox0; ix <= ox1; ix++ {
		cx := (float32(ix) + 0.5) * tw
		for iz := oz0; iz <= oz1; iz++ {
			cz := (float32(iz) + 0.5) * th
			dx, dz := cx-fx, cz-fz
			d := sqrt32(dx*dx + dz*dz)
			c := CoordFromIndex(ix, iz)
			isOwner := c == owner
			if d > r && !isOwner {
				continue
			}
			list = append(list, candidate{coord: c, id: c.ID(), dist: d, owner: isOwner})
		}
	}

	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.owner != b.owner {
			return a.owner
		}
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		return a.id < b.id
	})
	if len(list) > s.MaxTiles {
		list = list[:s.MaxTiles]
	}

	coords := make([]TileCoord, len(list))
	for i, c := range list {
		coords[i] = c.coord
	}
	return coords
}

func (m *Manager) relocateLocked(focus mgl32.Vec3) {
	defer profiling.Track("terrain.Relocate")()

	coords := selectCoords(m.settings, focus)
	keep := make(map[ID]struct{}, len(coords))
	for _, c := range coords {
		keep[c.ID()] = struct{}{}
	}

	removed := 0
	for id, t := range m.tiles {
		if _, ok := keep[id]; ok {
			continue
		}
		m.destroyTileLocked(t)
		removed++
	}

	created := 0
	for _, c := range coords {
		if _, ok := m.tiles[c.ID()]; ok {
			continue
		}
		m.createTileLocked(c)
		created++
	}

	m.center = focus
	m.located = true
	if removed > 0 || created > 0 {
		m.batchDirty = true
	}
	log.Printf("terrain: relocated to (%.1f, %.1f): %d tiles, %d created, %d removed, %d pending",
		focus.X(), focus.Z(), len(m.tiles), created, removed, len(m.pending))
}

func (m *Manager) createTileLocked(c TileCoord) *Tile {
	delta, hasEdits := m.store.Borrow(c, m.settings.VertexCount()*3)
	t := NewTile(m.settings, c, delta, hasEdits)
	if m.hidden {
		t.RemoveDifference()
	}
	m.tiles[t.id] = t
	m.fillLocked(t)
	return t
}

// fillLocked computes the tile noise inline or queues it on the pool.
func (m *Manager) fillLocked(t *Tile) {
	if m.settings.AsyncRegen && m.pool != nil {
		t.startFill(m.pool, m.noise.Clone())
		m.pending = append(m.pending, t.id)
		return
	}
	t.ApplyNoise(m.noise)
}

func (m *Manager) destroyTileLocked(t *Tile) {
	if t.resident {
		m.backend.Unload(t.id)
	}
	t.destroy(m.store)
	delete(m.tiles, t.id)
}

// Renew drops every live tile and builds the window again.
func (m *Manager) Renew() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renewLocked()
}

func (m *Manager) renewLocked() {
	for _, t := range m.tiles {
		m.destroyTileLocked(t)
	}
	m.pending = m.pending[:0]
	m.batchDirty = true
	m.relocateLocked(m.focusLocked())
}

// SetSettings applies new window settings. Changes to tile geometry rebuild
// every tile; stored edits that no longer fit the tile size are dropped.
func (m *Manager) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.settings
	m.settings = s
	if !old.needsRebuild(s) {
		for _, t := range m.tiles {
			t.settings = s
		}
		m.relocateLocked(m.focusLocked())
		return nil
	}

	for _, t := range m.tiles {
		m.destroyTileLocked(t)
	}
	n := s.VertexCount() * 3
	for _, c := range m.store.Coords() {
		if buf, _ := m.store.Get(c); len(buf) != n {
			if hasAnyEdit(buf) {
				log.Printf("terrain: warning: dropping edits of tile %s, size %d does not fit %d", c, len(buf), n)
			}
			m.store.MarkEmpty(c)
		}
	}
	log.Printf("terrain: tile geometry changed to %dx%d spacing %v, rebuilding", s.VertsX, s.VertsZ, s.Spacing)
	m.renewLocked()
	return nil
}

// SetNoiseSettings regenerates every live tile with ns, keeping edits.
func (m *Manager) SetNoiseSettings(ns noise.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noise = ns.Clone()
	m.pending = m.pending[:0]
	for _, id := range m.sortedIDsLocked() {
		m.fillLocked(m.tiles[id])
	}
	m.batchDirty = true
	log.Printf("terrain: noise settings changed (seed %d, %d layers), regenerating %d tiles",
		ns.Seed, len(ns.Layers), len(m.tiles))
}

// Update runs once per frame. It dispatches queued fills, merges finished
// ones until budget is used up, refreshes the render batch and follows the
// focus. A frame where the manager is busy elsewhere is skipped entirely,
// including the worker pool dispatch.
func (m *Manager) Update(budget time.Duration) {
	if !m.mu.TryLock() {
		return
	}
	defer m.mu.Unlock()
	defer profiling.Track("terrain.Update")()

	start := time.Now()
	if m.pool != nil {
		m.pool.Pump()
	}
	m.mergeLocked(start, budget)

	if len(m.pending) == 0 {
		if m.batchDirty {
			m.rebuildBatchLocked()
		} else {
			m.flushDirtyLocked()
		}
	}

	if m.settings.FollowFocus && m.focus != nil {
		f := m.focusLocked()
		if !m.located || planarDistance(f, m.center) > m.settings.RelocateDistance {
			m.relocateLocked(f)
		}
	}
}

// mergeLocked moves finished fills out of the pending list in submission
// order, stopping once budget has elapsed. At least one merge happens per call.
func (m *Manager) mergeLocked(start time.Time, budget time.Duration) {
	kept := m.pending[:0]
	merged := 0
	for i, id := range m.pending {
		t, ok := m.tiles[id]
		if !ok || t.pending == nil {
			continue
		}
		if merged > 0 && time.Since(start) > budget {
			kept = append(kept, m.pending[i:]...)
			break
		}
		if !t.pollFill() {
			kept = append(kept, id)
			continue
		}
		merged++
		if err := m.uploadLocked(t); err != nil {
			log.Printf("terrain: upload of tile %s failed: %v", t.coord, err)
		}
	}
	m.pending = kept
	if merged > 0 {
		m.batchDirty = true
		if Debug {
			log.Printf("terrain: merged %d tiles, %d still pending", merged, len(m.pending))
		}
	}
}

func (m *Manager) uploadLocked(t *Tile) error {
	var err error
	if t.resident {
		err = m.backend.Update(t.id, &t.mesh)
	} else {
		err = m.backend.Upload(t.id, &t.mesh)
	}
	if err != nil {
		return err
	}
	t.markUploaded()
	return nil
}

func (m *Manager) flushDirtyLocked() {
	for _, t := range m.tiles {
		if t.pending == nil && (!t.resident || t.dirty) {
			if err := m.uploadLocked(t); err != nil {
				log.Printf("terrain: upload of tile %s failed: %v", t.coord, err)
			}
		}
	}
}

func (m *Manager) rebuildBatchLocked() {
	m.flushDirtyLocked()
	batch := m.batch[:0]
	for _, id := range m.sortedIDsLocked() {
		if m.tiles[id].resident {
			batch = append(batch, id)
		}
	}
	m.batch = batch
	m.backend.SetBatch(append([]ID(nil), batch...))
	m.batchDirty = false
}

func (m *Manager) sortedIDsLocked() []ID {
	ids := make([]ID, 0, len(m.tiles))
	for id := range m.tiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// snapshot returns the live tiles ordered by id.
func (m *Manager) snapshot() []*Tile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Tile, 0, len(m.tiles))
	for _, id := range m.sortedIDsLocked() {
		out = append(out, m.tiles[id])
	}
	return out
}

// Tiles returns the live tiles ordered by id.
func (m *Manager) Tiles() []*Tile {
	return m.snapshot()
}

// Tile returns the live tile at c, or nil.
func (m *Manager) Tile(c TileCoord) *Tile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tiles[c.ID()]
}

// TileCount returns the number of live tiles.
func (m *Manager) TileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tiles)
}

// PendingCount returns the number of tiles waiting for a noise fill.
func (m *Manager) PendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}

// Batch returns the ids of the tiles in the current render batch.
func (m *Manager) Batch() []ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ID(nil), m.batch...)
}

// refresh pushes a changed tile to the backend if it is already resident.
func (m *Manager) refresh(t *Tile) {
	if !t.resident {
		return
	}
	if err := m.backend.Update(t.id, &t.mesh); err != nil {
		log.Printf("terrain: mesh update of tile %s failed: %v", t.coord, err)
		return
	}
	t.dirty = false
}

// ManipulateTerrain applies b at the world position pos to every tile under
// the brush and returns how many tiles changed.
func (m *Manager) ManipulateTerrain(b Brush, pos mgl32.Vec3) int {
	if m.EditsHidden() {
		m.AddDifference()
	}
	local := pos.Sub(m.Origin())
	changed := 0
	for _, t := range m.snapshot() {
		if t.Manipulate(b, local.Sub(t.position)) {
			m.refresh(t)
			changed++
		}
	}
	return changed
}

// RemoveDifference hides the edits of every tile, including tiles created
// or filled later, until AddDifference or ClearDifference.
func (m *Manager) RemoveDifference() {
	m.setHidden(true)
	m.eachTile(func(t *Tile) { t.RemoveDifference() })
}

// AddDifference shows the edits of every live tile again.
func (m *Manager) AddDifference() {
	m.setHidden(false)
	m.eachTile(func(t *Tile) { t.AddDifference() })
}

// ClearDifference drops the edits of every live tile.
func (m *Manager) ClearDifference() {
	m.setHidden(false)
	m.eachTile(func(t *Tile) { t.ClearDifference() })
}

// EditsHidden reports whether RemoveDifference is in effect.
func (m *Manager) EditsHidden() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hidden
}

func (m *Manager) setHidden(hidden bool) {
	m.mu.Lock()
	m.hidden = hidden
	m.mu.Unlock()
}

// eachTile runs fn on every live tile. Pending tiles only change their CPU
// mesh; the merge uploads them once their fill lands.
func (m *Manager) eachTile(fn func(t *Tile)) {
	for _, t := range m.snapshot() {
		fn(t)
		if t.dirty && t.pending == nil {
			m.refresh(t)
		}
	}
}

// RayCollision returns the nearest hit of ray, given in world space, against
// every live tile.
func (m *Manager) RayCollision(ray physics.Ray) physics.RayHit {
	origin := m.Origin()
	local := physics.Ray{Position: ray.Position.Sub(origin), Direction: ray.Direction}

	best := physics.RayHit{}
	for _, t := range m.snapshot() {
		if t.pending != nil || t.state == Destroyed {
			continue
		}
		box := physics.RayBox(local, t.mesh.Bounds)
		if !box.Hit || (best.Hit && box.Distance > best.Distance) {
			continue
		}
		hit := physics.RayMesh(local, t.mesh.Vertices, t.mesh.Indices)
		if hit.Closer(best) {
			best = hit
		}
	}
	if best.Hit {
		best.Point = best.Point.Add(origin)
	}
	return best
}

// EditSnapshot copies every non-empty edit buffer, live or stored, keyed by
// tile coordinate.
func (m *Manager) EditSnapshot() map[TileCoord][]float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[TileCoord][]float32)
	for _, t := range m.tiles {
		if t.hasEdits && hasAnyEdit(t.delta) {
			out[t.coord] = append([]float32(nil), t.delta...)
		}
	}
	for _, c := range m.store.Coords() {
		if m.store.Loaned(c) {
			continue
		}
		if buf, _ := m.store.Get(c); hasAnyEdit(buf) {
			out[c] = append([]float32(nil), buf...)
		}
	}
	return out
}

// ImportEdits replaces all edits with edits. Live tiles pick up their new
// buffer immediately; buffers of the wrong size are skipped.
func (m *Manager) ImportEdits(edits map[TileCoord][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.settings.VertexCount() * 3
	for c, buf := range edits {
		if len(buf) != n {
			return fmt.Errorf("terrain: edits for tile %s have %d values, want %d", c, len(buf), n)
		}
	}

	m.store.Reset()
	m.hidden = false
	for c, buf := range edits {
		if !m.store.Loaned(c) {
			m.store.Put(c, append([]float32(nil), buf...))
		}
	}
	zero := make([]float32, n)
	for _, t := range m.tiles {
		t.hidden = false
		buf, ok := edits[t.coord]
		if !ok {
			buf = zero
		}
		if t.pending != nil {
			// the merge applies the buffer once the fill lands
			copy(t.delta, buf)
			t.hasEdits = hasAnyEdit(t.delta)
			continue
		}
		t.setDelta(buf)
	}
	m.batchDirty = true
	return nil
}

// Close destroys every tile, returning their edits to the store.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tiles {
		m.destroyTileLocked(t)
	}
	m.pending = nil
	m.batch = nil
	m.backend.SetBatch(nil)
}

func floor32(v float32) float32 {
	return float32(math.Floor(float64(v)))
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func planarDistance(a, b mgl32.Vec3) float32 {
	dx, dz := a.X()-b.X(), a.Z()-b.Z()
	return sqrt32(dx*dx + dz*dz)
}
