package terrain

// MeshBackend receives tile geometry for drawing. All calls arrive on the
// goroutine that runs Manager.Update.
type MeshBackend interface {
	// Upload hands over a tile mesh the backend has not seen yet.
	Upload(id ID, mesh *Mesh) error
	// Update refreshes the buffers of an uploaded tile.
	Update(id ID, mesh *Mesh) error
	// Unload releases everything the backend holds for id.
	Unload(id ID)
	// SetBatch replaces the set of tiles drawn together.
	SetBatch(ids []ID)
}

// NopBackend keeps no GPU state. It is the default for headless use.
type NopBackend struct{}

func (NopBackend) Upload(ID, *Mesh) error { return nil }
func (NopBackend) Update(ID, *Mesh) error { return nil }
func (NopBackend) Unload(ID) {}
func (NopBackend) SetBatch([]ID) {}
