package terrain

import (
	"math"
	"sort"
)

// emptyMark is written into slot 0 of a returned buffer that holds no edits.
var emptyMark = float32(math.NaN())

// DeltaStore owns the edit-delta buffers of every tile that was ever edited
// or loaded. Live tiles borrow their buffer and hand it back when destroyed.
// It is only touched by the goroutine that owns the manager.
type DeltaStore struct {
	buffers map[TileCoord][]float32
	loaned  map[TileCoord]bool
}

func NewDeltaStore() *DeltaStore {
	return &DeltaStore{
		buffers: make(map[TileCoord][]float32),
		loaned:  make(map[TileCoord]bool),
	}
}

// Borrow hands out the buffer for c, or a zeroed buffer of size n if there is
// none or the stored one has the wrong length. The flag reports whether the
// buffer carries edits.
func (s *DeltaStore) Borrow(c TileCoord, n int) ([]float32, bool) {
	s.loaned[c] = true
	buf, ok := s.buffers[c]
	if !ok || len(buf) != n {
		buf = make([]float32, n)
		s.buffers[c] = buf
		return buf, false
	}
	if isEmptyMarked(buf) {
		clear(buf)
		return buf, false
	}
	return buf, true
}

// Return takes the buffer back. A tile that ended without edits marks it empty.
func (s *DeltaStore) Return(c TileCoord, buf []float32, hasEdits bool) {
	delete(s.loaned, c)
	if buf == nil {
		return
	}
	if !hasEdits && len(buf) > 0 {
		buf[0] = emptyMark
	}
	s.buffers[c] = buf
}

// Put replaces the stored buffer for c. Used when loading from a document.
func (s *DeltaStore) Put(c TileCoord, buf []float32) {
	s.buffers[c] = buf
}

// Loaned reports whether a live tile currently holds the buffer for c.
func (s *DeltaStore) Loaned(c TileCoord) bool {
	return s.loaned[c]
}

// Get returns the stored buffer for c without loaning it.
func (s *DeltaStore) Get(c TileCoord) ([]float32, bool) {
	buf, ok := s.buffers[c]
	return buf, ok
}

// Len returns the number of stored entries, empty ones included.
func (s *DeltaStore) Len() int {
	return len(s.buffers)
}

// Coords returns every stored coordinate ordered by tile id.
func (s *DeltaStore) Coords() []TileCoord {
	coords := make([]TileCoord, 0, len(s.buffers))
	for c := range s.buffers {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].ID() < coords[j].ID() })
	return coords
}

// MarkEmpty flags the stored buffer for c as holding no edits. Entries are
// never removed.
func (s *DeltaStore) MarkEmpty(c TileCoord) {
	if buf := s.buffers[c]; len(buf) > 0 {
		buf[0] = emptyMark
	}
}

// Reset marks every buffer not on loan empty.
func (s *DeltaStore) Reset() {
	for c := range s.buffers {
		if !s.loaned[c] {
			s.MarkEmpty(c)
		}
	}
}

func isEmptyMarked(buf []float32) bool {
	return len(buf) > 0 && math.IsNaN(float64(buf[0]))
}

// hasAnyEdit reports whether buf holds a non-zero delta.
func hasAnyEdit(buf []float32) bool {
	if isEmptyMarked(buf) {
		return false
	}
	for _, v := range buf {
		if v != 0 {
			return true
		}
	}
	return false
}
