package terrain

import (
	"fmt"
	"log"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/document"
	"terraining/internal/noise"
)

// Document keys.
const (
	keyOrigin   = "origin"
	keyTerrain  = "terrain_settings"
	keyNoise    = "noise_settings"
	keyElements = "terrain_elements"
	keyDelta    = "heightDifference"
)

// EncodeSettings writes s into d.
func EncodeSettings(d *document.Document, s Settings) {
	d.SetFloat("radius", float64(s.SpawnRadius))
	d.SetInt("num_width", int64(s.VertsX))
	d.SetInt("num_height", int64(s.VertsZ))
	d.SetInt("max_num_elements", int64(s.MaxTiles))
	d.SetFloat("spacing", float64(s.Spacing))
	d.SetBool("update_with_thread_pool", s.AsyncRegen)
	d.SetBool("follow_camera", s.FollowFocus)
	d.SetFloat("dist_to_relocating", float64(s.RelocateDistance))
}

// fieldReader collects the first error of a run of reads.
type fieldReader struct {
	doc *document.Document
	err error
}

func (r *fieldReader) num(key string) float32 {
	v, err := r.doc.Float(key)
	r.keep(err)
	return float32(v)
}

func (r *fieldReader) integer(key string) int {
	v, err := r.doc.Int(key)
	r.keep(err)
	return int(v)
}

func (r *fieldReader) integer64(key string) int64 {
	v, err := r.doc.Int(key)
	r.keep(err)
	return v
}

func (r *fieldReader) flag(key string) bool {
	v, err := r.doc.Bool(key)
	r.keep(err)
	return v
}

func (r *fieldReader) keep(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// DecodeSettings reads settings written by EncodeSettings.
func DecodeSettings(d *document.Document) (Settings, error) {
	r := fieldReader{doc: d}
	s := Settings{
		SpawnRadius:      r.num("radius"),
		VertsX:           r.integer("num_width"),
		VertsZ:           r.integer("num_height"),
		MaxTiles:         r.integer("max_num_elements"),
		Spacing:          r.num("spacing"),
		AsyncRegen:       r.flag("update_with_thread_pool"),
		FollowFocus:      r.flag("follow_camera"),
		RelocateDistance: r.num("dist_to_relocating"),
	}
	if r.err != nil {
		return Settings{}, fmt.Errorf("%s: %w", keyTerrain, r.err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// EncodeNoise writes ns into d, one numbered sub-document per layer.
func EncodeNoise(d *document.Document, ns noise.Settings) {
	d.SetInt("seed", ns.Seed)
	for i, l := range ns.Layers {
		ld := d.Ensure(strconv.Itoa(i))
		ld.SetFloat("horizontal_scale", float64(l.HorizontalScale))
		ld.SetFloat("vertical_scale", float64(l.VerticalScale))
		ld.SetInt("offset_x", int64(l.OffsetX))
		ld.SetInt("offset_z", int64(l.OffsetZ))
		ld.SetFloat("lacunarity", float64(l.Lacunarity))
		ld.SetFloat("gain", float64(l.Gain))
		ld.SetInt("octaves", int64(l.Octaves))
		ld.SetBool("around_zero", l.SignedRange)
	}
}

// DecodeNoise reads layers "0", "1", ... until the first gap.
func DecodeNoise(d *document.Document) (noise.Settings, error) {
	r := fieldReader{doc: d}
	ns := noise.Settings{Seed: r.integer64("seed")}
	for i := 0; ; i++ {
		ld := d.Sub(strconv.Itoa(i))
		if ld == nil {
			break
		}
		lr := fieldReader{doc: ld}
		ns.Layers = append(ns.Layers, noise.Layer{
			HorizontalScale: lr.num("horizontal_scale"),
			VerticalScale:   lr.num("vertical_scale"),
			OffsetX:         lr.integer("offset_x"),
			OffsetZ:         lr.integer("offset_z"),
			Lacunarity:      lr.num("lacunarity"),
			Gain:            lr.num("gain"),
			Octaves:         lr.integer("octaves"),
			SignedRange:     lr.flag("around_zero"),
		})
		if lr.err != nil {
			return noise.Settings{}, fmt.Errorf("%s.%d: %w", keyNoise, i, lr.err)
		}
	}
	if r.err != nil {
		return noise.Settings{}, fmt.Errorf("%s: %w", keyNoise, r.err)
	}
	return ns, nil
}

// Save writes the settings, noise, origin and every non-empty edit buffer
// into a new document. Tiles without edits get no sub-document.
func (m *Manager) Save() *document.Document {
	edits := m.EditSnapshot()

	m.mu.RLock()
	s, ns, origin := m.settings, m.noise, m.origin
	m.mu.RUnlock()

	doc := document.New()
	doc.SetFloat32s(keyOrigin, origin[:])
	EncodeSettings(doc.Ensure(keyTerrain), s)
	EncodeNoise(doc.Ensure(keyNoise), ns)

	elements := doc.Ensure(keyElements)
	for c, buf := range edits {
		elements.Ensure(c.Key()).SetFloat32s(keyDelta, buf)
	}
	log.Printf("terrain: saved %d edited tiles", len(edits))
	return doc
}

// SaveFile writes Save to path in the format its extension names.
func (m *Manager) SaveFile(path string) error {
	if err := document.WriteFile(path, m.Save()); err != nil {
		return fmt.Errorf("terrain: save %s: %w", path, err)
	}
	return nil
}

// NewFromDocument builds a manager from a document written by Save. Any
// missing or malformed field fails the whole load.
func NewFromDocument(doc *document.Document) (*Manager, error) {
	if err := ValidateTree(doc.Tree()); err != nil {
		return nil, err
	}

	sd, err := doc.Child(keyTerrain)
	if err != nil {
		return nil, err
	}
	s, err := DecodeSettings(sd)
	if err != nil {
		return nil, err
	}
	nd, err := doc.Child(keyNoise)
	if err != nil {
		return nil, err
	}
	ns, err := DecodeNoise(nd)
	if err != nil {
		return nil, err
	}

	m, err := New(s, ns)
	if err != nil {
		return nil, err
	}

	if doc.Has(keyOrigin) {
		o, err := doc.Float32s(keyOrigin)
		if err != nil {
			return nil, err
		}
		if len(o) != 3 {
			return nil, fmt.Errorf("%s: want 3 values, got %d", keyOrigin, len(o))
		}
		m.origin = mgl32.Vec3{o[0], o[1], o[2]}
	}

	if elements := doc.Sub(keyElements); elements != nil {
		if err := m.loadElements(elements); err != nil {
			return nil, err
		}
	}
	log.Printf("terrain: loaded document, %d edited tiles, %d noise layers", m.store.Len(), len(ns.Layers))
	return m, nil
}

func (m *Manager) loadElements(elements *document.Document) error {
	n := m.settings.VertexCount() * 3
	for _, key := range elements.SubKeys() {
		c, err := ParseKey(key)
		if err != nil {
			return fmt.Errorf("%s: %w", keyElements, err)
		}
		buf, err := elements.Sub(key).Float32s(keyDelta)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", keyElements, key, err)
		}
		if len(buf) != n {
			log.Printf("terrain: warning: tile %s has %d edit values, want %d; ignored", key, len(buf), n)
			continue
		}
		m.store.Put(c, buf)
	}
	return nil
}

// LoadFile reads, validates and decodes a terrain document.
func LoadFile(path string) (*Manager, error) {
	doc, err := document.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("terrain: load %s: %w", path, err)
	}
	m, err := NewFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("terrain: load %s: %w", path, err)
	}
	return m, nil
}
