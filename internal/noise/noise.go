// Package noise synthesizes deterministic height samples for terrain tiles.
//
// Every layer is sampled into a grayscale image (one byte of intensity per
// vertex) and the layers are summed into a height by CombinedHeight.
package noise

import (
	"image"
	"log"
	"math/rand"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
)

// permutationSeed fixes the Perlin lattice. Variation between worlds comes
// only from the seed offset applied to sample coordinates.
const permutationSeed = 0

// referenceVerts is the tile resolution at which HorizontalScale is defined.
const referenceVerts = 20.0

// Layer parameterizes one fbm noise layer.
type Layer struct {
	HorizontalScale float32
	VerticalScale   float32
	OffsetX         int
	OffsetZ         int
	Lacunarity      float32
	Gain            float32
	Octaves         int
	// SignedRange centers the samples on zero, giving heights in [-x, x]
	// instead of [0, 2x].
	SignedRange bool
}

// Settings is the global seed plus the ordered layer list.
type Settings struct {
	Seed   int64
	Layers []Layer
}

// Clone returns a deep copy so callers can hand settings to workers.
func (s Settings) Clone() Settings {
	layers := make([]Layer, len(s.Layers))
	copy(layers, s.Layers)
	return Settings{Seed: s.Seed, Layers: layers}
}

// NewLayer returns the layer a fresh editor row starts with.
func NewLayer() Layer {
	return Layer{
		HorizontalScale: 1,
		VerticalScale:   125,
		Lacunarity:      2,
		Gain:            0.5,
		Octaves:         6,
		SignedRange:     true,
	}
}

// NewSettings returns settings with a random seed and no layers.
func NewSettings() Settings {
	s := Settings{Seed: int64(rand.Intn(1999999) - 999999)}
	log.Printf("noise: new settings with seed %d", s.Seed)
	return s
}

// DefaultSettings returns the three-layer preset: two broad signed layers
// and one fine unsigned detail layer.
func DefaultSettings() Settings {
	s := NewSettings()
	s.Layers = []Layer{
		{HorizontalScale: 2, VerticalScale: 125, Lacunarity: 2, Gain: 0.5, Octaves: 6, SignedRange: true},
		{HorizontalScale: 3, VerticalScale: 125, Lacunarity: 2, Gain: 0.5, Octaves: 6, SignedRange: true},
		{HorizontalScale: 0.3, VerticalScale: 6, Lacunarity: 2, Gain: 0.5, Octaves: 6, SignedRange: false},
	}
	return s
}

// SampleLayer renders one layer for a tile whose corner sits at worldOffset.
// The result is width*height intensities laid out row-major in z
// (index x + z*width). Identical arguments give identical output.
func SampleLayer(layer Layer, worldOffset mgl32.Vec3, width, height int, spacing float32, globalSeed int64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	if width <= 0 || height <= 0 {
		return img
	}

	offsetX := float64(worldOffset.X()) + float64(layer.OffsetX) + float64(globalSeed)
	offsetZ := float64(worldOffset.Z()) + float64(layer.OffsetZ) + float64(globalSeed)

	// Scale against the smaller dimension so features keep their size
	// regardless of tile resolution.
	scale := float64(layer.HorizontalScale) * float64(min(width, height)) / referenceVerts
	aspect := float64(width) / float64(height)

	gen := generator(layer)

	for z := 0; z < height; z++ {
		for x := 0; x < width; x++ {
			nx := (float64(x)*float64(spacing) + offsetX) * (scale / float64(width))
			nz := (float64(z)*float64(spacing) + offsetZ) * (scale / float64(height))

			if width > height {
				nx *= aspect
			} else {
				nz /= aspect
			}

			p := gen.Noise2D(nx, nz)
			if p < -1 {
				p = -1
			}
			if p > 1 {
				p = 1
			}

			np := (p + 1) / 2
			img.Pix[z*img.Stride+x] = uint8(np * 255)
		}
	}

	return img
}

// SampleLayers renders every layer of s in order.
func SampleLayers(s Settings, worldOffset mgl32.Vec3, width, height int, spacing float32) []*image.Gray {
	samples := make([]*image.Gray, 0, len(s.Layers))
	for _, layer := range s.Layers {
		samples = append(samples, SampleLayer(layer, worldOffset, width, height, spacing, s.Seed))
	}
	return samples
}

// CombinedHeight sums every layer's contribution at grid cell (ix, iz).
// samples[i] must have been produced from layers[i].
func CombinedHeight(samples []*image.Gray, layers []Layer, ix, iz int) float32 {
	var h float32
	for i, img := range samples {
		if i >= len(layers) {
			break
		}
		if layers[i].VerticalScale == 0 {
			continue
		}
		v := float32(img.Pix[iz*img.Stride+ix])
		if layers[i].SignedRange {
			v -= 127.5
		}
		h += v / layers[i].VerticalScale
	}
	return h
}

func generator(layer Layer) *perlin.Perlin {
	// go-perlin divides each octave by alpha, so alpha is the inverse gain.
	alpha := 2.0
	if layer.Gain > 0 {
		alpha = 1 / float64(layer.Gain)
	}
	octaves := layer.Octaves
	if octaves < 1 {
		octaves = 1
	}
	return perlin.NewPerlin(alpha, float64(layer.Lacunarity), int32(octaves), permutationSeed)
}
