package noise

import (
	"bytes"
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testSettings() Settings {
	s := DefaultSettings()
	s.Seed = 4242
	return s
}

// TestSampleLayerDeterministic verifies identical inputs give bit-identical samples
func TestSampleLayerDeterministic(t *testing.T) {
	s := testSettings()
	offset := mgl32.Vec3{38, 0, -57}

	for i, layer := range s.Layers {
		a := SampleLayer(layer, offset, 20, 20, 1, s.Seed)
		b := SampleLayer(layer, offset, 20, 20, 1, s.Seed)
		if !bytes.Equal(a.Pix, b.Pix) {
			t.Errorf("layer %d not deterministic", i)
		}
	}
}

func TestCombinedHeightDeterministic(t *testing.T) {
	s := testSettings()
	offset := mgl32.Vec3{-19, 0, 19}

	a := SampleLayers(s, offset, 16, 24, 0.5)
	b := SampleLayers(s, offset, 16, 24, 0.5)
	for z := 0; z < 24; z++ {
		for x := 0; x < 16; x++ {
			ha := CombinedHeight(a, s.Layers, x, z)
			hb := CombinedHeight(b, s.Layers, x, z)
			if ha != hb {
				t.Fatalf("height at (%d,%d) differs: %v != %v", x, z, ha, hb)
			}
		}
	}
}

// TestSampleLayerTileSeam verifies the shared edge of two neighbouring tiles samples identically
func TestSampleLayerTileSeam(t *testing.T) {
	s := testSettings()
	const verts = 20
	tileW := float32(verts - 1)

	for i, layer := range s.Layers {
		left := SampleLayer(layer, mgl32.Vec3{0, 0, 0}, verts, verts, 1, s.Seed)
		right := SampleLayer(layer, mgl32.Vec3{tileW, 0, 0}, verts, verts, 1, s.Seed)
		for z := 0; z < verts; z++ {
			l := left.Pix[z*left.Stride+verts-1]
			r := right.Pix[z*right.Stride]
			if l != r {
				t.Errorf("layer %d seam mismatch at z=%d: %d != %d", i, z, l, r)
			}
		}
	}
}

func TestSampleLayerShape(t *testing.T) {
	img := SampleLayer(NewLayer(), mgl32.Vec3{}, 7, 3, 1, 1)
	if b := img.Bounds(); b.Dx() != 7 || b.Dy() != 3 {
		t.Fatalf("expected 7x3 image, got %v", b)
	}
	if len(img.Pix) != 21 {
		t.Errorf("expected 21 samples, got %d", len(img.Pix))
	}
}

func TestCombinedHeightCenter(t *testing.T) {
	img := SampleLayer(NewLayer(), mgl32.Vec3{}, 2, 2, 1, 0)
	img.Pix[0] = 255

	signed := []Layer{{VerticalScale: 1, SignedRange: true}}
	unsigned := []Layer{{VerticalScale: 1, SignedRange: false}}

	if got := CombinedHeight([]*image.Gray{img}, signed, 0, 0); got != 127.5 {
		t.Errorf("signed layer: expected 127.5, got %v", got)
	}
	if got := CombinedHeight([]*image.Gray{img}, unsigned, 0, 0); got != 255 {
		t.Errorf("unsigned layer: expected 255, got %v", got)
	}
}

func TestCombinedHeightSumsLayers(t *testing.T) {
	a := SampleLayer(NewLayer(), mgl32.Vec3{}, 1, 1, 1, 0)
	b := SampleLayer(NewLayer(), mgl32.Vec3{}, 1, 1, 1, 0)
	a.Pix[0] = 100
	b.Pix[0] = 50
	layers := []Layer{{VerticalScale: 2}, {VerticalScale: 5}}

	got := CombinedHeight([]*image.Gray{a, b}, layers, 0, 0)
	if got != 60 {
		t.Errorf("expected 100/2 + 50/5 = 60, got %v", got)
	}
}

func TestHeightmapPreview(t *testing.T) {
	img := Heightmap(testSettings(), mgl32.Vec3{}, 32, 32, 1)
	var buf bytes.Buffer
	if err := EncodePreview(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf.Len() == 0 || !bytes.HasPrefix(buf.Bytes(), []byte("BM")) {
		t.Errorf("expected BMP output, got %d bytes", buf.Len())
	}
}

func BenchmarkSampleLayer(b *testing.B) {
	s := testSettings()
	for i := 0; i < b.N; i++ {
		SampleLayer(s.Layers[0], mgl32.Vec3{float32(i), 0, 0}, 20, 20, 1, s.Seed)
	}
}
