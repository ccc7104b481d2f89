package noise

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/bmp"
)

// Heightmap renders the combined height of all layers for a width*height
// window as a grayscale image, stretched so the lowest point is black and the
// highest is white.
func Heightmap(s Settings, worldOffset mgl32.Vec3, width, height int, spacing float32) *image.Gray {
	samples := SampleLayers(s, worldOffset, width, height, spacing)
	heights := make([]float32, width*height)
	lo, hi := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for z := 0; z < height; z++ {
		for x := 0; x < width; x++ {
			h := CombinedHeight(samples, s.Layers, x, z)
			heights[x+z*width] = h
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	span := hi - lo
	for z := 0; z < height; z++ {
		for x := 0; x < width; x++ {
			var v float32
			if span > 0 {
				v = (heights[x+z*width] - lo) / span
			}
			img.Pix[z*img.Stride+x] = uint8(v * 255)
		}
	}
	return img
}

// EncodePreview writes img as a BMP.
func EncodePreview(w io.Writer, img image.Image) error {
	if err := bmp.Encode(w, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// WritePreview writes img as a BMP file at path.
func WritePreview(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePreview(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
