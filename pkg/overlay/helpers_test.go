package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
)

var gray = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// createTestImage creates a solid image of the given colour
func createTestImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// createGradientImage creates an image whose pixels all differ
func createGradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// testConfig returns the default configuration with lossless output and a
// silent logger
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.OutputFormat = "png"
	cfg.Logger = log.New(io.Discard, "", 0)
	return cfg
}

func samePixels(a, b *image.NRGBA) bool {
	return a.Bounds() == b.Bounds() && bytes.Equal(a.Pix, b.Pix)
}
