package processing

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// createTestImage creates a simple gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"", FormatJPEG, false},
		{"jpg", FormatJPEG, false},
		{"JPEG", FormatJPEG, false},
		{"png", FormatPNG, false},
		{" webp ", FormatWebP, false},
		{"bmp", "", true},
	}

	for _, test := range tests {
		got, err := ParseFormat(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", test.input, err, test.wantErr)
			continue
		}
		if got != test.expected {
			t.Errorf("ParseFormat(%q) = %s, expected %s", test.input, got, test.expected)
		}
	}
}

func TestNewProcessorWithFormat(t *testing.T) {
	p, err := NewProcessorWithFormat("png", 0, false)
	if err != nil {
		t.Fatalf("NewProcessorWithFormat failed: %v", err)
	}
	if p.Format() != FormatPNG {
		t.Errorf("Expected format png, got %s", p.Format())
	}
	if p.quality != DefaultQuality {
		t.Errorf("Expected default quality %d, got %d", DefaultQuality, p.quality)
	}

	if _, err := NewProcessorWithFormat("jpeg", 101, false); err == nil {
		t.Error("Expected error for quality above 100")
	}
	if _, err := NewProcessorWithFormat("tiff", 90, false); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestDecodeFormats(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(32, 24)

	var pngBuf, jpgBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(&jpgBuf, img, nil); err != nil {
		t.Fatal(err)
	}

	for name, data := range map[string][]byte{"png": pngBuf.Bytes(), "jpeg": jpgBuf.Bytes()} {
		decoded, format, err := p.Decode(data)
		if err != nil {
			t.Fatalf("Decode %s failed: %v", name, err)
		}
		if format != name {
			t.Errorf("Expected format %s, got %s", name, format)
		}
		if decoded.Bounds().Dx() != 32 || decoded.Bounds().Dy() != 24 {
			t.Errorf("Expected 32x24, got %v", decoded.Bounds())
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	p := NewProcessor()

	if _, _, err := p.Decode(nil); !errors.Is(err, ErrImageDecode) {
		t.Errorf("Expected ErrImageDecode for empty buffer, got %v", err)
	}
	if _, _, err := p.Decode([]byte("not an image")); !errors.Is(err, ErrImageDecode) {
		t.Errorf("Expected ErrImageDecode for garbage, got %v", err)
	}
}

func TestEncodePNGIsLossless(t *testing.T) {
	p, _ := NewProcessorWithFormat("png", 0, false)
	img := createTestImage(16, 16)

	data, err := p.Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, format, err := p.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if format != "png" {
		t.Errorf("Expected png, got %s", format)
	}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			r1, g1, b1, _ := img.At(x, y).RGBA()
			r2, g2, b2, _ := decoded.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 {
				t.Fatalf("Pixel (%d,%d) changed after png round trip", x, y)
			}
		}
	}
}

func TestEncodeJPEGDropsAlpha(t *testing.T) {
	p := NewProcessor()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = 200
		img.Pix[i+1] = 40
		img.Pix[i+2] = 40
		img.Pix[i+3] = 0 // fully transparent
	}

	data, err := p.Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, _, err := p.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	r, _, _, _ := decoded.At(4, 4).RGBA()
	if r>>8 < 150 {
		t.Errorf("Expected colour channels to survive alpha removal, got red %d", r>>8)
	}
}

func TestToRGB(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{
		color.NRGBA{10, 20, 30, 255},
		color.NRGBA{0, 0, 0, 0},
	})
	pal.SetColorIndex(1, 1, 1)

	rgb := ToRGB(pal)
	if rgb.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("Unexpected bounds %v", rgb.Bounds())
	}
	if got := rgb.NRGBAAt(0, 0); got != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("Expected palette colour, got %v", got)
	}
	if got := rgb.NRGBAAt(1, 1); got.A != 255 {
		t.Errorf("Expected opaque pixel, got alpha %d", got.A)
	}
}

func BenchmarkEncodeJPEG(b *testing.B) {
	p := NewProcessor()
	img := createTestImage(640, 480)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Encode(img)
	}
}

func TestThumbnail(t *testing.T) {
	p, err := NewProcessorWithFormat("png", 0, false)
	if err != nil {
		t.Fatalf("NewProcessorWithFormat failed: %v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(200, 100)); err != nil {
		t.Fatal(err)
	}

	small, err := p.Thumbnail(buf.Bytes(), 50)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	img, _, err := p.Decode(small)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 25 {
		t.Errorf("Expected 50x25, got %v", img.Bounds())
	}

	same, err := p.Thumbnail(buf.Bytes(), 400)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if !bytes.Equal(same, buf.Bytes()) {
		t.Error("Expected small image to be returned unchanged")
	}
}

func TestDetectFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(4, 4)); err != nil {
		t.Fatal(err)
	}
	if got := DetectFormat(buf.Bytes()); got != FormatPNG {
		t.Errorf("Expected png, got %q", got)
	}
	if got := DetectFormat([]byte("not an image")); got != "" {
		t.Errorf("Expected empty format, got %q", got)
	}
}
