package processing

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var (
	// ErrImageDecode is returned for malformed or unsupported raster bytes
	ErrImageDecode = errors.New("image decode failed")
	// ErrImageEncode is returned when a raster cannot be encoded
	ErrImageEncode = errors.New("image encode failed")
)

// Output encodings
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// DefaultQuality matches the usual JPEG writer default
const DefaultQuality = 75

// ParseFormat normalises an output format name
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s (use jpeg, png or webp)", s)
	}
}

// Processor decodes record images and encodes rendered results
type Processor struct {
	format   string
	quality  int
	lossless bool
}

// NewProcessor creates a processor that encodes JPEG at the default quality
func NewProcessor() *Processor {
	return &Processor{format: FormatJPEG, quality: DefaultQuality}
}

// NewProcessorWithFormat creates a processor for the given output format.
// quality applies to JPEG and lossy WebP; 0 selects DefaultQuality.
func NewProcessorWithFormat(format string, quality int, lossless bool) (*Processor, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if quality == 0 {
		quality = DefaultQuality
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("output quality must be between 1 and 100, got %d", quality)
	}
	return &Processor{format: f, quality: quality, lossless: lossless}, nil
}

// Format returns the output encoding name
func (p *Processor) Format() string {
	return p.format
}

// Decode decodes an image from byte data with WebP support and returns the
// detected format name
func (p *Processor) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty buffer", ErrImageDecode)
	}

	// Try registered decoders first
	img, format, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, format, nil
	}

	// Fallback: explicit WebP decode
	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return wimg, FormatWebP, nil
	}

	return nil, "", fmt.Errorf("%w: %v", ErrImageDecode, err)
}

// Encode encodes an image in the processor's output format. Formats without
// an alpha channel get an opaque RGB copy first.
func (p *Processor) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch p.format {
	case FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Lossless: p.lossless, Quality: float32(p.quality)})
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	default: // jpeg
		err = imaging.Encode(&buf, ToRGB(img), imaging.JPEG, imaging.JPEGQuality(p.quality))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageEncode, err)
	}
	return buf.Bytes(), nil
}

// DetectFormat returns the registered format name of encoded image bytes
// without decoding the pixels, or "" when no decoder recognises them
func DetectFormat(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return format
}

// Thumbnail re-encodes data so that its width is at most maxWidth. Images
// that are already small enough are returned unchanged.
func (p *Processor) Thumbnail(data []byte, maxWidth int) ([]byte, error) {
	if maxWidth <= 0 {
		return data, nil
	}
	img, _, err := p.Decode(data)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() <= maxWidth {
		return data, nil
	}
	return p.Encode(imaging.Resize(img, maxWidth, 0, imaging.Lanczos))
}

// ToRGB returns an opaque copy of img. Colour channels are kept as stored and
// the alpha channel is dropped, so palette and alpha images become plain RGB.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
