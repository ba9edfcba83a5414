package overlay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/disintegration/imaging"

	"github.com/menta2k/tfrecord-viewer/pkg/processing"
	"github.com/menta2k/tfrecord-viewer/pkg/record"
)

// Segmentation mask encodings
const (
	SegmapFormatRaw = "raw"
	SegmapFormatPNG = "png"
)

// Segmentation blends a colorized class-index mask over the image
type Segmentation struct {
	maskKey   string
	formatKey string
	divisor   int
	alpha     float64
	colormap  *Colormap
	strict    bool
	proc      *processing.Processor
	logger    *log.Logger
}

// NewSegmentation creates a segmentation renderer. The colormap is loaded
// from cfg.SegmapColormapFile, or built from EarthPalette when no file is
// configured.
func NewSegmentation(cfg Config) (*Segmentation, error) {
	proc, err := cfg.processor()
	if err != nil {
		return nil, err
	}
	if cfg.SegmapRawDivisor < 1 {
		return nil, fmt.Errorf("segmap raw divisor must be positive, got %d", cfg.SegmapRawDivisor)
	}
	alpha := cfg.SegmapBlendAlpha
	if alpha == 0 {
		alpha = DefaultBlendAlpha
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("segmap blend alpha must be between 0 and 1, got %g", alpha)
	}

	var cm *Colormap
	if cfg.SegmapColormapFile == "" {
		cm = NewColormap(EarthPalette)
	} else {
		cm, err = LoadColormap(cfg.SegmapColormapFile)
		if err != nil {
			return nil, err
		}
	}

	return &Segmentation{
		maskKey:   cfg.SegmapKey,
		formatKey: cfg.SegmapFormatKey,
		divisor:   cfg.SegmapRawDivisor,
		alpha:     alpha,
		colormap:  cm,
		strict:    cfg.StrictFields,
		proc:      proc,
		logger:    cfg.logger(),
	}, nil
}

// Type returns TypeSegmentation
func (s *Segmentation) Type() Type { return TypeSegmentation }

// Colormap returns the renderer's colormap
func (s *Segmentation) Colormap() *Colormap {
	return s.colormap
}

// ApplyOverlay implements Renderer
func (s *Segmentation) ApplyOverlay(data []byte, rec record.Record) ([]byte, error) {
	return apply(s.proc, data, rec, s.Composite)
}

// Composite blends the colorized mask over src. A record without mask
// fields is returned unblended unless strict fields are enabled.
func (s *Segmentation) Composite(src image.Image, rec record.Record) (*image.NRGBA, error) {
	b := src.Bounds()
	mask, err := s.Mask(rec, b.Dx(), b.Dy())
	if errors.Is(err, ErrMissingField) && !s.strict {
		s.logger.Printf("segmentation: %v, drawing no mask", err)
		return imaging.Clone(src), nil
	}
	if err != nil {
		return nil, err
	}
	colored := s.colormap.Colorize(mask)
	return imaging.Overlay(src, colored, b.Min, s.alpha), nil
}

// Mask decodes the per-pixel class indices of a record. The result always
// has the given width and height.
func (s *Segmentation) Mask(rec record.Record, width, height int) (*image.Gray, error) {
	format, ok := record.FirstString(rec, s.formatKey)
	if !ok {
		return nil, fmt.Errorf("%w: segmentation format key %q", ErrMissingField, s.formatKey)
	}
	data, ok := record.FirstBytes(rec, s.maskKey)
	if !ok {
		return nil, fmt.Errorf("%w: segmentation key %q", ErrMissingField, s.maskKey)
	}

	switch format {
	case SegmapFormatRaw:
		return decodeRawMask(data, width, height, s.divisor)
	case SegmapFormatPNG:
		img, _, err := s.proc.Decode(data)
		if err != nil {
			return nil, err
		}
		return maskFromImage(img, width, height)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSegmentationFormat, format)
	}
}

// decodeRawMask reads little-endian int32 values, one per pixel, and
// floor-divides each by divisor. Results outside 0..255 are clamped.
func decodeRawMask(data []byte, width, height, divisor int) (*image.Gray, error) {
	n := width * height
	if len(data) != 4*n {
		return nil, fmt.Errorf("%w: raw mask has %d bytes, want %d for %dx%d int32 values",
			ErrFormat, len(data), 4*n, width, height)
	}

	mask := image.NewGray(image.Rect(0, 0, width, height))
	d := int64(divisor)
	for i := 0; i < n; i++ {
		v := int64(int32(binary.LittleEndian.Uint32(data[4*i:])))
		q := v / d
		if (v%d != 0) && (v < 0) {
			q--
		}
		mask.Pix[i] = uint8(clampInt(int(q), 0, 255))
	}
	return mask, nil
}

// maskFromImage converts a decoded single-channel image into class indices.
// Gray images are used as is, paletted images contribute their palette
// indices and anything else is reduced to luminance. TensorFlow's
// decode_image converts paletted PNGs to luminance instead, so VOC style
// palette masks yield their class indices here rather than gray levels.
func maskFromImage(img image.Image, width, height int) (*image.Gray, error) {
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("%w: mask is %dx%d, image is %dx%d", ErrFormat, b.Dx(), b.Dy(), width, height)
	}

	mask := image.NewGray(image.Rect(0, 0, width, height))
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < height; y++ {
			copy(mask.Pix[y*mask.Stride:y*mask.Stride+width], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	case *image.Paletted:
		for y := 0; y < height; y++ {
			copy(mask.Pix[y*mask.Stride:y*mask.Stride+width], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				mask.Pix[y*mask.Stride+x] = g.Y
			}
		}
	}
	return mask, nil
}
