// Package overlay renders dataset annotations onto record images.
//
// Each renderer interprets one kind of annotation payload extracted from a
// record.Record and composites it onto a copy of the decoded image:
//
//   - Classification draws the class label in the top-left corner
//   - Detection draws labelled bounding boxes, highlighting selected labels
//   - Segmentation blends a colorized class-index mask over the image
//   - None passes the image bytes through untouched
//
// Renderers hold only immutable configuration (font, colormap, highlight
// set) and allocate every raster per call, so one instance may serve
// concurrent ApplyOverlay calls.
package overlay

import (
	"fmt"
	"image"

	"github.com/menta2k/tfrecord-viewer/pkg/processing"
	"github.com/menta2k/tfrecord-viewer/pkg/record"
)

// Renderer overlays one kind of annotation onto an encoded image
type Renderer interface {
	Type() Type
	// ApplyOverlay decodes data, draws the annotation found in rec and
	// returns the newly encoded image. data is never modified.
	ApplyOverlay(data []byte, rec record.Record) ([]byte, error)
}

// New builds the renderer for t. Construction-time failures (unknown type,
// unreadable colormap, bad output format) are returned here, before any
// record is processed.
func New(t Type, cfg Config) (Renderer, error) {
	switch t {
	case TypeDetection:
		return NewDetection(cfg)
	case TypeClassification:
		return NewClassification(cfg)
	case TypeSegmentation:
		return NewSegmentation(cfg)
	case TypeNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOverlayType, string(t))
	}
}

// NewByName parses name and builds the matching renderer
func NewByName(name string, cfg Config) (Renderer, error) {
	t, err := ParseType(name)
	if err != nil {
		return nil, err
	}
	return New(t, cfg)
}

// compositeFunc draws onto a fresh copy of src
type compositeFunc func(src image.Image, rec record.Record) (*image.NRGBA, error)

// apply runs decode -> composite -> encode
func apply(p *processing.Processor, data []byte, rec record.Record, composite compositeFunc) ([]byte, error) {
	img, _, err := p.Decode(data)
	if err != nil {
		return nil, err
	}
	out, err := composite(img, rec)
	if err != nil {
		return nil, err
	}
	return p.Encode(out)
}

// None is the identity renderer
type None struct{}

// Type returns TypeNone
func (None) Type() Type { return TypeNone }

// ApplyOverlay returns data unchanged
func (None) ApplyOverlay(data []byte, _ record.Record) ([]byte, error) {
	return data, nil
}
