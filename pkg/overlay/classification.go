package overlay

import (
	"fmt"
	"image"
	"log"

	"github.com/disintegration/imaging"

	"github.com/menta2k/tfrecord-viewer/pkg/processing"
	"github.com/menta2k/tfrecord-viewer/pkg/record"
)

// labelInset is the distance of the class label from the top-left corner
const labelInset = 10

// Classification draws the record's class label in the top-left corner
type Classification struct {
	labelKey string
	strict   bool
	font     *Font
	colors   Colors
	proc     *processing.Processor
	logger   *log.Logger
}

// NewClassification creates a classification renderer
func NewClassification(cfg Config) (*Classification, error) {
	proc, err := cfg.processor()
	if err != nil {
		return nil, err
	}
	return &Classification{
		labelKey: cfg.ClassLabelKey,
		strict:   cfg.StrictFields,
		font:     LoadFont(cfg.FontPath, cfg.FontSize, cfg.Logger),
		colors:   cfg.colors(),
		proc:     proc,
		logger:   cfg.logger(),
	}, nil
}

// Type returns TypeClassification
func (c *Classification) Type() Type { return TypeClassification }

// Label returns the first value of the class label field
func (c *Classification) Label(rec record.Record) (string, error) {
	label, ok := record.FirstString(rec, c.labelKey)
	if !ok {
		return "", fmt.Errorf("%w: class label key %q", ErrMissingField, c.labelKey)
	}
	return label, nil
}

// ApplyOverlay implements Renderer
func (c *Classification) ApplyOverlay(data []byte, rec record.Record) ([]byte, error) {
	return apply(c.proc, data, rec, c.Composite)
}

// Composite draws the label on a white background at (10,10)
func (c *Classification) Composite(src image.Image, rec record.Record) (*image.NRGBA, error) {
	label, err := c.Label(rec)
	if err != nil {
		if c.strict {
			return nil, err
		}
		c.logger.Printf("classification: %v, drawing empty label", err)
	}

	face, err := c.font.NewFace()
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	dst := imaging.Clone(src)
	w, h := textSize(face, label)
	fillRect(dst, labelInset, labelInset, labelInset+4+w, labelInset+h, c.colors.Background)
	drawText(dst, face, labelInset, labelInset, label, c.colors.Default)
	return dst, nil
}
