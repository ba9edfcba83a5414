package overlay

import (
	"fmt"
	"image"
	"log"

	"github.com/disintegration/imaging"

	"github.com/menta2k/tfrecord-viewer/pkg/processing"
	"github.com/menta2k/tfrecord-viewer/pkg/record"
	"github.com/menta2k/tfrecord-viewer/pkg/types"
)

// labelPadding is the horizontal padding in front of a box label
const labelPadding = 4

// Detection draws labelled bounding boxes
type Detection struct {
	nameKey string
	xminKey string
	xmaxKey string
	yminKey string
	ymaxKey string
	space   types.CoordSpace
	policy  HighlightPolicy
	font    *Font
	colors  Colors
	proc    *processing.Processor
	logger  *log.Logger
}

// NewDetection creates a detection renderer
func NewDetection(cfg Config) (*Detection, error) {
	proc, err := cfg.processor()
	if err != nil {
		return nil, err
	}
	space := types.Fractional
	if cfg.CoordinatesInPixels {
		space = types.Pixel
	}
	colors := cfg.colors()
	return &Detection{
		nameKey: cfg.BBoxNameKey,
		xminKey: cfg.BBoxXMinKey,
		xmaxKey: cfg.BBoxXMaxKey,
		yminKey: cfg.BBoxYMinKey,
		ymaxKey: cfg.BBoxYMaxKey,
		space:   space,
		policy:  NewHighlightPolicy(cfg.LabelsToHighlight, colors.Default, colors.Highlight),
		font:    LoadFont(cfg.FontPath, cfg.FontSize, cfg.Logger),
		colors:  colors,
		proc:    proc,
		logger:  cfg.logger(),
	}, nil
}

// Type returns TypeDetection
func (d *Detection) Type() Type { return TypeDetection }

// BBoxes extracts the boxes of a record in record order. A missing label
// field yields no boxes. Coordinate lists shorter than the label list and
// boxes with min > max are reported as ErrFormat.
func (d *Detection) BBoxes(rec record.Record) ([]types.BBox, error) {
	names, ok := rec.Bytes(d.nameKey)
	if !ok {
		d.logger.Printf("Bounding box key '%s' not present.", d.nameKey)
		return nil, nil
	}
	if len(names) == 0 {
		return nil, nil
	}

	coords := make([][]float32, 4)
	for i, key := range []string{d.xminKey, d.xmaxKey, d.yminKey, d.ymaxKey} {
		values, ok := rec.Floats(key)
		if !ok {
			return nil, fmt.Errorf("%w: bounding box key %q not present", ErrFormat, key)
		}
		if len(values) < len(names) {
			return nil, fmt.Errorf("%w: %q has %d values for %d labels", ErrFormat, key, len(values), len(names))
		}
		coords[i] = values
	}

	boxes := make([]types.BBox, len(names))
	for i, name := range names {
		box := types.BBox{
			Label: string(name),
			XMin:  float64(coords[0][i]),
			XMax:  float64(coords[1][i]),
			YMin:  float64(coords[2][i]),
			YMax:  float64(coords[3][i]),
			Space: d.space,
		}
		if !box.Valid() {
			return nil, fmt.Errorf("%w: box %d (%s) has inverted coordinates x=[%g,%g] y=[%g,%g]",
				ErrFormat, i, box.Label, box.XMin, box.XMax, box.YMin, box.YMax)
		}
		boxes[i] = box
	}
	return boxes, nil
}

// ApplyOverlay implements Renderer
func (d *Detection) ApplyOverlay(data []byte, rec record.Record) ([]byte, error) {
	return apply(d.proc, data, rec, d.Composite)
}

// Composite draws every box in record order, so later boxes paint over
// earlier ones. Boxes partially outside the image are clamped to its bounds,
// boxes entirely outside are skipped.
func (d *Detection) Composite(src image.Image, rec record.Record) (*image.NRGBA, error) {
	boxes, err := d.BBoxes(rec)
	if err != nil {
		return nil, err
	}

	dst := imaging.Clone(src)
	if len(boxes) == 0 {
		return dst, nil
	}

	face, err := d.font.NewFace()
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	width, height := dst.Bounds().Dx(), dst.Bounds().Dy()
	for i, box := range boxes {
		// one pixel of slack on each side keeps fully outside boxes detectable
		px := box.ToPixels(width, height).Clamp(-1, -1, float64(width), float64(height))
		x0, y0, x1, y1 := px.Corners()
		if x1 < 0 || y1 < 0 || x0 >= width || y0 >= height {
			d.logger.Printf("box %d (%s) outside %dx%d image, skipped", i, box.Label, width, height)
			continue
		}
		x0, x1 = clampInt(x0, 0, width-1), clampInt(x1, 0, width-1)
		y0, y1 = clampInt(y0, 0, height-1), clampInt(y1, 0, height-1)

		c := d.policy.Color(box.Label)
		outlineRect(dst, x0, y0, x1, y1, c)

		w, h := textSize(face, box.Label)
		fillRect(dst, x0, y0, x0+w+labelPadding, y0+h, d.colors.Background)
		drawText(dst, face, x0+labelPadding, y0, box.Label, c)
	}
	return dst, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
