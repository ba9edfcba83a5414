package overlay

import (
	"fmt"
	"image/color"
	"log"
	"strings"

	"github.com/menta2k/tfrecord-viewer/pkg/processing"
)

// Type names one of the overlay renderers
type Type string

const (
	TypeDetection      Type = "detection"
	TypeClassification Type = "classification"
	TypeSegmentation   Type = "segmentation"
	TypeNone           Type = "none"
)

// Types lists every overlay the factory can build
func Types() []Type {
	return []Type{TypeDetection, TypeClassification, TypeSegmentation, TypeNone}
}

// ParseType maps an overlay name to its Type
func ParseType(name string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	switch t {
	case TypeDetection, TypeClassification, TypeSegmentation, TypeNone:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q (use detection, classification, segmentation or none)", ErrUnknownOverlayType, name)
	}
}

// Colors used by the label-drawing renderers. Renderers copy them at
// construction.
type Colors struct {
	Default    color.NRGBA
	Highlight  color.NRGBA
	Background color.NRGBA
}

// DefaultColors returns blue labels, red highlights on white backgrounds
func DefaultColors() Colors {
	return Colors{
		Default:    color.NRGBA{R: 0, G: 0, B: 255, A: 255},
		Highlight:  color.NRGBA{R: 255, G: 0, B: 0, A: 255},
		Background: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Default font settings
const (
	DefaultFontPath = "./fonts/OpenSans-Regular.ttf"
	DefaultFontSize = 12
)

// DefaultBlendAlpha is the weight of the colorized mask in the segmentation blend
const DefaultBlendAlpha = 0.5

// Config holds the options shared by all renderers
type Config struct {
	ClassLabelKey string

	BBoxNameKey         string
	BBoxXMinKey         string
	BBoxXMaxKey         string
	BBoxYMinKey         string
	BBoxYMaxKey         string
	CoordinatesInPixels bool
	LabelsToHighlight   []string

	SegmapKey          string
	SegmapFormatKey    string
	SegmapRawDivisor   int
	SegmapColormapFile string
	SegmapBlendAlpha   float64

	FontPath string
	FontSize float64
	Colors   Colors

	OutputFormat  string
	OutputQuality int

	// StrictFields turns a missing class label into an error instead of an
	// empty label
	StrictFields bool

	Logger *log.Logger
}

// DefaultConfig returns the field names used by the TensorFlow object
// detection and DeepLab dataset tools
func DefaultConfig() Config {
	return Config{
		ClassLabelKey:     "image/class/text",
		BBoxNameKey:       "image/object/class/text",
		BBoxXMinKey:       "image/object/bbox/xmin",
		BBoxXMaxKey:       "image/object/bbox/xmax",
		BBoxYMinKey:       "image/object/bbox/ymin",
		BBoxYMaxKey:       "image/object/bbox/ymax",
		LabelsToHighlight: []string{"car"},
		SegmapKey:         "image/segmentation/class/encoded",
		SegmapFormatKey:   "image/segmentation/class/format",
		SegmapRawDivisor:  1,
		SegmapBlendAlpha:  DefaultBlendAlpha,
		FontPath:          DefaultFontPath,
		FontSize:          DefaultFontSize,
		Colors:            DefaultColors(),
		OutputFormat:      processing.FormatJPEG,
		OutputQuality:     processing.DefaultQuality,
	}
}

// ParseLabels splits a semicolon-delimited label list. Empty entries are
// dropped; labels are otherwise kept verbatim.
func ParseLabels(s string) []string {
	var labels []string
	for _, l := range strings.Split(s, ";") {
		if l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c Config) colors() Colors {
	if c.Colors == (Colors{}) {
		return DefaultColors()
	}
	return c.Colors
}

func (c Config) processor() (*processing.Processor, error) {
	return processing.NewProcessorWithFormat(c.OutputFormat, c.OutputQuality, false)
}

// HighlightPolicy picks the draw colour for a label by exact, case-sensitive
// membership in a fixed set
type HighlightPolicy struct {
	labels    map[string]struct{}
	normal    color.NRGBA
	highlight color.NRGBA
}

// NewHighlightPolicy creates a policy over labels
func NewHighlightPolicy(labels []string, normal, highlight color.NRGBA) HighlightPolicy {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return HighlightPolicy{labels: set, normal: normal, highlight: highlight}
}

// Color returns the highlight colour for members and the normal colour otherwise
func (p HighlightPolicy) Color(label string) color.NRGBA {
	if _, ok := p.labels[label]; ok {
		return p.highlight
	}
	return p.normal
}
