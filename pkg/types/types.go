package types

import (
	"fmt"
	"math"
)

// CoordSpace tags the unit bounding box coordinates are expressed in
type CoordSpace int

const (
	// Fractional coordinates are in [0,1] relative to image width/height
	Fractional CoordSpace = iota
	// Pixel coordinates are absolute image pixels
	Pixel
)

func (s CoordSpace) String() string {
	switch s {
	case Fractional:
		return "fractional"
	case Pixel:
		return "pixel"
	default:
		return fmt.Sprintf("CoordSpace(%d)", int(s))
	}
}

// BBox represents a labelled bounding box. The coordinate unit is carried in
// Space so a box can never be converted to pixels twice.
type BBox struct {
	Label string     `json:"label"`
	XMin  float64    `json:"xmin"`
	XMax  float64    `json:"xmax"`
	YMin  float64    `json:"ymin"`
	YMax  float64    `json:"ymax"`
	Space CoordSpace `json:"space"`
}

// ToPixels returns the box in pixel space for an image of the given size.
// Boxes already in pixel space are returned unchanged.
func (b BBox) ToPixels(width, height int) BBox {
	if b.Space == Pixel {
		return b
	}
	fw, fh := float64(width), float64(height)
	return BBox{
		Label: b.Label,
		XMin:  b.XMin * fw,
		XMax:  b.XMax * fw,
		YMin:  b.YMin * fh,
		YMax:  b.YMax * fh,
		Space: Pixel,
	}
}

// Valid reports whether min <= max holds on both axes
func (b BBox) Valid() bool {
	return b.XMin <= b.XMax && b.YMin <= b.YMax
}

// Clamp limits every coordinate to the given range. Infinite values are
// pulled onto the range as well, so the result can always be rounded.
func (b BBox) Clamp(minX, minY, maxX, maxY float64) BBox {
	b.XMin = clampFloat(b.XMin, minX, maxX)
	b.XMax = clampFloat(b.XMax, minX, maxX)
	b.YMin = clampFloat(b.YMin, minY, maxY)
	b.YMax = clampFloat(b.YMax, minY, maxY)
	return b
}

// Corners returns the rounded, inclusive pixel corners of a pixel-space box
func (b BBox) Corners() (x0, y0, x1, y1 int) {
	return round(b.XMin), round(b.YMin), round(b.XMax), round(b.YMax)
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64) int {
	return int(math.Round(v))
}

// EncodedImage is a compressed raster together with its encoding name
// ("jpeg", "png", "webp", ...)
type EncodedImage struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
}

// ContentType returns the MIME type for the image encoding
func (e EncodedImage) ContentType() string {
	switch e.Format {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
