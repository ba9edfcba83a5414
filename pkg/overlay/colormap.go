package overlay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"
)

// ColormapSize is the number of class indices a colormap covers
const ColormapSize = 256

// Palette maps t in [0,1] to a colour
type Palette func(t float64) color.NRGBA

// Colormap is an immutable class index -> colour table
type Colormap struct {
	table [ColormapSize]color.NRGBA
}

// NewColormap samples a continuous palette at index/255
func NewColormap(p Palette) *Colormap {
	cm := &Colormap{}
	for i := range cm.table {
		cm.table[i] = p(float64(i) / (ColormapSize - 1))
	}
	return cm
}

// LoadColormap reads a CSV colormap file
func LoadColormap(path string) (*Colormap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open colormap file: %w", err)
	}
	defer f.Close()

	cm, err := ParseColormap(f)
	if err != nil {
		return nil, fmt.Errorf("colormap %s: %w", path, err)
	}
	return cm, nil
}

// ParseColormap parses one "R,G,B" row per index, starting at index 0.
// Indices without a row stay black.
func ParseColormap(r io.Reader) (*Colormap, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	cm := &Colormap{}
	for i := range cm.table {
		cm.table[i] = color.NRGBA{A: 255}
	}

	for i := 0; ; i++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		if i >= ColormapSize {
			return nil, fmt.Errorf("%w: more than %d colormap rows", ErrFormat, ColormapSize)
		}

		var rgb [3]uint8
		for j, field := range row {
			v, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil || v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: row %d: invalid channel value %q", ErrFormat, i, field)
			}
			rgb[j] = uint8(v)
		}
		cm.table[i] = color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
	}
	return cm, nil
}

// At returns the colour of a class index
func (c *Colormap) At(index uint8) color.NRGBA {
	return c.table[index]
}

// Colorize maps every mask pixel through the colormap
func (c *Colormap) Colorize(mask *image.Gray) *image.NRGBA {
	b := mask.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := mask.Pix[y*mask.Stride : y*mask.Stride+b.Dx()]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*4]
		for x, idx := range src {
			col := c.table[idx]
			row[x*4+0] = col.R
			row[x*4+1] = col.G
			row[x*4+2] = col.B
			row[x*4+3] = col.A
		}
	}
	return dst
}

// earthStops are the control points of the built-in palette: black through
// deep blue, sea green, grassland, sand and rock up to snow white
var earthStops = []struct {
	t       float64
	r, g, b float64
}{
	{0.00, 0, 0, 0},
	{0.10, 16, 36, 118},
	{0.22, 36, 84, 128},
	{0.33, 48, 117, 124},
	{0.45, 64, 140, 88},
	{0.58, 106, 155, 70},
	{0.70, 165, 166, 82},
	{0.82, 184, 153, 108},
	{0.92, 214, 190, 168},
	{1.00, 253, 250, 250},
}

// EarthPalette is a continuous earth-tone palette
func EarthPalette(t float64) color.NRGBA {
	if t <= 0 {
		s := earthStops[0]
		return color.NRGBA{R: uint8(s.r), G: uint8(s.g), B: uint8(s.b), A: 255}
	}
	for i := 1; i < len(earthStops); i++ {
		lo, hi := earthStops[i-1], earthStops[i]
		if t > hi.t {
			continue
		}
		f := (t - lo.t) / (hi.t - lo.t)
		return color.NRGBA{
			R: uint8(lo.r + f*(hi.r-lo.r) + 0.5),
			G: uint8(lo.g + f*(hi.g-lo.g) + 0.5),
			B: uint8(lo.b + f*(hi.b-lo.b) + 0.5),
			A: 255,
		}
	}
	s := earthStops[len(earthStops)-1]
	return color.NRGBA{R: uint8(s.r), G: uint8(s.g), B: uint8(s.b), A: 255}
}
