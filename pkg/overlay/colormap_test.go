package overlay

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColormap(t *testing.T) {
	cm, err := ParseColormap(strings.NewReader("0,0,0\n128, 64, 0\n255,255,255\n"))
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, cm.At(0))
	assert.Equal(t, color.NRGBA{128, 64, 0, 255}, cm.At(1))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, cm.At(2))
	// rows not present in the file stay black
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, cm.At(3))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, cm.At(255))
}

func TestParseColormapFullTable(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < ColormapSize; i++ {
		fmt.Fprintf(&sb, "%d,%d,%d\n", i, 255-i, i/2)
	}
	cm, err := ParseColormap(strings.NewReader(sb.String()))
	require.NoError(t, err)

	for i := 0; i < ColormapSize; i++ {
		assert.Equal(t, color.NRGBA{uint8(i), uint8(255 - i), uint8(i / 2), 255}, cm.At(uint8(i)))
	}

	sb.WriteString("1,2,3\n")
	_, err = ParseColormap(strings.NewReader(sb.String()))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParseColormapMalformed(t *testing.T) {
	tests := []string{
		"1,2\n",
		"1,2,3,4\n",
		"1,2,x\n",
		"1,2,256\n",
		"-1,2,3\n",
		"0,0,0\n1,2\n",
	}
	for _, input := range tests {
		_, err := ParseColormap(strings.NewReader(input))
		assert.ErrorIs(t, err, ErrFormat, "input %q", input)
	}
}

func TestLoadColormap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "colormap.csv")
	require.NoError(t, os.WriteFile(path, []byte("10,20,30\n40,50,60\n"), 0o644))

	cm, err := LoadColormap(path)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{40, 50, 60, 255}, cm.At(1))

	_, err = LoadColormap(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestColormapLookupIsStable(t *testing.T) {
	cm := NewColormap(EarthPalette)
	first := make([]color.NRGBA, ColormapSize)
	for i := range first {
		first[i] = cm.At(uint8(i))
	}

	mask := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range mask.Pix {
		mask.Pix[i] = uint8(i)
	}
	cm.Colorize(mask)

	for i := range first {
		assert.Equal(t, first[i], cm.At(uint8(i)))
	}
}

func TestEarthPalette(t *testing.T) {
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, EarthPalette(0))
	assert.Equal(t, color.NRGBA{253, 250, 250, 255}, EarthPalette(1))
	assert.Equal(t, EarthPalette(0), EarthPalette(-3))
	assert.Equal(t, EarthPalette(1), EarthPalette(2))

	cm := NewColormap(EarthPalette)
	assert.Equal(t, EarthPalette(0), cm.At(0))
	assert.Equal(t, EarthPalette(1), cm.At(255))
	assert.Equal(t, EarthPalette(100.0/255), cm.At(100))
}

func TestColorize(t *testing.T) {
	cm, err := ParseColormap(strings.NewReader("1,2,3\n4,5,6\n"))
	require.NoError(t, err)

	mask := image.NewGray(image.Rect(0, 0, 3, 2))
	mask.Pix = []uint8{0, 1, 0, 1, 1, 7}

	out := cm.Colorize(mask)
	require.Equal(t, image.Rect(0, 0, 3, 2), out.Bounds())
	assert.Equal(t, color.NRGBA{1, 2, 3, 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{4, 5, 6, 255}, out.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{4, 5, 6, 255}, out.NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, out.NRGBAAt(2, 1))
}
