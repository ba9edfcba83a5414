package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/tfrecord-viewer/pkg/record"
)

func TestClassificationLabel(t *testing.T) {
	c, err := NewClassification(testConfig())
	require.NoError(t, err)

	label, err := c.Label(record.Features{"image/class/text": record.StringFeature("cat", "dog")})
	require.NoError(t, err)
	assert.Equal(t, "cat", label)

	_, err = c.Label(record.Features{})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestClassificationDrawsLabel(t *testing.T) {
	c, err := NewClassification(testConfig())
	require.NoError(t, err)
	src := createTestImage(100, 100, gray)

	dst, err := c.Composite(src, record.Features{"image/class/text": record.StringFeature("cat")})
	require.NoError(t, err)

	face, err := c.font.NewFace()
	require.NoError(t, err)
	defer face.Close()
	w, h := textSize(face, "cat")

	white := DefaultColors().Background
	assert.Equal(t, white, dst.NRGBAAt(10, 10), "background anchored at (10,10)")
	assert.Equal(t, white, dst.NRGBAAt(14+w, 10))
	assert.Equal(t, gray, dst.NRGBAAt(9, 10))
	assert.Equal(t, gray, dst.NRGBAAt(10, 9))
	assert.Equal(t, gray, dst.NRGBAAt(15+w, 12))
	assert.Equal(t, gray, dst.NRGBAAt(12, 11+h))

	// the label itself is drawn in the default colour inside the rectangle
	inked := 0
	for y := 10; y <= 10+h; y++ {
		for x := 10; x <= 14+w; x++ {
			p := dst.NRGBAAt(x, y)
			if p.B == 255 && p.R < 200 {
				inked++
			}
		}
	}
	assert.Greater(t, inked, 0)

	// and never outside it
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x >= 10 && x <= 14+w && y >= 10 && y <= 10+h {
				continue
			}
			require.Equal(t, gray, dst.NRGBAAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestClassificationMissingLabel(t *testing.T) {
	c, err := NewClassification(testConfig())
	require.NoError(t, err)

	dst, err := c.Composite(createTestImage(50, 50, gray), record.Features{})
	require.NoError(t, err)
	assert.Equal(t, DefaultColors().Background, dst.NRGBAAt(12, 12), "empty label still gets a background")

	cfg := testConfig()
	cfg.StrictFields = true
	strict, err := NewClassification(cfg)
	require.NoError(t, err)

	_, err = strict.Composite(createTestImage(50, 50, gray), record.Features{})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestClassificationCustomColors(t *testing.T) {
	cfg := testConfig()
	cfg.Colors = DefaultColors()
	cfg.Colors.Background = gray
	c, err := NewClassification(cfg)
	require.NoError(t, err)

	dst, err := c.Composite(createTestImage(50, 50, gray), record.Features{"image/class/text": record.StringFeature("x")})
	require.NoError(t, err)
	assert.Equal(t, gray, dst.NRGBAAt(10, 10))
}
