package overlay

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Font is a parsed TrueType font loaded once per renderer. Faces hold glyph
// caches and are not safe for concurrent use, so NewFace hands out a fresh
// face for every render call.
type Font struct {
	otf      *opentype.Font
	size     float64
	fallback bool
}

// LoadFont parses the font at path. A missing or unreadable file falls back
// to the bundled Go Regular font and never fails.
func LoadFont(path string, size float64, logger *log.Logger) *Font {
	if size <= 0 {
		size = DefaultFontSize
	}
	if logger == nil {
		logger = log.Default()
	}

	if path != "" {
		otf, err := readFont(path)
		if err == nil {
			return &Font{otf: otf, size: size}
		}
		logger.Printf("font %s unavailable, using built-in font: %v", path, err)
	}

	otf, err := opentype.Parse(goregular.TTF)
	if err != nil {
		// basicfont is used when even the bundled font cannot be parsed
		return &Font{size: size, fallback: true}
	}
	return &Font{otf: otf, size: size, fallback: true}
}

func readFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return otf, nil
}

// Fallback reports whether the configured font could not be loaded
func (f *Font) Fallback() bool {
	return f.fallback
}

// NewFace returns a face for a single render call. Callers must Close it.
func (f *Font) NewFace() (font.Face, error) {
	if f.otf == nil {
		return basicfont.Face7x13, nil
	}
	// 72 DPI makes the point size equal to the pixel size
	return opentype.NewFace(f.otf, &opentype.FaceOptions{
		Size:    f.size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
