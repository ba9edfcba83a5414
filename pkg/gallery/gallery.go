// Package gallery preloads rendered record images into memory and serves
// them as a browsable web page.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cespare/xxhash/v2"

	"github.com/menta2k/tfrecord-viewer/internal/utils"
	"github.com/menta2k/tfrecord-viewer/pkg/overlay"
	"github.com/menta2k/tfrecord-viewer/pkg/processing"
	"github.com/menta2k/tfrecord-viewer/pkg/record"
	"github.com/menta2k/tfrecord-viewer/pkg/types"
)

// DefaultMaxImages bounds how many images a gallery holds
const DefaultMaxImages = 200

// Image is one preloaded gallery entry
type Image struct {
	types.EncodedImage
	Index    int    `json:"index"`
	Path     string `json:"path"`
	Record   int    `json:"record"`
	Filename string `json:"filename"`
	Caption  string `json:"caption"`
}

// Options controls how records are loaded
type Options struct {
	ImageKey        string
	FilenameKey     string
	MaxImages       int
	Compression     record.Compression
	VerifyChecksums bool
	// Dedupe skips records whose rendered bytes equal an already loaded image
	Dedupe bool
	// ThumbnailWidth downsizes wider images when positive
	ThumbnailWidth int
	// Renderer defaults to overlay.None
	Renderer overlay.Renderer
	// Processor encodes thumbnails; defaults to JPEG output
	Processor *processing.Processor
	Verbose   bool
	Logger    *log.Logger
}

// DefaultOptions returns the options of a plain image gallery
func DefaultOptions() Options {
	return Options{
		ImageKey:        "image/encoded",
		FilenameKey:     "image/filename",
		MaxImages:       DefaultMaxImages,
		Compression:     record.CompressionAuto,
		VerifyChecksums: true,
	}
}

// Stats summarises a preload
type Stats struct {
	Records    int
	Loaded     int
	Skipped    int
	Duplicates int
	Bytes      int64
}

// Gallery is an ordered set of preloaded images. It is not modified after
// Preload returns, so it may be read from many goroutines.
type Gallery struct {
	paths  []string
	images []Image
	stats  Stats
}

// Preload reads the record files in order, renders every record and keeps
// the first MaxImages results. A record that cannot be parsed or rendered is
// logged and skipped. A file that cannot be read stops loading that file
// only; those errors are joined and returned together with the gallery.
func Preload(ctx context.Context, paths []string, opts Options) (*Gallery, error) {
	l := newLoader(opts)
	g := &Gallery{paths: append([]string(nil), paths...)}

	var errs []error
	for _, path := range paths {
		if l.full(g) {
			break
		}
		l.logger.Printf("Filename: %s", path)
		err := record.Iterate(ctx, path, opts.Compression, opts.VerifyChecksums, func(i int, data []byte) error {
			if l.full(g) {
				return record.ErrStop
			}
			g.stats.Records++
			img, err := l.load(path, i, data)
			if err != nil {
				g.stats.Skipped++
				l.logger.Printf("%s: record %d skipped: %v", path, i, err)
				return nil
			}
			if l.duplicate(img.Data) {
				g.stats.Duplicates++
				if l.verbose {
					l.logger.Printf("%s: record %d is a duplicate, skipped", path, i)
				}
				return nil
			}
			img.Index = len(g.images)
			g.images = append(g.images, img)
			g.stats.Loaded++
			g.stats.Bytes += int64(len(img.Data))
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return g, ctxErr
			}
			errs = append(errs, err)
		}
	}

	l.logger.Printf("Loaded %d examples (%s)", g.stats.Loaded, utils.FormatFileSize(g.stats.Bytes))
	return g, errors.Join(errs...)
}

type loader struct {
	imageKey    string
	filenameKey string
	max         int
	renderer    overlay.Renderer
	proc        *processing.Processor
	thumbWidth  int
	dedupe      bool
	seen        map[uint64]struct{}
	verbose     bool
	logger      *log.Logger
}

func newLoader(opts Options) *loader {
	l := &loader{
		imageKey:    opts.ImageKey,
		filenameKey: opts.FilenameKey,
		max:         opts.MaxImages,
		renderer:    opts.Renderer,
		proc:        opts.Processor,
		thumbWidth:  opts.ThumbnailWidth,
		dedupe:      opts.Dedupe,
		seen:        make(map[uint64]struct{}),
		verbose:     opts.Verbose,
		logger:      opts.Logger,
	}
	if l.max <= 0 {
		l.max = DefaultMaxImages
	}
	if l.renderer == nil {
		l.renderer = overlay.None{}
	}
	if l.proc == nil {
		l.proc = processing.NewProcessor()
	}
	if l.logger == nil {
		l.logger = log.Default()
	}
	return l
}

func (l *loader) full(g *Gallery) bool {
	return len(g.images) >= l.max
}

// load turns one serialized example into a gallery image
func (l *loader) load(path string, index int, data []byte) (Image, error) {
	rec, err := record.ParseExample(data)
	if err != nil {
		return Image{}, err
	}
	filename, ok := record.FirstString(rec, l.filenameKey)
	if !ok {
		return Image{}, fmt.Errorf("%w: filename key %q", overlay.ErrMissingField, l.filenameKey)
	}
	raw, ok := record.FirstBytes(rec, l.imageKey)
	if !ok {
		return Image{}, fmt.Errorf("%w: image key %q", overlay.ErrMissingField, l.imageKey)
	}
	if l.verbose {
		l.logger.Printf("Record %d: %s (%s)", index, filename, utils.FormatFileSize(int64(len(raw))))
	}

	rendered, err := l.renderer.ApplyOverlay(raw, rec)
	if err != nil {
		return Image{}, err
	}
	if l.thumbWidth > 0 {
		rendered, err = l.proc.Thumbnail(rendered, l.thumbWidth)
		if err != nil {
			return Image{}, err
		}
	}

	return Image{
		EncodedImage: types.EncodedImage{Data: rendered, Format: processing.DetectFormat(rendered)},
		Path:         path,
		Record:       index,
		Filename:     filename,
		Caption:      path + ":" + filename,
	}, nil
}

func (l *loader) duplicate(data []byte) bool {
	if !l.dedupe {
		return false
	}
	sum := xxhash.Sum64(data)
	if _, ok := l.seen[sum]; ok {
		return true
	}
	l.seen[sum] = struct{}{}
	return false
}

// Len returns the number of loaded images
func (g *Gallery) Len() int {
	return len(g.images)
}

// Image returns the image at index
func (g *Gallery) Image(index int) (Image, bool) {
	if index < 0 || index >= len(g.images) {
		return Image{}, false
	}
	return g.images[index], true
}

// Images returns a copy of the image list in load order
func (g *Gallery) Images() []Image {
	return append([]Image(nil), g.images...)
}

// Paths returns the record files the gallery was loaded from
func (g *Gallery) Paths() []string {
	return append([]string(nil), g.paths...)
}

// Stats returns the preload counters
func (g *Gallery) Stats() Stats {
	return g.stats
}
