// Package tfviewer renders the annotations stored in TFRecord datasets on top
// of their images.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"net/http"
//
//		tfviewer "github.com/menta2k/tfrecord-viewer"
//		"github.com/menta2k/tfrecord-viewer/pkg/overlay"
//	)
//
//	func main() {
//		viewer, err := tfviewer.New(overlay.TypeDetection, overlay.DefaultConfig())
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		g, err := viewer.Preload(context.Background(), []string{"train.tfrecord"})
//		if err != nil {
//			log.Printf("some records could not be loaded: %v", err)
//		}
//
//		log.Fatal(http.ListenAndServe(":5000", viewer.Handler(g)))
//	}
//
// The package ties together the building blocks:
//
// 1. Record (pkg/record): TFRecord framing, compression and tf.train.Example decoding
// 2. Overlay (pkg/overlay): detection, classification and segmentation renderers
// 3. Gallery (pkg/gallery): preloading rendered images and serving them over HTTP
// 4. Export (pkg/export): writing classification datasets to an image folder
package tfviewer

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/menta2k/tfrecord-viewer/pkg/export"
	"github.com/menta2k/tfrecord-viewer/pkg/gallery"
	"github.com/menta2k/tfrecord-viewer/pkg/overlay"
	"github.com/menta2k/tfrecord-viewer/pkg/processing"
	"github.com/menta2k/tfrecord-viewer/pkg/record"
)

// Version of the viewer library
const Version = "1.0.0"

// Viewer renders records of TFRecord files with one overlay
type Viewer struct {
	renderer overlay.Renderer
	gallery  gallery.Options
	export   export.Options
	logger   *log.Logger
}

// New creates a Viewer with default gallery and export options
func New(t overlay.Type, cfg overlay.Config) (*Viewer, error) {
	return NewWithOptions(t, cfg, gallery.DefaultOptions(), export.DefaultOptions())
}

// NewWithOptions creates a Viewer with custom gallery and export options.
// The renderer and logger of the gallery options are taken from cfg.
func NewWithOptions(t overlay.Type, cfg overlay.Config, galleryOpts gallery.Options, exportOpts export.Options) (*Viewer, error) {
	renderer, err := overlay.New(t, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s overlay: %w", t, err)
	}
	proc, err := processing.NewProcessorWithFormat(cfg.OutputFormat, cfg.OutputQuality, false)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	galleryOpts.Renderer = renderer
	galleryOpts.Processor = proc
	galleryOpts.Logger = logger
	if exportOpts.Logger == nil {
		exportOpts.Logger = logger
	}

	return &Viewer{
		renderer: renderer,
		gallery:  galleryOpts,
		export:   exportOpts,
		logger:   logger,
	}, nil
}

// Renderer returns the overlay renderer
func (v *Viewer) Renderer() overlay.Renderer {
	return v.renderer
}

// RenderRecord draws the overlay on the image of a serialized tf.train.Example
// and returns the encoded result
func (v *Viewer) RenderRecord(data []byte) ([]byte, error) {
	rec, err := record.ParseExample(data)
	if err != nil {
		return nil, err
	}
	img, ok := record.FirstBytes(rec, v.gallery.ImageKey)
	if !ok {
		return nil, fmt.Errorf("%w: image key %q", overlay.ErrMissingField, v.gallery.ImageKey)
	}
	return v.renderer.ApplyOverlay(img, rec)
}

// Preload loads rendered records of the given files into a gallery
func (v *Viewer) Preload(ctx context.Context, paths []string) (*gallery.Gallery, error) {
	return gallery.Preload(ctx, paths, v.gallery)
}

// Handler serves a preloaded gallery
func (v *Viewer) Handler(g *gallery.Gallery) http.Handler {
	return gallery.Handler(g, v.logger)
}

// Export writes the raw images of the given files to an image folder
func (v *Viewer) Export(ctx context.Context, paths []string) (export.Stats, error) {
	return export.New(v.export).Run(ctx, paths)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
