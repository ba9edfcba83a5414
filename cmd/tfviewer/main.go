package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tfviewer "github.com/menta2k/tfrecord-viewer"
	"github.com/menta2k/tfrecord-viewer/internal/config"
	"github.com/menta2k/tfrecord-viewer/internal/utils"
	"github.com/menta2k/tfrecord-viewer/pkg/export"
	"github.com/menta2k/tfrecord-viewer/pkg/gallery"
)

type cliOptions struct {
	configPath string
	saveConfig string
	verbose    bool
}

func newFlagSet(cfg *config.Config, opts *cliOptions) *flag.FlagSet {
	fs := flag.NewFlagSet("tfviewer", flag.ExitOnError)
	fs.StringVar(&opts.configPath, "config", "", "JSON config file; flags override its values (default "+config.GetConfigPath()+" if present)")
	fs.StringVar(&opts.saveConfig, "save-config", "", "write the effective configuration to this file and exit")
	fs.BoolVar(&opts.verbose, "v", false, "increase output verbosity")
	fs.BoolVar(&opts.verbose, "verbose", false, "increase output verbosity")

	fs.StringVar(&cfg.Record.ImageKey, "image-key", cfg.Record.ImageKey, "key to the encoded image")
	fs.StringVar(&cfg.Record.FilenameKey, "filename-key", cfg.Record.FilenameKey, "key to the unique ID of each record")
	fs.StringVar(&cfg.Record.Compression, "compression", cfg.Record.Compression, "record file compression: auto|none|gzip|zlib|zstd")
	fs.BoolVar(&cfg.Record.VerifyChecksums, "verify-checksums", cfg.Record.VerifyChecksums, "verify record CRC32C checksums")

	fs.IntVar(&cfg.Server.MaxImages, "max-images", cfg.Server.MaxImages, "max. number of images to load")
	fs.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "host/IP to start the server on")
	fs.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "port to start the server on")
	fs.IntVar(&cfg.Server.ThumbnailWidth, "thumbnail-width", cfg.Server.ThumbnailWidth, "downsize wider images to this width, 0=original")
	fs.BoolVar(&cfg.Server.Dedupe, "dedupe", cfg.Server.Dedupe, "skip records whose rendered image was already loaded")

	fs.StringVar(&cfg.Overlay.Overlay, "overlay", cfg.Overlay.Overlay, "overlay to display: detection|classification|segmentation|none")

	fs.StringVar(&cfg.Overlay.BBoxNameKey, "bbox-name-key", cfg.Overlay.BBoxNameKey, "key to the bbox label")
	fs.StringVar(&cfg.Overlay.BBoxXMinKey, "bbox-xmin-key", cfg.Overlay.BBoxXMinKey, "key to the bbox xmin coordinates")
	fs.StringVar(&cfg.Overlay.BBoxXMaxKey, "bbox-xmax-key", cfg.Overlay.BBoxXMaxKey, "key to the bbox xmax coordinates")
	fs.StringVar(&cfg.Overlay.BBoxYMinKey, "bbox-ymin-key", cfg.Overlay.BBoxYMinKey, "key to the bbox ymin coordinates")
	fs.StringVar(&cfg.Overlay.BBoxYMaxKey, "bbox-ymax-key", cfg.Overlay.BBoxYMaxKey, "key to the bbox ymax coordinates")
	fs.BoolVar(&cfg.Overlay.CoordinatesInPixels, "coordinates-in-pixels", cfg.Overlay.CoordinatesInPixels, "bounding box coordinates are in pixels, not fractions of the image size")
	fs.Var(&cfg.Overlay.LabelsToHighlight, "labels-to-highlight", "semicolon separated labels whose boxes are drawn red instead of blue")

	fs.StringVar(&cfg.Record.ClassLabelKey, "class-label-key", cfg.Record.ClassLabelKey, "key to the image class label")

	fs.StringVar(&cfg.Overlay.SegmapKey, "segmap-key", cfg.Overlay.SegmapKey, "key to the segmentation map")
	fs.StringVar(&cfg.Overlay.SegmapFormatKey, "segmap-format-key", cfg.Overlay.SegmapFormatKey, "key to the segmentation map format (raw|png)")
	fs.IntVar(&cfg.Overlay.SegmapRawDivisor, "segmap-raw-divisor-key", cfg.Overlay.SegmapRawDivisor, "divisor applied to raw segmentation values")
	fs.StringVar(&cfg.Overlay.SegmapColormapFile, "segmap-colormap-file", cfg.Overlay.SegmapColormapFile, "CSV file with one R,G,B row per class index")
	fs.Float64Var(&cfg.Overlay.SegmapBlendAlpha, "segmap-blend-alpha", cfg.Overlay.SegmapBlendAlpha, "weight of the segmentation colours in the blend (0..1)")

	fs.StringVar(&cfg.Overlay.FontPath, "font-path", cfg.Overlay.FontPath, "TrueType font for labels")
	fs.Float64Var(&cfg.Overlay.FontSize, "font-size", cfg.Overlay.FontSize, "label font size in pixels")
	fs.BoolVar(&cfg.Overlay.StrictFields, "strict-fields", cfg.Overlay.StrictFields, "skip records with missing label or mask fields instead of drawing nothing")

	fs.StringVar(&cfg.Output.Format, "output-format", cfg.Output.Format, "encoding of rendered images: jpeg|png|webp")
	fs.IntVar(&cfg.Output.Quality, "output-quality", cfg.Output.Quality, "JPEG/WebP quality of rendered images (1-100)")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] <tfrecord files or directories...>\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}
	return fs
}

// loadConfig parses the command line. When a config file is used the flags
// are parsed a second time on top of it, so explicit flags win.
func loadConfig(args []string) (*config.Config, cliOptions, []string) {
	var opts cliOptions
	cfg := config.Default()
	fs := newFlagSet(cfg, &opts)
	fs.Parse(args)

	path := opts.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path == "" {
		return cfg, opts, fs.Args()
	}

	fileCfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatal(err)
	}
	fs = newFlagSet(fileCfg, &opts)
	fs.Parse(args)
	return fileCfg, opts, fs.Args()
}

func main() {
	cfg, opts, args := loadConfig(os.Args[1:])
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if opts.saveConfig != "" {
		if err := cfg.SaveToFile(opts.saveConfig); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", opts.saveConfig)
		return
	}
	if len(args) == 0 {
		log.Fatalf("usage: %s [flags] <tfrecord files or directories...>", filepath.Base(os.Args[0]))
	}

	paths, err := utils.ExpandRecordPaths(args)
	if err != nil {
		log.Fatal(err)
	}

	overlayType, err := cfg.OverlayType()
	if err != nil {
		log.Fatal(err)
	}

	galleryOpts := gallery.Options{
		ImageKey:        cfg.Record.ImageKey,
		FilenameKey:     cfg.Record.FilenameKey,
		MaxImages:       cfg.Server.MaxImages,
		Compression:     cfg.Compression(),
		VerifyChecksums: cfg.Record.VerifyChecksums,
		Dedupe:          cfg.Server.Dedupe,
		ThumbnailWidth:  cfg.Server.ThumbnailWidth,
		Verbose:         opts.verbose,
	}

	viewer, err := tfviewer.NewWithOptions(overlayType, cfg.RenderConfig(log.Default()), galleryOpts, export.DefaultOptions())
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Pre-loading up to %d examples..", cfg.Server.MaxImages)
	g, err := viewer.Preload(ctx, paths)
	if err != nil {
		if ctx.Err() != nil {
			log.Fatal("interrupted")
		}
		log.Printf("warning: %v", err)
	}
	stats := g.Stats()
	log.Printf("Loaded %d examples (%d skipped, %d duplicates)", stats.Loaded, stats.Skipped, stats.Duplicates)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           viewer.Handler(g),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Serving %s overlay on http://%s", overlayType, cfg.Addr())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
