package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/menta2k/tfrecord-viewer/internal/utils"
	"github.com/menta2k/tfrecord-viewer/pkg/export"
	"github.com/menta2k/tfrecord-viewer/pkg/record"
)

func main() {
	opts := export.DefaultOptions()
	var compression string

	flag.StringVar(&opts.ImageKey, "image-key", opts.ImageKey, "key to the encoded image")
	flag.StringVar(&opts.FilenameKey, "filename-key", opts.FilenameKey, "key to the unique ID of each record")
	flag.StringVar(&opts.ClassLabelKey, "class-label-key", opts.ClassLabelKey, "key to the image label")
	flag.StringVar(&opts.OutputPath, "output_path", opts.OutputPath, "path to export images from tfrecords")
	flag.StringVar(&compression, "compression", string(opts.Compression), "record file compression: auto|none|gzip|zlib|zstd")
	flag.BoolVar(&opts.VerifyChecksums, "verify-checksums", opts.VerifyChecksums, "verify record CRC32C checksums")
	flag.BoolVar(&opts.Verbose, "v", false, "increase output verbosity")
	flag.BoolVar(&opts.Verbose, "verbose", false, "increase output verbosity")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("usage: %s [flags] <tfrecord files or directories...>", filepath.Base(os.Args[0]))
	}

	c, err := record.ParseCompression(compression)
	if err != nil {
		log.Fatal(err)
	}
	opts.Compression = c

	paths, err := utils.ExpandRecordPaths(flag.Args())
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := export.New(opts).Run(ctx, paths)
	if err != nil {
		log.Fatalf("export finished with errors: %v", err)
	}
	log.Printf("wrote %d images (%d overwritten, %d skipped)", stats.Written, stats.Overwritten, stats.Skipped)
}
