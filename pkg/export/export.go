// Package export writes the images of classification record files into an
// image folder laid out as <output>/<class label>/<filename>.
package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/menta2k/tfrecord-viewer/internal/utils"
	"github.com/menta2k/tfrecord-viewer/pkg/overlay"
	"github.com/menta2k/tfrecord-viewer/pkg/record"
)

// Options configures an Exporter
type Options struct {
	ImageKey        string
	FilenameKey     string
	ClassLabelKey   string
	OutputPath      string
	Compression     record.Compression
	VerifyChecksums bool
	Verbose         bool
	Logger          *log.Logger
}

// DefaultOptions returns the feature keys of TensorFlow classification datasets
func DefaultOptions() Options {
	return Options{
		ImageKey:        "image/encoded",
		FilenameKey:     "image/filename",
		ClassLabelKey:   "image/class/text",
		OutputPath:      "./images_from_tfrecord",
		Compression:     record.CompressionAuto,
		VerifyChecksums: true,
	}
}

// Stats counts what an export did
type Stats struct {
	Records     int
	Written     int
	Overwritten int
	Skipped     int
	Bytes       int64
}

// Exporter copies record images to disk unchanged
type Exporter struct {
	opts   Options
	logger *log.Logger
}

// New creates an Exporter
func New(opts Options) *Exporter {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Exporter{opts: opts, logger: logger}
}

// Run exports every record of the given files in order. Records missing a
// field are logged and skipped; unreadable files and write failures are
// returned joined after the remaining files have been processed.
func (e *Exporter) Run(ctx context.Context, paths []string) (Stats, error) {
	var stats Stats
	if err := utils.EnsureDir(e.opts.OutputPath); err != nil {
		return stats, fmt.Errorf("failed to create output directory: %w", err)
	}

	var errs []error
	for _, path := range paths {
		e.logger.Printf("Filename: %s", path)
		err := record.Iterate(ctx, path, e.opts.Compression, e.opts.VerifyChecksums, func(i int, data []byte) error {
			stats.Records++
			target, img, err := e.parse(data)
			if err != nil {
				stats.Skipped++
				e.logger.Printf("%s: record %d skipped: %v", path, i, err)
				return nil
			}
			overwritten, err := e.write(target, img)
			if err != nil {
				return err
			}
			if overwritten {
				stats.Overwritten++
			}
			stats.Written++
			stats.Bytes += int64(len(img))
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			errs = append(errs, err)
		}
	}

	e.logger.Printf("Exported %d of %d records (%s) to %s",
		stats.Written, stats.Records, utils.FormatFileSize(stats.Bytes), e.opts.OutputPath)
	return stats, errors.Join(errs...)
}

// parse returns the destination path and raw image bytes of a record
func (e *Exporter) parse(data []byte) (string, []byte, error) {
	rec, err := record.ParseExample(data)
	if err != nil {
		return "", nil, err
	}
	filename, ok := record.FirstString(rec, e.opts.FilenameKey)
	if !ok {
		return "", nil, fmt.Errorf("%w: filename key %q", overlay.ErrMissingField, e.opts.FilenameKey)
	}
	label, ok := record.FirstString(rec, e.opts.ClassLabelKey)
	if !ok {
		return "", nil, fmt.Errorf("%w: class label key %q", overlay.ErrMissingField, e.opts.ClassLabelKey)
	}
	img, ok := record.FirstBytes(rec, e.opts.ImageKey)
	if !ok {
		return "", nil, fmt.Errorf("%w: image key %q", overlay.ErrMissingField, e.opts.ImageKey)
	}
	target := filepath.Join(e.opts.OutputPath, utils.SanitizeFilename(label), utils.SanitizeFilename(filename))
	return target, img, nil
}

func (e *Exporter) write(target string, img []byte) (bool, error) {
	dir := filepath.Dir(target)
	if !utils.DirExists(dir) {
		if err := utils.EnsureDir(dir); err != nil {
			return false, fmt.Errorf("failed to create class directory: %w", err)
		}
		if e.opts.Verbose {
			e.logger.Printf("Creating class directory %s", dir)
		}
	}

	overwritten := utils.FileExists(target)
	if overwritten {
		e.logger.Printf("[Warning] file already exists, overwriting %s", target)
	}
	if err := os.WriteFile(target, img, 0o644); err != nil {
		return false, fmt.Errorf("failed to write image: %w", err)
	}
	return overwritten, nil
}
