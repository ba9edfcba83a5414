package overlay

import (
	"errors"

	"github.com/menta2k/tfrecord-viewer/pkg/processing"
)

var (
	// ErrMissingField reports a required field absent from the record. It is
	// recoverable: renderers log it and draw with an empty value unless
	// Config.StrictFields is set.
	ErrMissingField = errors.New("missing field")

	// ErrFormat reports malformed record content (mask size mismatch, bad
	// boxes) or a malformed colormap row
	ErrFormat = errors.New("format error")

	// ErrUnknownSegmentationFormat reports a segmentation format
	// discriminator other than "raw" or "png"
	ErrUnknownSegmentationFormat = errors.New("unknown segmentation format")

	// ErrUnknownOverlayType reports an overlay name the factory cannot build
	ErrUnknownOverlayType = errors.New("unknown overlay type")

	ErrImageDecode = processing.ErrImageDecode
	ErrImageEncode = processing.ErrImageEncode
)
