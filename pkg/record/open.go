package record

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression selects how a record file is decompressed
type Compression string

const (
	CompressionAuto Compression = "auto"
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZlib Compression = "zlib"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name. The empty string selects
// CompressionAuto.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressionAuto, nil
	case CompressionAuto, CompressionNone, CompressionGzip, CompressionZlib, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compression: %s (use auto, none, gzip, zlib or zstd)", s)
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b, 0x08}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// File is an open record file
type File struct {
	*Reader
	closers []io.Closer
}

// Open opens a record file. With CompressionAuto gzip and zstd streams are
// recognised by their magic bytes and zlib by a .zlib or .zz extension.
func Open(path string, compression Compression, verify bool) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file: %w", err)
	}

	br := bufio.NewReader(f)
	if compression == CompressionAuto || compression == "" {
		compression = detectCompression(path, br)
	}

	file := &File{closers: []io.Closer{f}}
	var r io.Reader = br
	switch compression {
	case CompressionNone:
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		file.closers = append(file.closers, zr)
		r = zr
	case CompressionZlib:
		zr, err := zlib.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open zlib stream: %w", err)
		}
		file.closers = append(file.closers, zr)
		r = zr
	case CompressionZstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		rc := zr.IOReadCloser()
		file.closers = append(file.closers, rc)
		r = rc
	default:
		f.Close()
		return nil, fmt.Errorf("unknown compression: %s", compression)
	}

	file.Reader = NewReader(r, verify)
	return file, nil
}

func detectCompression(path string, br *bufio.Reader) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zlib", ".zz":
		return CompressionZlib
	}
	head, _ := br.Peek(len(zstdMagic))
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(head, zstdMagic):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// Close releases the decompressor and the underlying file
func (f *File) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
