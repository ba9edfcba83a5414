package record

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// ErrCorrupt is returned for truncated frames and checksum mismatches
var ErrCorrupt = errors.New("corrupt record")

const (
	headerSize = 12
	footerSize = 4
	crcMask    = 0xa282ead8

	// maxRecordSize guards against allocating garbage lengths when checksums
	// are not verified
	maxRecordSize = 1 << 30
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func maskedCRC(b []byte) uint32 {
	c := crc32.Checksum(b, castagnoli)
	return ((c >> 15) | (c << 17)) + crcMask
}

// Reader reads length-delimited TFRecord frames
type Reader struct {
	r      *bufio.Reader
	verify bool
	header [headerSize]byte
	footer [footerSize]byte
}

// NewReader creates a Reader. When verify is set the length and data CRCs of
// every frame are checked.
func NewReader(r io.Reader, verify bool) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br, verify: verify}
}

// Next returns the payload of the next frame, or io.EOF at a clean end of
// input
func (r *Reader) Next() ([]byte, error) {
	if _, err := io.ReadFull(r.r, r.header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
		}
		return nil, err
	}

	length := binary.LittleEndian.Uint64(r.header[:8])
	if r.verify && maskedCRC(r.header[:8]) != binary.LittleEndian.Uint32(r.header[8:]) {
		return nil, fmt.Errorf("%w: length checksum mismatch", ErrCorrupt)
	}
	if length > maxRecordSize {
		return nil, fmt.Errorf("%w: record length %d exceeds limit", ErrCorrupt, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, truncated(err, "data")
	}
	if _, err := io.ReadFull(r.r, r.footer[:]); err != nil {
		return nil, truncated(err, "footer")
	}
	if r.verify && maskedCRC(data) != binary.LittleEndian.Uint32(r.footer[:]) {
		return nil, fmt.Errorf("%w: data checksum mismatch", ErrCorrupt)
	}
	return data, nil
}

func truncated(err error, part string) error {
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrCorrupt, part)
	}
	return err
}

// Writer writes TFRecord frames
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits one frame holding data
func (w *Writer) Write(data []byte) error {
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(len(data)))
	binary.LittleEndian.PutUint32(header[8:], maskedCRC(header[:8]))

	var footer [footerSize]byte
	binary.LittleEndian.PutUint32(footer[:], maskedCRC(data))

	if _, err := w.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	_, err := w.w.Write(footer[:])
	return err
}

// WriteExample marshals and writes an Example
func (w *Writer) WriteExample(f Features) error {
	return w.Write(f.Marshal())
}
