package record

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrStop can be returned by an Iterate callback to end iteration early
// without reporting an error
var ErrStop = errors.New("stop iteration")

// Iterate opens a record file and calls fn with the index and bytes of every
// record in order. It returns the first framing error, the first error
// returned by fn other than ErrStop, or the context error once ctx is done.
func Iterate(ctx context.Context, path string, compression Compression, verify bool, fn func(index int, data []byte) error) error {
	f, err := Open(path, compression, verify)
	if err != nil {
		return err
	}
	defer f.Close()

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := f.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: record %d: %w", path, i, err)
		}
		if err := fn(i, data); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}
