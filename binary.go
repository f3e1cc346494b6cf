package tsdemux

import (
	"io"

	"github.com/icza/bitio"
)

// WriterAndByteWriter is an io.Writer and io.ByteWriter at the same time.
type WriterAndByteWriter interface {
	io.Writer
	io.ByteWriter
}

// ReaderAndByteReader is an io.Reader and io.ByteReader at the same time.
type ReaderAndByteReader interface {
	io.Reader
	io.ByteReader
}

// TryReadFull fills p from r, recording any error on r.TryError instead
// of returning it, the bitio idiom used throughout the parsers here.
func TryReadFull(r *bitio.CountReader, p []byte) {
	if r.TryError == nil {
		_, r.TryError = io.ReadFull(r, p)
	}
}
