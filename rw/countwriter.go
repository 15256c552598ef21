package rw

import (
	"errors"
	"io"
)

var ErrLimitExceeded = errors.New("write limit exceeded")

// CountWriter passes writes through to the wrapped writer and keeps the total.
// With a positive Max, a write that would go past Max is refused with ErrLimitExceeded
type CountWriter struct {
	w   io.Writer
	n   int64
	Max int64
}

func NewCountWriter(w io.Writer) *CountWriter {
	return &CountWriter{w: w}
}

func NewLimitedCountWriter(w io.Writer, max int64) *CountWriter {
	return &CountWriter{w: w, Max: max}
}

// Write implements io.Writer
func (cw *CountWriter) Write(p []byte) (int, error) {
	if cw.Max > 0 && cw.n+int64(len(p)) > cw.Max {
		return 0, ErrLimitExceeded
	}
	n, err := cw.w.Write(p)
	cw.n += int64(n) // Write() can be called many times by a single encoder
	return n, err
}

// BytesWritten returns the total number of bytes written
func (cw *CountWriter) BytesWritten() int64 {
	return cw.n
}
