package pdfs

import (
	"image"
	"io"
)

// Writer is a single-page overlay writer on top of an imported template page.
// Coordinates are PDF user space in `pt`: origin bottom-left, y upward.
// A Writer is used for one document only
type Writer interface {
	// LoadTemplate imports the first page of the template as the page background
	// and returns the template's page size
	LoadTemplate(template []byte) (PaperSize, error)

	SetFont(family string, style string, size float64)

	// Text draws text with its baseline starting at (x, y)
	Text(x float64, y float64, text string)

	// Image draws img with its bottom-left corner at (x, y) scaled to w x h
	Image(name string, img image.Image, x float64, y float64, w float64, h float64) error

	WriteTo(w io.Writer) (int64, error)
	ProduceBytes() ([]byte, error)
}

// WriterFactory returns a fresh Writer per document
type WriterFactory func() Writer
