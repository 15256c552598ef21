// Package fpdfw implements pdfs.Writer with go-pdf/fpdf, importing the
// template page through its gofpdi contrib package
package fpdfw

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/zeptools/fieldticket/pdfs"
	"github.com/zeptools/fieldticket/rw"
)

const templateBox = "/MediaBox"

type Writer struct {
	pdf       *fpdf.Fpdf
	importer  *gofpdi.Importer
	translate func(string) string // UTF-8 -> cp1252 for the core fonts
	page      pdfs.PaperSize
	loaded    bool
}

// Ensure fpdfw.Writer implements pdfs.Writer
var _ pdfs.Writer = (*Writer)(nil)

func New() *Writer {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	return &Writer{
		pdf:       pdf,
		importer:  gofpdi.NewImporter(),
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

// Factory is a pdfs.WriterFactory
func Factory() pdfs.Writer {
	return New()
}

func (w *Writer) LoadTemplate(template []byte) (size pdfs.PaperSize, err error) {
	if w.loaded {
		return pdfs.PaperSize{}, errors.New("template already loaded")
	}
	if len(template) == 0 {
		return pdfs.PaperSize{}, errors.New("empty template")
	}
	// the importer panics on malformed input
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import template: %v", r)
		}
	}()
	rs := io.ReadSeeker(bytes.NewReader(template))
	tpl := w.importer.ImportPageFromStream(w.pdf, &rs, 1, templateBox)
	if w.pdf.Err() {
		return pdfs.PaperSize{}, fmt.Errorf("import template: %w", w.pdf.Error())
	}
	boxes, ok := w.importer.GetPageSizes()[1]
	if !ok {
		return pdfs.PaperSize{}, errors.New("template has no page 1")
	}
	box, ok := boxes[templateBox]
	if !ok || box["w"] <= 0 || box["h"] <= 0 {
		return pdfs.PaperSize{}, errors.New("template page 1 has no usable media box")
	}
	w.page = pdfs.NamedPaperSize(box["w"], box["h"])
	w.pdf.AddPageFormat("P", fpdf.SizeType{Wd: w.page.Width, Ht: w.page.Height})
	w.importer.UseImportedTemplate(w.pdf, tpl, 0, 0, w.page.Width, w.page.Height)
	if w.pdf.Err() {
		return pdfs.PaperSize{}, fmt.Errorf("place template: %w", w.pdf.Error())
	}
	w.loaded = true
	return w.page, nil
}

func (w *Writer) SetFont(family string, style string, size float64) {
	w.pdf.SetFont(family, style, size)
}

// Text converts the bottom-left based y into fpdf's top-left based y
func (w *Writer) Text(x float64, y float64, text string) {
	if !w.loaded {
		w.pdf.SetErrorf("text drawn before template was loaded")
		return
	}
	w.pdf.Text(x, w.page.Height-y, w.translate(text))
}

func (w *Writer) Image(name string, img image.Image, x float64, y float64, width float64, height float64) error {
	if !w.loaded {
		return errors.New("image drawn before template was loaded")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	w.pdf.RegisterImageOptionsReader(name, opts, &buf)
	if w.pdf.Err() {
		err := w.pdf.Error()
		w.pdf.ClearError() // a bad image must not poison the rest of the document
		return fmt.Errorf("register %s: %w", name, err)
	}
	w.pdf.ImageOptions(name, x, w.page.Height-y-height, width, height, false, opts, 0, "")
	return nil
}

func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	if !w.loaded {
		return 0, errors.New("no template loaded")
	}
	cw := rw.NewCountWriter(dst)
	err := w.pdf.Output(cw)
	return cw.BytesWritten(), err
}

func (w *Writer) ProduceBytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
