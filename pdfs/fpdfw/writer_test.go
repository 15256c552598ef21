package fpdfw

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/fieldticket/pdfs"
	"github.com/zeptools/fieldticket/pdfs/pdftest"
)

func makeTemplate(t *testing.T, size string) []byte {
	return pdftest.Template(t, size, "SERVICE TICKET")
}

func TestOverlayOnTemplate(t *testing.T) {
	w := New()
	page, err := w.LoadTemplate(makeTemplate(t, "Letter"))
	require.NoError(t, err)
	assert.Equal(t, pdfs.LetterSize, page)

	w.SetFont("Helvetica", "", 9)
	w.Text(50, 742, "ACME Fire & Safety – café")
	require.NoError(t, w.Image("signature", image.NewGray(image.Rect(0, 0, 40, 10)), 50, 67, 100, 25))

	out, err := w.ProduceBytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	var buf bytes.Buffer
	n, err := New().WriteTo(&buf)
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestLoadTemplateA4(t *testing.T) {
	page, err := New().LoadTemplate(makeTemplate(t, "A4"))
	require.NoError(t, err)
	assert.Equal(t, "A4", page.Name)
}

func TestLoadTemplateRejectsGarbage(t *testing.T) {
	_, err := New().LoadTemplate([]byte("this is not a pdf"))
	assert.Error(t, err)
	_, err = New().LoadTemplate(nil)
	assert.Error(t, err)
}

func TestLoadTemplateTwice(t *testing.T) {
	w := New()
	tpl := makeTemplate(t, "Letter")
	_, err := w.LoadTemplate(tpl)
	require.NoError(t, err)
	_, err = w.LoadTemplate(tpl)
	assert.Error(t, err)
}

func TestTextBeforeTemplate(t *testing.T) {
	w := New()
	w.SetFont("Helvetica", "", 9)
	w.Text(10, 10, "early")
	assert.Error(t, w.Image("x", image.NewGray(image.Rect(0, 0, 1, 1)), 0, 0, 1, 1))
	_, err := w.ProduceBytes()
	assert.Error(t, err)
}
