package pdfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamedPaperSize(t *testing.T) {
	assert.Equal(t, LetterSize, NamedPaperSize(612, 792))
	assert.Equal(t, LetterSize, NamedPaperSize(612.2, 791.9))
	assert.Equal(t, A4Size, NamedPaperSize(595.28, 841.89))

	legal := NamedPaperSize(612, 1008)
	assert.Equal(t, "612x1008", legal.Name)
	assert.Equal(t, 1008.0, legal.Height)
}

func TestTemplateStore(t *testing.T) {
	s := NewTemplateStore[[]byte]()
	s.Store("b.pdf", []byte("b"))
	s.Store("a.pdf", []byte("a"))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, s.Keys())

	got, ok := s.Get("a.pdf")
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), got)

	s.Remove("a.pdf")
	_, ok = s.Get("a.pdf")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}
