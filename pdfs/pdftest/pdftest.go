// Package pdftest provides blank templates and an in-memory template source for tests
package pdftest

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"codeberg.org/go-pdf/fpdf"

	"github.com/zeptools/fieldticket/templates"
)

// Template builds a one-page PDF of the named paper size ("Letter", "A4", ...)
func Template(tb testing.TB, size string, title string) []byte {
	tb.Helper()
	pdf := fpdf.New("P", "pt", size, "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(40, 40, title)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		tb.Fatalf("pdftest: build %s template: %v", size, err)
	}
	return buf.Bytes()
}

// Source serves templates from memory
type Source map[string][]byte

var _ templates.Source = Source(nil)

func (s Source) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", templates.ErrNotFound, name)
	}
	return data, nil
}

// Builtins returns a Source holding Letter templates for the built-in layouts
func Builtins(tb testing.TB) Source {
	tb.Helper()
	return Source{
		"service-ticket.pdf": Template(tb, "Letter", "SERVICE TICKET"),
		"timesheet.pdf":      Template(tb, "Letter", "TIMESHEET"),
	}
}
