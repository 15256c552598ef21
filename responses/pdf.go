package responses

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
)

// Render outcome headers
const (
	HeaderRenderWarnings     = "X-Render-Warnings"
	HeaderRenderWarningKinds = "X-Render-Warning-Kinds"
	HeaderRowsDropped        = "X-Rows-Dropped"

	// MaxWarningDetails caps the entries listed in HeaderRenderWarningKinds
	MaxWarningDetails = 20
)

func WritePDFBytesWithFilename(w http.ResponseWriter, filename string, PDFBytes []byte) {
	w.Header().Set("Content-Length", strconv.Itoa(len(PDFBytes)))
	WritePDFResponseHeaders(w, filename)
	_, err := w.Write(PDFBytes)
	if err != nil {
		log.Printf("[ERROR] writing PDF to response: %v", err)
	}
}

// WritePDFResponseHeaders write HTTP response headers for PDF response. i.e. headers are frozen
func WritePDFResponseHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.WriteHeader(http.StatusOK) // Response Header Sent & Frozen
}

// SetRenderHeaders must be called before the body is written.
// details are "kind:target" pairs, listed once each in order of first appearance
func SetRenderHeaders(w http.ResponseWriter, warnings int, rowsDropped int, details ...string) {
	w.Header().Set(HeaderRenderWarnings, strconv.Itoa(warnings))
	w.Header().Set(HeaderRowsDropped, strconv.Itoa(rowsDropped))
	if len(details) == 0 {
		return
	}
	seen := make(map[string]bool, len(details))
	listed := make([]string, 0, min(len(details), MaxWarningDetails))
	for _, d := range details {
		if seen[d] || len(listed) == MaxWarningDetails {
			continue
		}
		seen[d] = true
		listed = append(listed, d)
	}
	w.Header().Set(HeaderRenderWarningKinds, strings.Join(listed, ", "))
}

// WriteXZResponseHeaders prepares a streamed .tar.xz download. i.e. headers are frozen
func WriteXZResponseHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "application/x-xz")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}
