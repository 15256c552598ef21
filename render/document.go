package render

import (
	"fmt"
	"log"

	"github.com/zeptools/fieldticket/pdfs"
)

// Row is one repeating-row entry keyed by column name
type Row map[string]string

// Document is the payload to overlay, keyed by the layout's names
type Document struct {
	Fields    map[string]string `json:"fields"`
	Boxes     map[string]string `json:"boxes"`
	Tables    map[string][]Row  `json:"tables"`
	Signature string            `json:"signature,omitempty"` // raw, base64 or data URL
}

type WarningKind string

const (
	WarnTruncated        WarningKind = "truncated"
	WarnClipped          WarningKind = "clipped"
	WarnRowsDropped      WarningKind = "rows_dropped"
	WarnSignatureSkipped WarningKind = "signature_skipped"
	WarnTemplateMismatch WarningKind = "template_mismatch"
	WarnUnknownTarget    WarningKind = "unknown_target"
)

// Warning is a recoverable condition met while rendering
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Target  string      `json:"target"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s: %s", w.Kind, w.Target, w.Message)
}

type RowReport struct {
	Rendered int `json:"rendered"`
	Dropped  int `json:"dropped"`
}

type Result struct {
	PDF      []byte
	PageSize pdfs.PaperSize
	Warnings []Warning
	Rows     map[string]RowReport
}

// RowsDropped is the number of rows dropped over all tables
func (r *Result) RowsDropped() int {
	n := 0
	for _, rep := range r.Rows {
		n += rep.Dropped
	}
	return n
}

func (r *Result) warn(kind WarningKind, target string, format string, args ...any) {
	w := Warning{Kind: kind, Target: target, Message: fmt.Sprintf(format, args...)}
	r.Warnings = append(r.Warnings, w)
	log.Printf("[WARN][RENDER] %s", w)
}
