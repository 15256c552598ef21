// Package handlers is the HTTP API over the document renderer
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/zeptools/fieldticket/archive"
	"github.com/zeptools/fieldticket/export"
	"github.com/zeptools/fieldticket/jobs"
	"github.com/zeptools/fieldticket/layout"
	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/requests"
	"github.com/zeptools/fieldticket/responses"
	"github.com/zeptools/fieldticket/routing"
)

const (
	DefaultMaxBodyBytes = 8 << 20 // signatures come inline
	MaxBatch            = 200
	archiveTimeout      = 3 * time.Second
)

// Uploader delivers a rendered PDF without blocking the response
type Uploader interface {
	Deliver(filename string, pdf []byte, done chan<- error)
}

type API struct {
	Runner         *jobs.Runner
	Exporter       *export.Exporter
	Uploader       Uploader         // nil disables ?upload=1
	Archive        archive.Recorder // nil disables archiving
	MaxBodyBytes   int64
	RenderWrappers []routing.HandlerWrapper // applied to render and export routes, e.g. throttling
}

// Register mounts the API under /api/v1/
func (a *API) Register(r routing.Router) {
	r.Group("/api/v1/", func(v1 *routing.RouteGroup) {
		v1.HandleFunc("POST tickets/render", a.renderTicket, a.RenderWrappers...)
		v1.HandleFunc("POST timesheets/render", a.renderTimesheet, a.RenderWrappers...)
		v1.HandleFunc("POST exports", a.exportBatch, a.RenderWrappers...)
		v1.HandleFunc("POST tickets/totals", a.ticketTotals)
		v1.HandleFunc("GET layouts", a.listLayouts)
	}, routing.Recover)
}

func (a *API) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	limit := a.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			responses.WriteErrorJSON(w, http.StatusRequestEntityTooLarge, responses.CodeInvalidPayload, "payload too large")
			return false
		}
		responses.WriteErrorJSON(w, http.StatusBadRequest, responses.CodeInvalidPayload, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// writeJobError maps payload, layout and template failures onto statuses
func writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrPayload):
		responses.WriteInvalidPayloadJSON(w, err.Error(), requests.ValidationMessages(err))
	case errors.Is(err, layout.ErrUnknown):
		responses.WriteErrorJSON(w, http.StatusNotFound, responses.CodeUnknownLayout, err.Error())
	case errors.Is(err, render.ErrTemplate):
		log.Printf("[ERROR][RENDER] %v", err)
		responses.WriteErrorJSON(w, http.StatusBadGateway, responses.CodeTemplateUnavailable, err.Error())
	case errors.Is(err, render.ErrLayout):
		log.Printf("[ERROR][RENDER] %v", err)
		responses.WriteErrorJSON(w, http.StatusInternalServerError, responses.CodeLayoutMismatch, err.Error())
	default:
		log.Printf("[ERROR][RENDER] %v", err)
		responses.WriteSimpleErrorJSON(w, http.StatusInternalServerError, "render failed")
	}
}

// respondPDF renders job and answers with the PDF
func (a *API) respondPDF(w http.ResponseWriter, r *http.Request, job *jobs.Job) {
	if name := r.URL.Query().Get("layout"); name != "" {
		job.Layout = name
	}
	res, err := a.Runner.Run(r.Context(), job)
	if err != nil {
		writeJobError(w, err)
		return
	}
	if r.URL.Query().Get("upload") == "1" {
		if a.Uploader != nil {
			a.Uploader.Deliver(job.Filename, res.PDF, nil)
		} else {
			log.Printf("[WARN][UPLOAD] %s: upload requested but no upload endpoint is configured", job.Filename)
		}
	}
	a.archive(r.Context(), job, res)
	responses.SetRenderHeaders(w, len(res.Warnings), res.RowsDropped(), warningDetails(res)...)
	responses.WritePDFBytesWithFilename(w, job.Filename, res.PDF)
}

func warningDetails(res *render.Result) []string {
	details := make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		details = append(details, string(w.Kind)+":"+w.Target)
	}
	return details
}

// archive is best-effort: failures are logged only
func (a *API) archive(ctx context.Context, job *jobs.Job, res *render.Result) {
	if a.Archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := a.Archive.Insert(ctx, job.Record(res)); err != nil {
		log.Printf("[WARN][ARCHIVE] %s: %v", job.Filename, err)
	}
}

func (a *API) listLayouts(w http.ResponseWriter, _ *http.Request) {
	responses.EncodeWriteJSON(w, http.StatusOK, map[string][]string{"layouts": a.Runner.Layouts.Names()})
}

func indexed(prefix string, i int, err error) error {
	return fmt.Errorf("%s[%d]: %w", prefix, i, err)
}
