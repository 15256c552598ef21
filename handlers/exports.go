package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/zeptools/fieldticket/jobs"
	"github.com/zeptools/fieldticket/requests"
	"github.com/zeptools/fieldticket/responses"
	"github.com/zeptools/fieldticket/ticket"
	"github.com/zeptools/fieldticket/timesheet"
)

// Export outcome headers
const (
	HeaderExportOK     = "X-Export-Ok"
	HeaderExportFailed = "X-Export-Failed"
)

type exportRequest struct {
	Tickets    []ticket.ServiceTicket `json:"tickets"`
	Timesheets []timesheet.Timesheet  `json:"timesheets"`
}

func (req *exportRequest) jobs() ([]*jobs.Job, error) {
	batch := make([]*jobs.Job, 0, len(req.Tickets)+len(req.Timesheets))
	for i := range req.Tickets {
		job, err := jobs.FromTicket(&req.Tickets[i])
		if err != nil {
			return nil, indexed("tickets", i, err)
		}
		batch = append(batch, job)
	}
	for i := range req.Timesheets {
		job, err := jobs.FromTimesheet(&req.Timesheets[i])
		if err != nil {
			return nil, indexed("timesheets", i, err)
		}
		batch = append(batch, job)
	}
	return batch, nil
}

func (a *API) exportBatch(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	n := len(req.Tickets) + len(req.Timesheets)
	if n == 0 || n > MaxBatch {
		responses.WriteErrorJSON(w, http.StatusBadRequest, responses.CodeInvalidPayload,
			fmt.Sprintf("a batch holds 1 to %d documents, got %d", MaxBatch, n))
		return
	}
	batch, err := req.jobs()
	if err != nil {
		responses.WriteInvalidPayloadJSON(w, err.Error(), requests.ValidationMessages(err))
		return
	}
	if a.Exporter == nil {
		responses.WriteSimpleErrorJSON(w, http.StatusServiceUnavailable, "export disabled")
		return
	}
	// buffered so that a failure can still change the status
	var buf bytes.Buffer
	sum, err := a.Exporter.Export(r.Context(), batch, &buf)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			log.Printf("[WARN][EXPORT] client went away: %v", err)
			return
		}
		log.Printf("[ERROR][EXPORT] %v", err)
		responses.WriteSimpleErrorJSON(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set(HeaderExportOK, strconv.Itoa(sum.OK))
	w.Header().Set(HeaderExportFailed, strconv.Itoa(sum.Failed))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	responses.WriteXZResponseHeaders(w, "export-"+time.Now().UTC().Format("20060102-150405")+".tar.xz")
	if _, err = buf.WriteTo(w); err != nil {
		log.Printf("[ERROR][EXPORT] writing archive: %v", err)
	}
}
