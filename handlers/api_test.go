package handlers

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/zeptools/fieldticket/archive"
	"github.com/zeptools/fieldticket/export"
	"github.com/zeptools/fieldticket/jobs"
	"github.com/zeptools/fieldticket/layout"
	"github.com/zeptools/fieldticket/pdfs/fpdfw"
	"github.com/zeptools/fieldticket/pdfs/pdftest"
	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/responses"
	"github.com/zeptools/fieldticket/routing"
)

type memArchive struct {
	mu   sync.Mutex
	recs []*archive.Record
	err  error
}

func (m *memArchive) Insert(_ context.Context, rec *archive.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

type memUploader struct {
	mu    sync.Mutex
	names []string
}

func (u *memUploader) Deliver(filename string, _ []byte, _ chan<- error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, filename)
}

type fixture struct {
	router   *routing.BaseRouter
	archive  *memArchive
	uploader *memUploader
	source   pdftest.Source
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := layout.NewRegistry("")
	require.NoError(t, err)
	f := &fixture{
		router:   routing.NewRouter(),
		archive:  &memArchive{},
		uploader: &memUploader{},
		source:   pdftest.Builtins(t),
	}
	runner := &jobs.Runner{
		Layouts: reg,
		Renderer: &render.Renderer{
			Source:       f.source,
			NewWriter:    fpdfw.Factory,
			FetchRetries: -1,
		},
	}
	api := &API{
		Runner:   runner,
		Exporter: &export.Exporter{Runner: runner},
		Uploader: f.uploader,
		Archive:  f.archive,
	}
	api.Register(f.router)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) responses.Message {
	t.Helper()
	var msg responses.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg), rec.Body.String())
	return msg
}

const acmeTicket = `{
  "ticket_number": "T-1001",
  "date": "2024-03-14",
  "customer": {"name": "Acme Corp", "city": "Springfield"},
  "materials": [
    {"quantity": 2, "description": "Smoke detector", "unit_cost": 10},
    {"quantity": 1, "description": "Relay", "unit_cost": 5.5},
    {"quantity": 4, "description": "Wire nut pack", "unit_cost": 1.25}
  ],
  "labor": [
    {"technician": "Dana Ortiz", "date": "03/14", "rate": 140, "time_in": "8:00", "time_out": "12:15"}
  ]
}`

func materials(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf(`{"quantity": 1, "description": "Part %d", "unit_cost": 2}`, i+1)
	}
	return "[" + strings.Join(lines, ",") + "]"
}

func TestRenderTicket(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/tickets/render?upload=1", acmeTicket)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="ticket-T-1001.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "0", rec.Header().Get(responses.HeaderRowsDropped))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	assert.Equal(t, []string{"ticket-T-1001.pdf"}, f.uploader.names)
	require.Len(t, f.archive.recs, 1)
	assert.Equal(t, "T-1001", f.archive.recs[0].Reference)
	assert.InDelta(t, 625.5, f.archive.recs[0].GrandTotal, 0.001)
}

func TestRenderTicketDropsRows(t *testing.T) {
	f := newFixture(t)
	body := `{"ticket_number": "T-9", "customer": {"name": "Acme"}, "materials": ` + materials(9) + `}`
	rec := f.do(http.MethodPost, "/api/v1/tickets/render", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "3", rec.Header().Get(responses.HeaderRowsDropped))
	assert.NotEqual(t, "0", rec.Header().Get(responses.HeaderRenderWarnings))
	assert.Contains(t, rec.Header().Get(responses.HeaderRenderWarningKinds), "rows_dropped:table materials")
	assert.Empty(t, f.uploader.names)
	require.Len(t, f.archive.recs, 1)
	assert.Equal(t, 3, f.archive.recs[0].RowsDropped)
}

func TestRenderTicketArchiveFailureIgnored(t *testing.T) {
	f := newFixture(t)
	f.archive.err = fmt.Errorf("db down")
	rec := f.do(http.MethodPost, "/api/v1/tickets/render", acmeTicket)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRenderTicketInvalid(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/tickets/render", `{"customer": {"name": "Acme", "email": "nope"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	msg := decodeMessage(t, rec)
	assert.Equal(t, responses.CodeInvalidPayload, msg.Code)
	assert.Contains(t, msg.Fields, "ticket_number")
	assert.Contains(t, msg.Fields, "customer.email")

	rec = f.do(http.MethodPost, "/api/v1/tickets/render", `{"ticket_number": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeMessage(t, rec).Message, "invalid JSON")
	assert.Empty(t, f.archive.recs)
}

func TestRenderTicketTemplateUnavailable(t *testing.T) {
	f := newFixture(t)
	delete(f.source, "service-ticket.pdf")
	rec := f.do(http.MethodPost, "/api/v1/tickets/render", acmeTicket)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, responses.CodeTemplateUnavailable, decodeMessage(t, rec).Code)
}

func TestRenderTicketUnknownLayout(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/tickets/render?layout=work-order", acmeTicket)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, responses.CodeUnknownLayout, decodeMessage(t, rec).Code)
}

func TestRenderTimesheet(t *testing.T) {
	f := newFixture(t)
	body := `{"employee_name": "Dana Ortiz", "employee_id": "E-12", "week_ending": "2024-03-16",
	  "entries": [{"date": "03/11", "clock_in": "7:00", "clock_out": "15:30", "job": "Acme"}]}`
	rec := f.do(http.MethodPost, "/api/v1/timesheets/render", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `inline; filename="timesheet-E-12-2024-03-16.pdf"`, rec.Header().Get("Content-Disposition"))
	require.Len(t, f.archive.recs, 1)
	assert.Equal(t, archive.KindTimesheet, f.archive.recs[0].Kind)
	assert.InDelta(t, 8.5, f.archive.recs[0].GrandTotal, 1e-9)
}

func TestTicketTotals(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/tickets/totals", acmeTicket)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		Material  float64           `json:"material_total"`
		Hours     float64           `json:"labor_hours"`
		Formatted map[string]string `json:"formatted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 30.5, got.Material, 1e-9)
	assert.InDelta(t, 4.25, got.Hours, 1e-9)
	assert.Equal(t, "$625.50", got.Formatted["grand_total"])
	assert.Empty(t, f.archive.recs)
}

func TestListLayouts(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/layouts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"layouts":["service-ticket","timesheet"]}`, rec.Body.String())
}

func TestExportBatch(t *testing.T) {
	f := newFixture(t)
	body := `{"tickets": [` + acmeTicket + `], "timesheets": [{"employee_name": "Dana", "week_ending": "2024-03-16"}]}`
	rec := f.do(http.MethodPost, "/api/v1/exports", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/x-xz", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get(HeaderExportOK))
	assert.Equal(t, "0", rec.Header().Get(HeaderExportFailed))

	xr, err := xz.NewReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	tr := tar.NewReader(xr)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	assert.Equal(t, []string{"ticket-T-1001.pdf", "timesheet-Dana-2024-03-16.pdf", export.SummaryName}, names)
}

func TestExportBatchRejects(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/exports", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/exports", `{"tickets": [{"customer": {"name": "x"}}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeMessage(t, rec).Message, "tickets[0]")
}
