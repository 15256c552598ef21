package jobs

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/fieldticket/archive"
	"github.com/zeptools/fieldticket/layout"
	"github.com/zeptools/fieldticket/pdfs/fpdfw"
	"github.com/zeptools/fieldticket/pdfs/pdftest"
	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/ticket"
	"github.com/zeptools/fieldticket/timesheet"
)

func newRunner(t *testing.T) *Runner {
	t.Helper()
	reg, err := layout.NewRegistry("")
	require.NoError(t, err)
	return &Runner{
		Layouts: reg,
		Renderer: &render.Renderer{
			Source:       pdftest.Builtins(t),
			NewWriter:    fpdfw.Factory,
			FetchRetries: -1,
		},
	}
}

func TestTicketJob(t *testing.T) {
	job, err := FromTicket(&ticket.ServiceTicket{
		Number:    "T-7",
		Customer:  ticket.Customer{Name: "Acme Corp"},
		Materials: []ticket.MaterialLine{{Quantity: 2, Description: "Detector", UnitCost: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, layout.ServiceTicket, job.Layout)
	assert.Equal(t, "ticket-T-7.pdf", job.Filename)
	assert.InDelta(t, 20, job.Total, 1e-9)

	res, err := newRunner(t).Run(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF-")))

	rec := job.Record(res)
	assert.Equal(t, archive.KindTicket, rec.Kind)
	assert.Equal(t, "T-7", rec.Reference)
	assert.Equal(t, "Acme Corp", rec.Customer)
	assert.Equal(t, int64(len(res.PDF)), rec.Bytes)
}

func TestTimesheetJob(t *testing.T) {
	job, err := FromTimesheet(&timesheet.Timesheet{
		EmployeeName: "Dana Ortiz",
		EmployeeID:   "E-12",
		WeekEnding:   "2024-03-16",
		Entries:      []timesheet.Entry{{Date: "03/11", ClockIn: "07:00", ClockOut: "15:30"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "E-12/2024-03-16", job.Reference)
	assert.InDelta(t, 8.5, job.Total, 1e-9)

	res, err := newRunner(t).Run(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, res.PDF)
}

func TestInvalidPayload(t *testing.T) {
	_, err := FromTicket(&ticket.ServiceTicket{})
	assert.ErrorIs(t, err, ErrPayload)
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = FromTimesheet(&timesheet.Timesheet{EmployeeName: "x", WeekEnding: "w", TotalHours: nil,
		Entries: []timesheet.Entry{{Date: "d", ClockIn: "25:99", ClockOut: "10:00"}}})
	assert.ErrorIs(t, err, ErrPayload)
}

func TestUnknownLayout(t *testing.T) {
	job, err := FromTicket(&ticket.ServiceTicket{Number: "T-1", Customer: ticket.Customer{Name: "A"}})
	require.NoError(t, err)
	job.Layout = "work-order"
	_, err = newRunner(t).Run(context.Background(), job)
	assert.ErrorIs(t, err, layout.ErrUnknown)
}
