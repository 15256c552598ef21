// Package jobs turns ticket and timesheet payloads into render jobs and runs them
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeptools/fieldticket/archive"
	"github.com/zeptools/fieldticket/layout"
	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/ticket"
	"github.com/zeptools/fieldticket/timesheet"
)

// ErrPayload wraps validation and mapping failures of a payload
var ErrPayload = errors.New("invalid payload")

// Job is one document ready to render
type Job struct {
	Kind      string
	Layout    string
	Filename  string
	Reference string
	Customer  string
	Total     float64 // grand total, or total hours for timesheets
	Doc       render.Document
}

func FromTicket(t *ticket.ServiceTicket) (*Job, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayload, err)
	}
	doc, tot, err := t.Document()
	if err != nil {
		return nil, fmt.Errorf("%w: ticket %s: %w", ErrPayload, t.Number, err)
	}
	return &Job{
		Kind:      archive.KindTicket,
		Layout:    layout.ServiceTicket,
		Filename:  t.Filename(),
		Reference: t.Number,
		Customer:  t.Customer.Name,
		Total:     tot.Grand,
		Doc:       doc,
	}, nil
}

func FromTimesheet(ts *timesheet.Timesheet) (*Job, error) {
	if err := ts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayload, err)
	}
	doc, total, err := ts.Document()
	if err != nil {
		return nil, fmt.Errorf("%w: timesheet %s: %w", ErrPayload, ts.EmployeeName, err)
	}
	ref := ts.EmployeeID
	if ref == "" {
		ref = ts.EmployeeName
	}
	return &Job{
		Kind:      archive.KindTimesheet,
		Layout:    layout.Timesheet,
		Filename:  ts.Filename(),
		Reference: ref + "/" + ts.WeekEnding,
		Customer:  ts.EmployeeName,
		Total:     total,
		Doc:       doc,
	}, nil
}

// Record summarizes a finished render for the archive
func (j *Job) Record(res *render.Result) *archive.Record {
	return &archive.Record{
		Kind:        j.Kind,
		Layout:      j.Layout,
		Reference:   j.Reference,
		Customer:    j.Customer,
		GrandTotal:  j.Total,
		Warnings:    len(res.Warnings),
		RowsDropped: res.RowsDropped(),
		Filename:    j.Filename,
		Bytes:       int64(len(res.PDF)),
	}
}

// Runner resolves the job's layout and renders it
type Runner struct {
	Layouts  *layout.Registry
	Renderer *render.Renderer
}

func (r *Runner) Run(ctx context.Context, j *Job) (*render.Result, error) {
	l, err := r.Layouts.Get(j.Layout)
	if err != nil {
		return nil, err
	}
	return r.Renderer.Render(ctx, l, j.Doc)
}
