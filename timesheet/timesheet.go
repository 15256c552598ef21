// Package timesheet is the weekly employee timesheet payload
package timesheet

import (
	"fmt"

	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/requests"
	"github.com/zeptools/fieldticket/worktime"
)

type Entry struct {
	Date     string   `json:"date" validate:"notblank"`
	ClockIn  string   `json:"clock_in,omitempty" validate:"omitempty,clock"`
	ClockOut string   `json:"clock_out,omitempty" validate:"omitempty,clock"`
	Hours    *float64 `json:"hours,omitempty"` // caller computed
	Job      string   `json:"job,omitempty" validate:"max=120"`
}

// ResolvedHours is the caller's hours if given, else the quarter-hour
// rounded span between clock in and clock out. An open entry counts zero
func (e Entry) ResolvedHours() (float64, error) {
	if e.Hours != nil {
		return *e.Hours, nil
	}
	if e.ClockIn == "" || e.ClockOut == "" {
		return 0, nil
	}
	return worktime.Hours(e.ClockIn, e.ClockOut)
}

type Timesheet struct {
	EmployeeName string   `json:"employee_name" validate:"notblank,max=120"`
	EmployeeID   string   `json:"employee_id,omitempty"`
	WeekEnding   string   `json:"week_ending" validate:"notblank"`
	Entries      []Entry  `json:"entries" validate:"dive"`
	TotalHours   *float64 `json:"total_hours,omitempty"` // caller computed
	Notes        string   `json:"notes,omitempty"`
	SignerName   string   `json:"signer_name,omitempty"`
	SignerDate   string   `json:"signer_date,omitempty"`
	Signature    string   `json:"signature,omitempty"`
}

func (ts *Timesheet) Validate() error {
	return requests.Validate.Struct(ts)
}

func (ts *Timesheet) Filename() string {
	id := ts.EmployeeID
	if id == "" {
		id = ts.EmployeeName
	}
	return fmt.Sprintf("timesheet-%s-%s.pdf", slug(id), slug(ts.WeekEnding))
}

// Total is the caller's total if given, else the sum over all entries
func (ts *Timesheet) Total() (float64, error) {
	if ts.TotalHours != nil {
		return *ts.TotalHours, nil
	}
	total := 0.0
	for i, e := range ts.Entries {
		h, err := e.ResolvedHours()
		if err != nil {
			return 0, fmt.Errorf("entry %d: %w", i+1, err)
		}
		total += h
	}
	return total, nil
}

// Document maps the timesheet onto the timesheet layout's names
func (ts *Timesheet) Document() (render.Document, float64, error) {
	total, err := ts.Total()
	if err != nil {
		return render.Document{}, 0, err
	}
	rows := make([]render.Row, 0, len(ts.Entries))
	for _, e := range ts.Entries {
		row := render.Row{
			"date":      e.Date,
			"clock_in":  worktime.KitchenText(e.ClockIn),
			"clock_out": worktime.KitchenText(e.ClockOut),
			"job":       e.Job,
		}
		if h, _ := e.ResolvedHours(); e.Hours != nil || e.ClockOut != "" {
			row["hours"] = worktime.FormatHours(h)
		}
		rows = append(rows, row)
	}
	return render.Document{
		Fields: map[string]string{
			"employee_name": ts.EmployeeName,
			"employee_id":   ts.EmployeeID,
			"week_ending":   ts.WeekEnding,
			"total_hours":   worktime.FormatHours(total),
			"signer_name":   ts.SignerName,
			"signer_date":   ts.SignerDate,
		},
		Boxes:     map[string]string{"notes": ts.Notes},
		Tables:    map[string][]render.Row{"entries": rows},
		Signature: ts.Signature,
	}, total, nil
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "x"
	}
	return string(out)
}
