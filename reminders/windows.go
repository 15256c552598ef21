// Package reminders nudges employees whose timesheet needs attention
package reminders

import (
	"time"

	"github.com/zeptools/fieldticket/worktime"
)

const (
	KindClockIn  = "clock_in"
	KindClockOut = "clock_out"
	KindLate     = "late"
)

// Window is a time-of-day range [Start, End) during which one kind of reminder goes out
type Window struct {
	Kind  string         `json:"kind"`
	Start worktime.Clock `json:"start"`
	End   worktime.Clock `json:"end"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
}

func DefaultWindows() []Window {
	return []Window{
		{Kind: KindClockIn, Start: 7 * 60, End: 9 * 60, Title: "Clock in", Body: "You have not clocked in today"},
		{Kind: KindClockOut, Start: 17 * 60, End: 18*60 + 30, Title: "Clock out", Body: "You are still clocked in"},
		{Kind: KindLate, Start: 21 * 60, End: 23 * 60, Title: "Timesheet", Body: "Timesheet still open"},
	}
}

func (w Window) Contains(c worktime.Clock) bool {
	if w.End < w.Start { // across midnight
		return c >= w.Start || c < w.End
	}
	return c >= w.Start && c < w.End
}

// WindowAt returns the first window active at t
func WindowAt(windows []Window, t time.Time) (Window, bool) {
	c := worktime.Of(t)
	for _, w := range windows {
		if w.Contains(c) {
			return w, true
		}
	}
	return Window{}, false
}
