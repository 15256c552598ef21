// Package worktime parses wall-clock times of day and computes worked hours
package worktime

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Clock is a time of day in minutes since midnight
type Clock int

const day = 24 * 60

var clockLayouts = []string{"15:04", "3:04PM", "3:04 PM", "3PM", "3 PM", "15:04:05", "1504"}

// ParseClock accepts "HH:MM" and "HHMM" (24h) as well as "3:04PM" style values
func ParseClock(s string) (Clock, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Kitchen renders the clock as "3:04PM"
func (c Clock) Kitchen() string {
	return time.Date(0, 1, 1, int(c)/60, int(c)%60, 0, 0, time.UTC).Format(time.Kitchen)
}

// KitchenText normalizes a parseable time of day to "3:04PM".
// Empty and unparseable values are returned as given
func KitchenText(s string) string {
	if s == "" {
		return ""
	}
	c, err := ParseClock(s)
	if err != nil {
		return s
	}
	return c.Kitchen()
}

// Until returns the minutes from c to end. An end earlier than c crosses midnight
func (c Clock) Until(end Clock) int {
	d := int(end - c)
	if d < 0 {
		d += day
	}
	return d
}

// RoundQuarter rounds hours to the nearest quarter hour
func RoundQuarter(hours float64) float64 {
	return math.Round(hours*4) / 4
}

// Hours is the quarter-hour rounded time worked between two clock strings
func Hours(in, out string) (float64, error) {
	start, err := ParseClock(in)
	if err != nil {
		return 0, fmt.Errorf("time in: %w", err)
	}
	end, err := ParseClock(out)
	if err != nil {
		return 0, fmt.Errorf("time out: %w", err)
	}
	return RoundQuarter(float64(start.Until(end)) / 60), nil
}

// FormatHours prints hours with two decimals ("4.25")
func FormatHours(h float64) string {
	return fmt.Sprintf("%.2f", h)
}

// Of is the clock reading of t in its own location
func Of(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
