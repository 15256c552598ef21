package reminders

import (
	"fmt"
	"time"
)

const DefaultIntervalMin = 15

type Conf struct {
	Enabled     bool     `json:"enabled"`
	PushURL     string   `json:"push_url"`
	IntervalMin int      `json:"interval_min"`
	TimeZone    string   `json:"time_zone"` // IANA name. empty = local
	Windows     []Window `json:"windows"`   // empty = DefaultWindows()
	APIKey      string   `json:"-"`         // from env
}

func (c *Conf) Interval() int {
	if c.IntervalMin <= 0 || c.IntervalMin > 60 {
		return DefaultIntervalMin
	}
	return c.IntervalMin
}

func (c *Conf) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("reminders time_zone: %w", err)
	}
	return loc, nil
}

func (c *Conf) WindowsOrDefault() []Window {
	if len(c.Windows) == 0 {
		return DefaultWindows()
	}
	return c.Windows
}
