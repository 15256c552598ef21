package ticket

import (
	"fmt"
	"math"
	"strconv"

	"github.com/zeptools/fieldticket/worktime"
)

type MaterialLine struct {
	Quantity    float64  `json:"quantity" validate:"gte=0"`
	Description string   `json:"description" validate:"max=200"`
	UnitCost    float64  `json:"unit_cost"`
	LineTotal   *float64 `json:"line_total,omitempty"` // caller computed
}

// Total is the caller's line total if given, else quantity * unit cost
func (m MaterialLine) Total() float64 {
	if m.LineTotal != nil {
		return *m.LineTotal
	}
	return m.Quantity * m.UnitCost
}

type LaborLine struct {
	Technician string   `json:"technician" validate:"notblank,max=80"`
	Date       string   `json:"date,omitempty"`
	Rate       float64  `json:"rate" validate:"gte=0"`
	TimeIn     string   `json:"time_in,omitempty" validate:"omitempty,clock"`
	TimeOut    string   `json:"time_out,omitempty" validate:"omitempty,clock"`
	Hours      *float64 `json:"hours,omitempty"` // caller computed
	Cost       *float64 `json:"cost,omitempty"`  // caller computed
}

// ResolvedHours is the caller's hours if given, else the quarter-hour
// rounded span between time in and time out
func (l LaborLine) ResolvedHours() (float64, error) {
	if l.Hours != nil {
		return *l.Hours, nil
	}
	if l.TimeIn == "" || l.TimeOut == "" {
		return 0, nil
	}
	return worktime.Hours(l.TimeIn, l.TimeOut)
}

// ResolvedCost is the caller's cost if given, else hours * rate
func (l LaborLine) ResolvedCost() (float64, error) {
	if l.Cost != nil {
		return *l.Cost, nil
	}
	h, err := l.ResolvedHours()
	if err != nil {
		return 0, err
	}
	return h * l.Rate, nil
}

type Totals struct {
	Material   float64 `json:"material_total"`
	Labor      float64 `json:"labor_total"`
	Grand      float64 `json:"grand_total"`
	LaborHours float64 `json:"labor_hours"`
}

// Totals takes each total from the caller when present and recomputes the
// missing ones from all rows, including rows a layout cannot show
func (t *ServiceTicket) Totals() (Totals, error) {
	var tot Totals
	for _, m := range t.Materials {
		tot.Material += m.Total()
	}
	for i, l := range t.Labor {
		h, err := l.ResolvedHours()
		if err != nil {
			return Totals{}, fmt.Errorf("labor row %d: %w", i+1, err)
		}
		c, err := l.ResolvedCost()
		if err != nil {
			return Totals{}, fmt.Errorf("labor row %d: %w", i+1, err)
		}
		tot.LaborHours += h
		tot.Labor += c
	}
	if t.MaterialTotal != nil {
		tot.Material = *t.MaterialTotal
	}
	if t.LaborTotal != nil {
		tot.Labor = *t.LaborTotal
	}
	if t.GrandTotal != nil {
		tot.Grand = *t.GrandTotal
	} else {
		tot.Grand = tot.Material + tot.Labor
	}
	return tot, nil
}

// FormatCurrency renders v as dollars: "$1234.56", "-$12.00".
// Cents are rounded half away from zero
func FormatCurrency(v float64) string {
	cents := int64(math.Round(v * 100))
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
