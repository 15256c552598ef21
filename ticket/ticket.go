// Package ticket is the service ticket payload and its mapping onto the
// service-ticket layout
package ticket

import (
	"strings"

	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/requests"
	"github.com/zeptools/fieldticket/worktime"
)

type Customer struct {
	Name    string `json:"name" validate:"notblank,max=120"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Contact string `json:"contact,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
}

type Billing struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
}

type ServiceTicket struct {
	Number        string   `json:"ticket_number" validate:"notblank,max=40"`
	Date          string   `json:"date,omitempty"`
	Customer      Customer `json:"customer"`
	Billing       *Billing `json:"billing,omitempty"`
	JobName       string   `json:"job_name,omitempty"`
	PONumber      string   `json:"po_number,omitempty"`
	SystemType    string   `json:"system_type,omitempty"`
	ArrivalTime   string   `json:"arrival_time,omitempty" validate:"omitempty,clock"`
	DepartureTime string   `json:"departure_time,omitempty" validate:"omitempty,clock"`

	WorkPerformed   string `json:"work_performed,omitempty"`
	Problems        string `json:"problems,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`
	Notes           string `json:"notes,omitempty"`

	Materials []MaterialLine `json:"materials,omitempty" validate:"dive"`
	Labor     []LaborLine    `json:"labor,omitempty" validate:"dive"`

	MaterialTotal *float64 `json:"material_total,omitempty"`
	LaborTotal    *float64 `json:"labor_total,omitempty"`
	GrandTotal    *float64 `json:"grand_total,omitempty"`

	SignerName string `json:"signer_name,omitempty"`
	SignerDate string `json:"signer_date,omitempty"`
	Signature  string `json:"signature,omitempty"` // PNG data URL from the capture pad
}

func (t *ServiceTicket) Validate() error {
	return requests.Validate.Struct(t)
}

// Filename for the rendered document
func (t *ServiceTicket) Filename() string {
	return "ticket-" + sanitize(t.Number) + ".pdf"
}

// Document maps the ticket onto the service-ticket layout's names
func (t *ServiceTicket) Document() (render.Document, Totals, error) {
	tot, err := t.Totals()
	if err != nil {
		return render.Document{}, Totals{}, err
	}
	fields := map[string]string{
		"ticket_number":    t.Number,
		"date":             t.Date,
		"customer_name":    t.Customer.Name,
		"customer_address": t.Customer.Address,
		"customer_city":    t.Customer.City,
		"customer_state":   t.Customer.State,
		"customer_zip":     t.Customer.Zip,
		"customer_phone":   t.Customer.Phone,
		"customer_contact": t.Customer.Contact,
		"customer_email":   t.Customer.Email,
		"job_name":         t.JobName,
		"po_number":        t.PONumber,
		"system_type":      t.SystemType,
		"arrival_time":     worktime.KitchenText(t.ArrivalTime),
		"departure_time":   worktime.KitchenText(t.DepartureTime),
		"material_total":   FormatCurrency(tot.Material),
		"labor_total":      FormatCurrency(tot.Labor),
		"grand_total":      FormatCurrency(tot.Grand),
		"signer_name":      t.SignerName,
		"signer_date":      t.SignerDate,
	}
	if b := t.Billing; b != nil {
		fields["billing_name"] = b.Name
		fields["billing_address"] = b.Address
		fields["billing_city"] = b.City
		fields["billing_state"] = b.State
		fields["billing_zip"] = b.Zip
	}

	materials := make([]render.Row, 0, len(t.Materials))
	for _, m := range t.Materials {
		materials = append(materials, render.Row{
			"quantity":    formatQuantity(m.Quantity),
			"description": m.Description,
			"unit_cost":   FormatCurrency(m.UnitCost),
			"line_total":  FormatCurrency(m.Total()),
		})
	}
	labor := make([]render.Row, 0, len(t.Labor))
	for _, l := range t.Labor {
		h, _ := l.ResolvedHours() // checked by Totals
		c, _ := l.ResolvedCost()
		labor = append(labor, render.Row{
			"technician": strings.TrimSpace(l.Technician + " " + l.Date),
			"rate":       FormatCurrency(l.Rate),
			"time_in":    worktime.KitchenText(l.TimeIn),
			"time_out":   worktime.KitchenText(l.TimeOut),
			"hours":      worktime.FormatHours(h),
			"cost":       FormatCurrency(c),
		})
	}

	return render.Document{
		Fields: fields,
		Boxes: map[string]string{
			"work_performed":  t.WorkPerformed,
			"problems":        t.Problems,
			"recommendations": t.Recommendations,
			"notes":           t.Notes,
		},
		Tables:    map[string][]render.Row{"materials": materials, "labor": labor},
		Signature: t.Signature,
	}, tot, nil
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(s))
	if s == "" {
		return "unnumbered"
	}
	return s
}
