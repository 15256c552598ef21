package handlers

import (
	"net/http"

	"github.com/zeptools/fieldticket/jobs"
	"github.com/zeptools/fieldticket/requests"
	"github.com/zeptools/fieldticket/responses"
	"github.com/zeptools/fieldticket/ticket"
	"github.com/zeptools/fieldticket/timesheet"
)

func (a *API) renderTicket(w http.ResponseWriter, r *http.Request) {
	var t ticket.ServiceTicket
	if !a.decodeJSON(w, r, &t) {
		return
	}
	job, err := jobs.FromTicket(&t)
	if err != nil {
		writeJobError(w, err)
		return
	}
	a.respondPDF(w, r, job)
}

func (a *API) renderTimesheet(w http.ResponseWriter, r *http.Request) {
	var ts timesheet.Timesheet
	if !a.decodeJSON(w, r, &ts) {
		return
	}
	job, err := jobs.FromTimesheet(&ts)
	if err != nil {
		writeJobError(w, err)
		return
	}
	a.respondPDF(w, r, job)
}

type totalsResponse struct {
	ticket.Totals
	Formatted map[string]string `json:"formatted"`
}

// ticketTotals previews the totals a rendered ticket would carry
func (a *API) ticketTotals(w http.ResponseWriter, r *http.Request) {
	var t ticket.ServiceTicket
	if !a.decodeJSON(w, r, &t) {
		return
	}
	if err := t.Validate(); err != nil {
		responses.WriteInvalidPayloadJSON(w, "invalid ticket", requests.ValidationMessages(err))
		return
	}
	tot, err := t.Totals()
	if err != nil {
		responses.WriteInvalidPayloadJSON(w, err.Error(), nil)
		return
	}
	responses.EncodeWriteJSON(w, http.StatusOK, totalsResponse{
		Totals: tot,
		Formatted: map[string]string{
			"material_total": ticket.FormatCurrency(tot.Material),
			"labor_total":    ticket.FormatCurrency(tot.Labor),
			"grand_total":    ticket.FormatCurrency(tot.Grand),
		},
	})
}
