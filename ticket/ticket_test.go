package ticket

import (
	"context"
	"fmt"
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/fieldticket/layout"
	"github.com/zeptools/fieldticket/pdfs"
	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/requests"
)

func ptr(v float64) *float64 { return &v }

func acme() *ServiceTicket {
	return &ServiceTicket{
		Number:   "T-1001",
		Date:     "2024-03-14",
		Customer: Customer{Name: "Acme Corp", City: "Springfield", Email: "ops@acme.test"},
		Materials: []MaterialLine{
			{Quantity: 2, Description: "Smoke detector", UnitCost: 10},
			{Quantity: 1, Description: "Relay", UnitCost: 5.5},
			{Quantity: 4, Description: "Wire nut pack", UnitCost: 1.25},
		},
		Labor: []LaborLine{
			{Technician: "Dana Ortiz", Date: "03/14", Rate: 140, TimeIn: "8:00", TimeOut: "12:15"},
		},
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := map[float64]string{
		1234.56:  "$1234.56",
		0:        "$0.00",
		-12:      "-$12.00",
		0.005:    "$0.01",
		-0.004:   "$0.00",
		595:      "$595.00",
		19.999:   "$20.00",
		100000.1: "$100000.10",
	}
	for v, want := range tests {
		assert.Equal(t, want, FormatCurrency(v), v)
	}
}

func TestTotalsRecomputed(t *testing.T) {
	tot, err := acme().Totals()
	require.NoError(t, err)
	assert.InDelta(t, 30.50, tot.Material, 0.01)
	assert.InDelta(t, 4.25, tot.LaborHours, 1e-9)
	assert.InDelta(t, 595.00, tot.Labor, 0.01)
	assert.InDelta(t, 625.50, tot.Grand, 0.01)
}

func TestTotalsTrustCaller(t *testing.T) {
	tk := acme()
	tk.MaterialTotal = ptr(31)
	tot, err := tk.Totals()
	require.NoError(t, err)
	assert.Equal(t, 31.0, tot.Material)
	assert.InDelta(t, 626, tot.Grand, 0.01) // grand follows the resolved material total

	tk.GrandTotal = ptr(600)
	tk.Labor[0].Cost = ptr(569)
	tot, err = tk.Totals()
	require.NoError(t, err)
	assert.Equal(t, 569.0, tot.Labor)
	assert.Equal(t, 600.0, tot.Grand)

	tk.Materials[0].LineTotal = ptr(18)
	assert.Equal(t, 18.0, tk.Materials[0].Total())
}

func TestLaborHours(t *testing.T) {
	l := LaborLine{Rate: 100, TimeIn: "23:00", TimeOut: "1:30"}
	h, err := l.ResolvedHours()
	require.NoError(t, err)
	assert.Equal(t, 2.5, h)
	c, err := l.ResolvedCost()
	require.NoError(t, err)
	assert.Equal(t, 250.0, c)

	l.Hours = ptr(3)
	c, _ = l.ResolvedCost()
	assert.Equal(t, 300.0, c)

	h, err = LaborLine{Rate: 100}.ResolvedHours()
	require.NoError(t, err)
	assert.Zero(t, h)

	_, err = LaborLine{TimeIn: "soon", TimeOut: "10:00"}.ResolvedCost()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, acme().Validate())

	tk := acme()
	tk.Number = " "
	tk.Customer.Email = "nope"
	tk.Labor[0].TimeOut = "99:99"
	tk.Materials[1].Quantity = -1
	msgs := requests.ValidationMessages(tk.Validate())
	assert.Contains(t, msgs, "ticket_number")
	assert.Contains(t, msgs, "customer.email")
	assert.Contains(t, msgs, "labor[0].time_out")
	assert.Contains(t, msgs, "materials[1].quantity")
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "ticket-T-1001.pdf", acme().Filename())
	assert.Equal(t, "ticket-A_B_1.pdf", (&ServiceTicket{Number: "A/B 1"}).Filename())
	assert.Equal(t, "ticket-unnumbered.pdf", (&ServiceTicket{}).Filename())
}

type textCall struct {
	X, Y float64
}

type recordingWriter struct {
	texts map[string]textCall
}

func (w *recordingWriter) LoadTemplate([]byte) (pdfs.PaperSize, error) { return pdfs.LetterSize, nil }
func (w *recordingWriter) SetFont(string, string, float64)             {}
func (w *recordingWriter) Text(x, y float64, s string)                 { w.texts[s] = textCall{x, y} }
func (w *recordingWriter) Image(string, image.Image, float64, float64, float64, float64) error {
	return nil
}
func (w *recordingWriter) WriteTo(io.Writer) (int64, error) { return 0, nil }
func (w *recordingWriter) ProduceBytes() ([]byte, error)    { return []byte("%PDF"), nil }

type staticSource struct{}

func (staticSource) Fetch(context.Context, string) ([]byte, error) { return []byte("%PDF"), nil }

func renderTicket(t *testing.T, tk *ServiceTicket) (*render.Result, *recordingWriter) {
	t.Helper()
	reg, err := layout.NewRegistry("")
	require.NoError(t, err)
	l, err := reg.Get(layout.ServiceTicket)
	require.NoError(t, err)
	w := &recordingWriter{texts: make(map[string]textCall)}
	r := &render.Renderer{Source: staticSource{}, NewWriter: func() pdfs.Writer { return w }}
	doc, _, err := tk.Document()
	require.NoError(t, err)
	res, err := r.Render(context.Background(), l, doc)
	require.NoError(t, err)
	return res, w
}

func TestAcmeEndToEnd(t *testing.T) {
	res, w := renderTicket(t, acme())
	assert.Empty(t, res.Warnings)
	assert.Equal(t, render.RowReport{Rendered: 3}, res.Rows["materials"])
	assert.Equal(t, render.RowReport{Rendered: 1}, res.Rows["labor"])

	for _, s := range []string{"Acme Corp", "$30.50", "$595.00", "$625.50", "4.25", "8:00AM", "12:15PM", "Dana Ortiz 03/14"} {
		assert.Contains(t, w.texts, s)
	}
	// customer_name anchor (150,300)px at scale 2
	assert.InDelta(t, 75, w.texts["Acme Corp"].X, 1e-9)
	assert.InDelta(t, 642, w.texts["Acme Corp"].Y, 1e-9)
	// material_total right-aligned at 1130px = 565pt, "$30.50" is 6 chars at 10pt
	assert.InDelta(t, 535, w.texts["$30.50"].X, 1e-9)
	assert.InDelta(t, 192, w.texts["$30.50"].Y, 1e-9)
}

func TestNineMaterialsSixSlots(t *testing.T) {
	tk := acme()
	tk.Materials = nil
	for i := 1; i <= 9; i++ {
		tk.Materials = append(tk.Materials, MaterialLine{Quantity: 1, Description: fmt.Sprintf("Part %d", i), UnitCost: 1})
	}
	res, w := renderTicket(t, tk)
	assert.Equal(t, render.RowReport{Rendered: 6, Dropped: 3}, res.Rows["materials"])
	assert.Equal(t, 3, res.RowsDropped())
	for i := 1; i <= 6; i++ {
		assert.Contains(t, w.texts, fmt.Sprintf("Part %d", i))
	}
	assert.NotContains(t, w.texts, "Part 7")
	// rows keep input order top to bottom
	assert.Greater(t, w.texts["Part 1"].Y, w.texts["Part 6"].Y)
	// the total still covers all nine rows
	assert.Contains(t, w.texts, "$9.00")
}

func TestMalformedSignatureStillRenders(t *testing.T) {
	tk := acme()
	tk.Signature = "data:image/png;base64,AAAA"
	res, w := renderTicket(t, tk)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, render.WarnSignatureSkipped, res.Warnings[0].Kind)
	assert.Contains(t, w.texts, "$625.50")
}

func TestMissingOptionalFields(t *testing.T) {
	res, _ := renderTicket(t, &ServiceTicket{Number: "T-1", Customer: Customer{Name: "Solo"}})
	assert.Empty(t, res.Warnings)
	assert.NotEmpty(t, res.PDF)
}
