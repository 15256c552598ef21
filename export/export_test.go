package export

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"

	"github.com/zeptools/fieldticket/jobs"
	"github.com/zeptools/fieldticket/layout"
	"github.com/zeptools/fieldticket/pdfs/fpdfw"
	"github.com/zeptools/fieldticket/pdfs/pdftest"
	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/ticket"
	"github.com/zeptools/fieldticket/timesheet"
)

func newExporter(t *testing.T) *Exporter {
	t.Helper()
	reg, err := layout.NewRegistry("")
	require.NoError(t, err)
	return &Exporter{
		Runner: &jobs.Runner{
			Layouts: reg,
			Renderer: &render.Renderer{
				Source:       pdftest.Builtins(t),
				NewWriter:    fpdfw.Factory,
				FetchRetries: -1,
			},
		},
		Parallel: 2,
	}
}

func ticketJob(t *testing.T, number string) *jobs.Job {
	t.Helper()
	job, err := jobs.FromTicket(&ticket.ServiceTicket{Number: number, Customer: ticket.Customer{Name: "Acme Corp"}})
	require.NoError(t, err)
	return job
}

func untar(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	xr, err := xz.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(xr)
	files := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = body
	}
	return files
}

func TestExport(t *testing.T) {
	ts, err := jobs.FromTimesheet(&timesheet.Timesheet{EmployeeName: "Dana", EmployeeID: "E-1", WeekEnding: "2024-03-16"})
	require.NoError(t, err)
	broken := ticketJob(t, "T-9")
	broken.Layout = "no-such-layout"
	batch := []*jobs.Job{ticketJob(t, "T-1"), ts, broken, ticketJob(t, "T-1")}

	var out bytes.Buffer
	sum, err := newExporter(t).Export(context.Background(), batch, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.OK)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, int64(out.Len()), sum.Bytes)
	assert.Equal(t, StatusFailed, sum.Entries[2].Status)
	assert.Contains(t, sum.Entries[2].Error, "no-such-layout")

	files := untar(t, out.Bytes())
	assert.Len(t, files, 4)
	for _, name := range []string{"ticket-T-1.pdf", "ticket-T-1-2.pdf", "timesheet-E-1-2024-03-16.pdf"} {
		require.Contains(t, files, name)
		assert.True(t, bytes.HasPrefix(files[name], []byte("%PDF-")), name)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(files[SummaryName]))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Name", "Status", "Warnings", "Rows dropped", "Bytes", "Error"}, rows[0])
	assert.Equal(t, "ticket-T-9.pdf", rows[3][0])
	assert.Equal(t, StatusFailed, rows[3][1])
}

func TestExportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	_, err := newExporter(t).Export(ctx, []*jobs.Job{ticketJob(t, "T-1")}, &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Len())
}

func TestUniqueName(t *testing.T) {
	seen := map[string]int{}
	assert.Equal(t, "a.pdf", uniqueName(seen, "a.pdf"))
	assert.Equal(t, "a-2.pdf", uniqueName(seen, "a.pdf"))
	assert.Equal(t, "a-3.pdf", uniqueName(seen, "a.pdf"))
	assert.Equal(t, "b", uniqueName(seen, "b"))
}

func TestUniqueNameSkipsTakenSuffix(t *testing.T) {
	seen := map[string]int{}
	got := make([]string, 0, 5)
	for _, name := range []string{"a-2.pdf", "a.pdf", "a.pdf", "a.pdf", "a-2.pdf"} {
		got = append(got, uniqueName(seen, name))
	}
	assert.Equal(t, []string{"a-2.pdf", "a.pdf", "a-3.pdf", "a-4.pdf", "a-2-2.pdf"}, got)
}

func TestExportDistinctEntryNames(t *testing.T) {
	batch := []*jobs.Job{ticketJob(t, "X-2"), ticketJob(t, "X"), ticketJob(t, "X")}
	var out bytes.Buffer
	sum, err := newExporter(t).Export(context.Background(), batch, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.OK)

	names := make(map[string]bool)
	for _, e := range sum.Entries {
		assert.False(t, names[e.Name], e.Name)
		names[e.Name] = true
	}
	files := untar(t, out.Bytes())
	assert.Len(t, files, 4)
	for _, name := range []string{"ticket-X-2.pdf", "ticket-X.pdf", "ticket-X-3.pdf"} {
		assert.Contains(t, files, name)
	}
}
