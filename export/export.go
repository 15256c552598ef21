// Package export renders a batch of documents into one .tar.xz archive
package export

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zeptools/fieldticket/jobs"
	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/rw"
)

const (
	DefaultParallel = 4
	SummaryName     = "summary.xlsx"
	summarySheet    = "Summary"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type Entry struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Warnings    int    `json:"warnings"`
	RowsDropped int    `json:"rows_dropped"`
	Bytes       int    `json:"bytes"`
	Error       string `json:"error,omitempty"`
}

type Summary struct {
	Entries []Entry `json:"entries"`
	OK      int     `json:"ok"`
	Failed  int     `json:"failed"`
	Bytes   int64   `json:"bytes"` // compressed archive size
}

type Exporter struct {
	Runner   *jobs.Runner
	Parallel int // 0 = DefaultParallel
	Now      func() time.Time
}

type outcome struct {
	res *render.Result
	err error
}

// Export renders every job and streams the archive to w.
// A failing job is reported in the summary; only cancellation aborts the batch
func (e *Exporter) Export(ctx context.Context, batch []*jobs.Job, w io.Writer) (*Summary, error) {
	parallel := e.Parallel
	if parallel <= 0 {
		parallel = DefaultParallel
	}
	outcomes := make([]outcome, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, job := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.Runner.Run(gctx, job)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			outcomes[i] = outcome{res: res, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("export canceled: %w", err)
	}

	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	cw := rw.NewCountWriter(w)
	xw, err := xz.NewWriter(cw)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(xw)

	sum := &Summary{Entries: make([]Entry, 0, len(batch))}
	names := make(map[string]int)
	for i, job := range batch {
		o := outcomes[i]
		entry := Entry{Name: uniqueName(names, job.Filename)}
		if o.err != nil {
			entry.Status = StatusFailed
			entry.Error = o.err.Error()
			sum.Failed++
			log.Printf("[WARN][EXPORT] %s: %v", job.Filename, o.err)
		} else {
			entry.Status = StatusOK
			entry.Warnings = len(o.res.Warnings)
			entry.RowsDropped = o.res.RowsDropped()
			entry.Bytes = len(o.res.PDF)
			if err = writeFile(tw, entry.Name, o.res.PDF, now); err != nil {
				return nil, err
			}
			sum.OK++
		}
		sum.Entries = append(sum.Entries, entry)
	}

	sheet, err := summaryWorkbook(sum.Entries)
	if err != nil {
		return nil, err
	}
	if err = writeFile(tw, SummaryName, sheet, now); err != nil {
		return nil, err
	}
	if err = tw.Close(); err != nil {
		return nil, err
	}
	if err = xw.Close(); err != nil {
		return nil, err
	}
	sum.Bytes = cw.BytesWritten()
	log.Printf("[INFO][EXPORT] %d ok, %d failed, %d bytes", sum.OK, sum.Failed, sum.Bytes)
	return sum, nil
}

func writeFile(tw *tar.Writer, name string, data []byte, mod time.Time) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: mod,
		Format:  tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("tar header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("tar write %s: %w", name, err)
	}
	return nil
}

// uniqueName suffixes repeated file names: a.pdf, a-2.pdf, a-3.pdf.
// A suffix is skipped when that name was already taken by an earlier file
func uniqueName(seen map[string]int, name string) string {
	seen[name]++
	if seen[name] == 1 {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := seen[name]; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", base, n, ext)
		if seen[candidate] == 0 {
			seen[candidate]++
			seen[name] = n
			return candidate
		}
	}
}

func summaryWorkbook(entries []Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("[WARN][EXPORT] workbook close: %v", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	header := []any{"Name", "Status", "Warnings", "Rows dropped", "Bytes", "Error"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{e.Name, e.Status, e.Warnings, e.RowsDropped, e.Bytes, e.Error}
		if err = f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("summary workbook: %w", err)
	}
	return buf.Bytes(), nil
}
