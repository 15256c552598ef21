package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeptools/fieldticket/jobs"
	"github.com/zeptools/fieldticket/sheets"
	"github.com/zeptools/fieldticket/ticket"
	"github.com/zeptools/fieldticket/timesheet"
)

var ErrTerminalOutput = errors.New("refusing to write PDF bytes to a terminal. use -out FILE or redirect")

func runRender(ctx context.Context, args []string, streams Streams) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: fieldticket render <ticket|timesheet> -in FILE [...]", ErrUsage)
	}
	kind := args[0]
	if kind != "ticket" && kind != "timesheet" {
		return fmt.Errorf("%w: unknown document kind %q", ErrUsage, kind)
	}

	var sf sourceFlags
	fs := flag.NewFlagSet("render "+kind, flag.ContinueOnError)
	fs.SetOutput(streams.Stderr)
	sf.register(fs)
	in := fs.String("in", "", "JSON payload file. - for stdin")
	out := fs.String("out", "", "output PDF. - for stdout. default: the document's file name")
	layoutName := fs.String("layout", "", "layout to render with instead of the built-in")
	materials := fs.String("materials", "", "xlsx/xls sheet of material rows appended to the ticket")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *in == "" {
		return fmt.Errorf("%w: -in is required", ErrUsage)
	}
	if *materials != "" && kind != "ticket" {
		return fmt.Errorf("%w: -materials only applies to tickets", ErrUsage)
	}

	payload, err := readInput(*in, streams.Stdin)
	if err != nil {
		return err
	}
	var job *jobs.Job
	switch kind {
	case "ticket":
		job, err = ticketJob(payload, *materials)
	case "timesheet":
		job, err = timesheetJob(payload)
	}
	if err != nil {
		return err
	}
	if *layoutName != "" {
		job.Layout = *layoutName
	}

	dst := *out
	if dst == "" {
		dst = job.Filename
	}
	if dst == "-" && isTerminal(streams.Stdout) {
		return ErrTerminalOutput
	}

	runner, err := sf.runner()
	if err != nil {
		return err
	}
	res, err := runner.Run(ctx, job)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		_, _ = fmt.Fprintf(streams.Stderr, "warning: %s\n", w)
	}

	if dst == "-" {
		_, err = streams.Stdout.Write(res.PDF)
		return err
	}
	if err = os.WriteFile(dst, res.PDF, 0o644); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(streams.Stderr, "wrote %s (%d bytes, %d warnings, %d rows dropped)\n",
		dst, len(res.PDF), len(res.Warnings), res.RowsDropped())
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func ticketJob(payload []byte, materialsPath string) (*jobs.Job, error) {
	var t ticket.ServiceTicket
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("ticket payload: %w", err)
	}
	if materialsPath != "" {
		lines, err := readMaterials(materialsPath)
		if err != nil {
			return nil, err
		}
		t.Materials = append(t.Materials, lines...)
	}
	return jobs.FromTicket(&t)
}

func readMaterials(path string) ([]ticket.MaterialLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := sheets.ReadMaterials(filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines, nil
}

func timesheetJob(payload []byte) (*jobs.Job, error) {
	var ts timesheet.Timesheet
	if err := json.Unmarshal(payload, &ts); err != nil {
		return nil, fmt.Errorf("timesheet payload: %w", err)
	}
	return jobs.FromTimesheet(&ts)
}
