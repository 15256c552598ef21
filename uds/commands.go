package uds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/zeptools/fieldticket/archive"
)

type LayoutReloader interface {
	Reload() error
	Names() []string
}

type ReminderRunner interface {
	Run(ctx context.Context, now time.Time) (int, error)
}

type RecentLister interface {
	Recent(ctx context.Context, limit int) ([]*archive.Record, error)
}

// OperatorCommands builds the command map. reminders and recent may be nil
func OperatorCommands(layouts LayoutReloader, reminders ReminderRunner, recent RecentLister) map[string]CmdHnd {
	cmds := map[string]CmdHnd{
		"layouts": {
			Desc: "list loaded layouts",
			Fn: func(_ context.Context, _ []string, w io.Writer) error {
				for _, name := range layouts.Names() {
					_, _ = fmt.Fprintln(w, name)
				}
				return nil
			},
		},
		"reload-layouts": {
			Desc: "reload layouts from disk. the previous set stays on failure",
			Fn: func(_ context.Context, _ []string, w io.Writer) error {
				if err := layouts.Reload(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "%d layouts loaded\n", len(layouts.Names()))
				return nil
			},
		},
		"remind-now": {
			Desc: "send the reminders due right now",
			Fn: func(ctx context.Context, _ []string, w io.Writer) error {
				if reminders == nil {
					return errors.New("reminders are disabled")
				}
				sent, err := reminders.Run(ctx, time.Now())
				_, _ = fmt.Fprintf(w, "%d reminders sent\n", sent)
				return err
			},
		},
	}
	if recent != nil {
		cmds["recent"] = CmdHnd{
			Desc:  "show the latest archived renders",
			Usage: "recent [limit]",
			Fn: func(ctx context.Context, args []string, w io.Writer) error {
				limit := 10
				if len(args) > 0 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("bad limit %q", args[0])
					}
					limit = n
				}
				recs, err := recent.Recent(ctx, limit)
				if err != nil {
					return err
				}
				for _, r := range recs {
					_, _ = fmt.Fprintf(w, "%s %-9s %-20s %-24s warnings=%d dropped=%d %dB\n",
						r.CreatedAt.Format(time.RFC3339), r.Kind, r.Reference, r.Filename, r.Warnings, r.RowsDropped, r.Bytes)
				}
				return nil
			},
		}
	}
	return cmds
}
