package uds

import (
	"context"
	"fmt"
	"io"
)

// CmdHnd is one operator command. Fn writes its answer to w; a returned
// error is reported to the operator as "error: ..."
type CmdHnd struct {
	Desc  string
	Usage string // e.g. "recent [limit]". empty = the bare command name
	Fn    func(ctx context.Context, args []string, w io.Writer) error
}

func (h CmdHnd) helpLine(name string) string {
	usage := h.Usage
	if usage == "" {
		usage = name
	}
	return fmt.Sprintf("%-24s %s", usage, h.Desc)
}
