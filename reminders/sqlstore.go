package reminders

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/zeptools/fieldticket/db/sqldb"
)

//go:embed sql/*
var sqlFS embed.FS

const sqlGroup = "reminders"

// SQLStore reads employees and time entries of the timekeeping database
type SQLStore struct {
	h     sqldb.DBHandle
	stmts *sqldb.RawSQLStore
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(h sqldb.DBHandle, dbType string) (*SQLStore, error) {
	stmts := sqldb.NewRawStore(dbType)
	if err := stmts.Load(sqldb.GroupFS{Group: sqlGroup, FS: sqlFS}); err != nil {
		return nil, err
	}
	return &SQLStore{h: h, stmts: stmts}, nil
}

func (s *SQLStore) Pending(ctx context.Context, kind string, day time.Time) ([]*Employee, error) {
	var name string
	switch kind {
	case KindClockIn:
		name = "pending_clock_in"
	case KindClockOut, KindLate:
		name = "pending_open"
	default:
		return nil, fmt.Errorf("unknown reminder kind %q", kind)
	}
	stmt, err := s.stmts.Stmt(sqlGroup, name)
	if err != nil {
		return nil, err
	}
	return sqldb.QueryItems[Employee](ctx, s.h, stmt, day)
}
