// Package archive keeps a record of every rendered document
package archive

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zeptools/fieldticket/db/sqldb"
)

//go:embed sql/*
var sqlFS embed.FS

const Group = "archive"

const (
	KindTicket    = "ticket"
	KindTimesheet = "timesheet"
)

var ErrNotFound = errors.New("archive record not found")

type Record struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Layout      string    `json:"layout"`
	Reference   string    `json:"reference"` // ticket number, or employee + week
	Customer    string    `json:"customer"`
	GrandTotal  float64   `json:"grand_total"` // total hours for timesheets
	Warnings    int       `json:"warnings"`
	RowsDropped int       `json:"rows_dropped"`
	Filename    string    `json:"filename"`
	Bytes       int64     `json:"bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *Record) TargetFields() []any {
	return []any{
		&r.ID, &r.Kind, &r.Layout, &r.Reference, &r.Customer, &r.GrandTotal,
		&r.Warnings, &r.RowsDropped, &r.Filename, &r.Bytes, &r.CreatedAt,
	}
}

// Recorder is what the render handlers need
type Recorder interface {
	Insert(ctx context.Context, rec *Record) error
}

type Repository struct {
	h     sqldb.DBHandle
	stmts *sqldb.RawSQLStore
}

// Ensure Repository implements Recorder
var _ Recorder = (*Repository)(nil)

func NewRepository(h sqldb.DBHandle, dbType string) (*Repository, error) {
	stmts := sqldb.NewRawStore(dbType)
	if err := stmts.Load(sqldb.GroupFS{Group: Group, FS: sqlFS}); err != nil {
		return nil, err
	}
	return &Repository{h: h, stmts: stmts}, nil
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	stmt, err := r.stmts.Stmt(Group, "schema")
	if err != nil {
		return err
	}
	if _, err = r.h.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("archive schema: %w", err)
	}
	return nil
}

// Insert fills ID and CreatedAt when they are zero
func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	stmt, err := r.stmts.Stmt(Group, "insert")
	if err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err = r.h.Exec(ctx, stmt,
		rec.ID.String(), rec.Kind, rec.Layout, rec.Reference, rec.Customer, rec.GrandTotal,
		rec.Warnings, rec.RowsDropped, rec.Filename, rec.Bytes, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}

// Recent lists the newest records first
func (r *Repository) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	stmt, err := r.stmts.Stmt(Group, "recent")
	if err != nil {
		return nil, err
	}
	return sqldb.QueryItems[Record](ctx, r.h, stmt, limit)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	stmt, err := r.stmts.Stmt(Group, "get")
	if err != nil {
		return nil, err
	}
	rec, err := sqldb.QueryItem[Record](ctx, r.h, stmt, id.String())
	if errors.Is(err, sqldb.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}
