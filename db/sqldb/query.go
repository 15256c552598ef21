package sqldb

import (
	"context"
	"fmt"
	"log"
)

type targetFieldsProvider interface {
	TargetFields() []any
}

type Scannable[T any] interface {
	*T                   // Type Constraint: exactly *T, so MP is inferred from M
	targetFieldsProvider // must implement targetFieldsProvider
}

func QueryItem[
	M any, // Model struct
	MP Scannable[M], // *Model Implementing Scannable[M]
](
	ctx context.Context,
	h DBHandle,
	rawSQLStmt string,
	args ...any,
) (*M, error) {
	var item M
	p := MP(&item)
	if err := h.QueryRow(ctx, rawSQLStmt, args...).Scan(p.TargetFields()...); err != nil {
		return nil, err
	}
	return &item, nil
}

func QueryItems[
	M any, // Model struct
	MP Scannable[M], // *Model Implementing Scannable[M]
](
	ctx context.Context,
	h DBHandle,
	rawSQLStmt string,
	args ...any,
) ([]*M, error) {
	rows, err := h.QueryRows(ctx, rawSQLStmt, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)
	var items []*M
	for rows.Next() {
		var item M
		p := MP(&item)
		if err := rows.Scan(p.TargetFields()...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during iterating rows: %w", err)
	}
	return items, nil
}

// QueryStrings collects the first column of every row
func QueryStrings(ctx context.Context, h DBHandle, rawSQLStmt string, args ...any) ([]string, error) {
	rows, err := h.QueryRows(ctx, rawSQLStmt, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during iterating rows: %w", err)
	}
	return out, nil
}

func closeRows(rows Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("[WARN] rows.Close() failed: %v", err)
	}
}
