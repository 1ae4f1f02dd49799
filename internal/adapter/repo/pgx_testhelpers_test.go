package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storefront/internal/infra"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

// sliceRows replays a fixed set of rows through per-row scan funcs.
type sliceRows struct {
	testRowsBase
	scans  []func(dest ...any) error
	idx    int
	closed bool
	err    error
}

func (r *sliceRows) Next() bool {
	if r.idx >= len(r.scans) {
		return false
	}
	r.idx++
	return true
}

func (r *sliceRows) Scan(dest ...any) error { return r.scans[r.idx-1](dest...) }

func (r *sliceRows) Err() error { return r.err }

func (r *sliceRows) Close() { r.closed = true }

type recordedCall struct {
	query string
	args  []any
}

// fakeExecutor records calls and answers them with canned rows.
type fakeExecutor struct {
	calls []recordedCall
	row   pgx.Row
	rows  pgx.Rows
}

func (f *fakeExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, recordedCall{query: query, args: args})
	return pgconn.CommandTag{}, nil
}

func (f *fakeExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	f.calls = append(f.calls, recordedCall{query: query, args: args})
	if f.row == nil {
		return simpleRow{}
	}
	return f.row
}

func (f *fakeExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, recordedCall{query: query, args: args})
	return f.rows, nil
}

var _ infra.SQLExecutor = (*fakeExecutor)(nil)
