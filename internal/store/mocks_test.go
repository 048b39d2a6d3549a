package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	SQL  string
	Args []any
}

// MockDB implements DBStore for testing. Transactions are not supported.
type MockDB struct {
	ExecCalls    []execCall
	RowsAffected int64
	ExecErr      error
	QueryRowFunc func(sql string, args ...any) pgx.Row
}

func (m *MockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("query not mocked")
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(sql, args...)
	}
	return &MockRow{Err: pgx.ErrNoRows}
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.ExecCalls = append(m.ExecCalls, execCall{SQL: sql, Args: args})
	if m.ExecErr != nil {
		return pgconn.CommandTag{}, m.ExecErr
	}
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", m.RowsAffected)), nil
}

func (m *MockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("transactions not mocked")
}

// MockRow implements pgx.Row for a single string column.
type MockRow struct {
	Value string
	Err   error
}

func (r *MockRow) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	if p, ok := dest[0].(*string); ok {
		*p = r.Value
	}
	return nil
}
