package archive

import (
	"context"
	"errors"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// MockClickHouseConn implements driver.Conn for testing
type MockClickHouseConn struct {
	driver.Conn
	Batch      *MockBatch
	PrepareErr error
	Queries    []string
	ExecCalls  []string
}

func (m *MockClickHouseConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	m.Queries = append(m.Queries, query)
	if m.PrepareErr != nil {
		return nil, m.PrepareErr
	}
	if m.Batch == nil {
		m.Batch = &MockBatch{}
	}
	return m.Batch, nil
}

func (m *MockClickHouseConn) Exec(ctx context.Context, query string, args ...interface{}) error {
	m.ExecCalls = append(m.ExecCalls, query)
	return nil
}

// MockBatch records appended rows
type MockBatch struct {
	driver.Batch
	Appended [][]interface{}
	Sent     bool
	SendErr  error
}

func (m *MockBatch) Append(v ...interface{}) error {
	if len(v) != 18 {
		return errors.New("column count mismatch")
	}
	m.Appended = append(m.Appended, v)
	return nil
}

func (m *MockBatch) Send() error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = true
	return nil
}

func (m *MockBatch) IsSent() bool { return m.Sent }

func (m *MockBatch) Rows() int { return len(m.Appended) }
