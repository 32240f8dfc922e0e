package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MockDB implements DB for testing
type MockDB struct {
	QueryFunc     func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc  func(ctx context.Context, sql string, args ...any) pgx.Row
	ExecFunc      func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatchFunc func(ctx context.Context, b *pgx.Batch) pgx.BatchResults

	ExecCalls []string
}

func (m *MockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return &MockRows{}, nil
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(ctx, sql, args...)
	}
	return &MockRow{Err: pgx.ErrNoRows}
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.ExecCalls = append(m.ExecCalls, sql)
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (m *MockDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	if m.SendBatchFunc != nil {
		return m.SendBatchFunc(ctx, b)
	}
	return &MockBatchResults{}
}

// MockRow scans Values into dest in order
type MockRow struct {
	Values []any
	Err    error
}

func (m *MockRow) Scan(dest ...any) error {
	if m.Err != nil {
		return m.Err
	}
	return assign(m.Values, dest)
}

// MockRows iterates over Data
type MockRows struct {
	pgx.Rows
	Data [][]any
	pos  int
}

func (m *MockRows) Next() bool {
	m.pos++
	return m.pos <= len(m.Data)
}

func (m *MockRows) Scan(dest ...any) error {
	return assign(m.Data[m.pos-1], dest)
}

func (m *MockRows) Close()     {}
func (m *MockRows) Err() error { return nil }

type MockBatchResults struct {
	pgx.BatchResults
	ExecErr error
	Execs   int
	Closed  bool
}

func (m *MockBatchResults) Exec() (pgconn.CommandTag, error) {
	m.Execs++
	return pgconn.NewCommandTag("INSERT 0 1"), m.ExecErr
}

func (m *MockBatchResults) Close() error {
	m.Closed = true
	return nil
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case **string:
			*d, _ = v.(*string)
		case *float64:
			*d = v.(float64)
		case **float64:
			*d, _ = v.(*float64)
		case **bool:
			*d, _ = v.(*bool)
		case **time.Time:
			*d, _ = v.(*time.Time)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return errors.New("scan: unsupported destination type")
		}
	}
	return nil
}

// MockBatchConn implements BatchConn for testing
type MockBatchConn struct {
	PrepareErr error
	Batch      *MockBatch
	Query      string
}

func (m *MockBatchConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	m.Query = query
	if m.PrepareErr != nil {
		return nil, m.PrepareErr
	}
	if m.Batch == nil {
		m.Batch = &MockBatch{}
	}
	return m.Batch, nil
}

type MockBatch struct {
	driver.Batch
	Appended  [][]any
	AppendErr error
	SendErr   error
	Sent      bool
}

func (m *MockBatch) Append(v ...any) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Appended = append(m.Appended, v)
	return nil
}

func (m *MockBatch) Send() error {
	m.Sent = true
	return m.SendErr
}

type MockExecConn struct {
	Statements []string
	Err        error
}

func (m *MockExecConn) Exec(ctx context.Context, query string, args ...any) error {
	m.Statements = append(m.Statements, query)
	return m.Err
}
