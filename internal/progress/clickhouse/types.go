package clickhouse

import (
	"context"
	"time"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Metrics records the outcome of each repository operation.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}

	// Conn is the subset of a ClickHouse connection the repository uses.
	Conn interface {
		PrepareBatch(ctx context.Context, query string) (Batch, error)
		Query(ctx context.Context, query string, args ...any) (Rows, error)
		Close() error
	}

	// Batch is a pending batch insert.
	Batch interface {
		Append(v ...any) error
		Send() error
	}

	// Rows iterates query results.
	Rows interface {
		Next() bool
		Scan(dest ...any) error
		Err() error
		Close() error
	}
)
