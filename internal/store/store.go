// Package store persists the catalog, lots and their movements in SQLite.
//
// Every function takes the database handle explicitly. Sequences that read then
// write run in one transaction; the database is opened so that transactions
// take the write lock at BEGIN.
package store

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/domovra/domovra/internal/retention"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// validQty reports whether qty is a finite quantity, strictly positive unless
// zero is allowed.
func validQty(qty float64, allowZero bool) bool {
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return false
	}
	if allowZero {
		return qty >= 0
	}
	return qty > 0
}

const timestampLayout = "2006-01-02 15:04:05"

var now = time.Now

// SetClock replaces the clock used for created_on, ended_on and movement
// timestamps. It returns a function restoring the previous clock.
func SetClock(fn func() time.Time) func() {
	prev := now
	now = fn
	return func() { now = prev }
}

func today() string {
	return now().Format(retention.DateLayout)
}

func timestamp() string {
	return now().Format(timestampLayout)
}

// nullString maps the empty string to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolInt(*b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
