// Package query provides the read-only query facility the comparison engine
// uses against the two dataset snapshots being compared. It defines the
// Executor abstraction, a SQLite-backed implementation, and helpers for
// building chunked parameterized queries.
package query

import (
	"context"
	"fmt"
)

// Row is one positional result row; values align with the SELECT list of the
// statement that produced it.
type Row []any

// Executor runs read-only parameterized queries against one dataset snapshot.
// Implementations must tolerate empty results.
type Executor interface {
	Select(ctx context.Context, stmt string, args []any) ([]Row, error)
}

// AsString converts a scanned column value to a string. NULL becomes the
// empty string.
func AsString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// AsInt64 converts a scanned column value to an int64. NULL and
// non-numeric values become zero.
func AsInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}
