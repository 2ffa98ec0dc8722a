package datasource

import (
	"database/sql"
	"fmt"
	"time"
)

// ScanRows reads a database/sql result set into ordered tuples, stopping
// after limit rows. It does not close rows.
func ScanRows(rows *sql.Rows, limit int) (*QueryExecutionResult, error) {
	if limit <= 0 || limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("get column types: %w", err)
	}

	columns := make([]ColumnInfo, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = ColumnInfo{Name: ct.Name(), Type: ct.DatabaseTypeName()}
	}

	result := &QueryExecutionResult{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if result.RowCount == limit {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			values[i] = NormalizeValue(v)
		}

		result.Rows = append(result.Rows, values)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}

// NormalizeValue converts driver-specific values into plain Go values that
// render and marshal predictably.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}
