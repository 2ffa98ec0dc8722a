package prompts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTuple renders a row as a literal tuple, e.g. ('widget', 25, 10).
// Text is single-quoted, NULL is bare.
func FormatTuple(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatValue(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FormatValue renders one scalar the way FormatTuple does.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(val)
	case []byte:
		return quote(string(val))
	case time.Time:
		return quote(val.Format(time.RFC3339))
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return quote(val.String())
	default:
		return fmt.Sprint(val)
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
