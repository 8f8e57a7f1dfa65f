package result

import (
	"fmt"
	"strconv"
	"time"
)

// ExportValue converts a cell value into a form safe for JSON and CSV
// export. 64-bit integers become strings because neither format can
// represent the full int64 range without precision loss.
func ExportValue(v any) any {
	switch val := v.(type) {
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case []byte:
		return string(val)
	default:
		return v
	}
}

// FormatCell renders a cell value for CSV export: NULL becomes an empty
// field and 64-bit integers keep their full precision.
func FormatCell(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := ExportValue(v).(string); ok {
		return s
	}
	return FormatValue(v)
}

// FormatValue renders a cell value for display.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
