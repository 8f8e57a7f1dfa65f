package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
)

// marshalCSV serializes inline rows to CSV. Column order is the sorted key
// set of the first row; rows missing a key produce an empty cell. 64-bit
// integers are written as plain digit strings so no precision is lost on the
// way through the CSV reader.
func marshalCSV(rows []map[string]any) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("inline source has no rows")
	}

	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, err
	}

	record := make([]string, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			record[i] = formatCSVValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCSVValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
