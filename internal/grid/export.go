package grid

import (
	"bytes"
	"encoding/csv"
	"encoding/json"

	"github.com/blockether/sqlcockpit/internal/result"
)

// ExportCSV serializes the selected slice of a result set to CSV. Column
// mode exports every row restricted to the selected columns; row mode
// exports the selected rows with every column; an empty selection exports
// everything.
func ExportCSV(res *result.QueryResult, sel *Selection) (string, error) {
	cols, rowIdx := resolve(res, sel)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = res.Columns[c].Name
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	record := make([]string, len(cols))
	for _, r := range rowIdx {
		row := res.Data[r]
		for i, c := range cols {
			record[i] = result.FormatCell(row[res.Columns[c].Name])
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExportJSON serializes the selected slice of a result set to a JSON array
// of objects. 64-bit integers are rendered as strings.
func ExportJSON(res *result.QueryResult, sel *Selection) (string, error) {
	cols, rowIdx := resolve(res, sel)

	out := make([]map[string]any, 0, len(rowIdx))
	for _, r := range rowIdx {
		row := res.Data[r]
		obj := make(map[string]any, len(cols))
		for _, c := range cols {
			name := res.Columns[c].Name
			obj[name] = result.ExportValue(row[name])
		}
		out = append(out, obj)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// resolve maps the selection onto concrete column and row index lists,
// both ascending. Because modes are exclusive at most one dimension is ever
// restricted.
func resolve(res *result.QueryResult, sel *Selection) (cols, rows []int) {
	switch sel.Mode() {
	case ModeColumn:
		cols = sel.Columns()
	case ModeRow:
		rows = sel.Rows()
	}

	if cols == nil {
		cols = make([]int, len(res.Columns))
		for i := range cols {
			cols[i] = i
		}
	}
	if rows == nil {
		rows = make([]int, len(res.Data))
		for i := range rows {
			rows[i] = i
		}
	}

	// Drop out-of-range indices so a stale selection over a re-run query
	// cannot panic the export.
	cols = clamp(cols, len(res.Columns))
	rows = clamp(rows, len(res.Data))
	return cols, rows
}

func clamp(idx []int, n int) []int {
	out := idx[:0]
	for _, i := range idx {
		if i >= 0 && i < n {
			out = append(out, i)
		}
	}
	return out
}
