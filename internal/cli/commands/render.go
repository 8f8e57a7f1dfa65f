package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/blockether/sqlcockpit/internal/grid"
	"github.com/blockether/sqlcockpit/internal/result"
)

// renderResult writes a materialized query result in the requested format.
// CSV and JSON reuse the grid exporter so CLI output matches downloads from
// the web UI, 64-bit integer handling included.
func renderResult(w io.Writer, res *result.QueryResult, format string) error {
	switch format {
	case "json":
		out, err := grid.ExportJSON(res, &grid.Selection{})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err

	case "csv":
		out, err := grid.ExportCSV(res, &grid.Selection{})
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, out)
		return err

	case "md", "markdown":
		return renderMarkdown(w, res)

	default:
		return renderTable(w, res)
	}
}

func renderTable(w io.Writer, res *result.QueryResult) error {
	if res.RowCount == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		headerRow[i] = col.Name
	}
	t.AppendHeader(headerRow)

	for _, r := range res.Data {
		row := make(table.Row, len(res.Columns))
		for i, col := range res.Columns {
			row[i] = result.FormatValue(r[col.Name])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows in %d ms)\n", res.RowCount, res.ExecutionTime)
	return nil
}

func renderMarkdown(w io.Writer, res *result.QueryResult) error {
	if res.RowCount == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	names := make([]string, len(res.Columns))
	seps := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		names[i] = col.Name
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(names, " | "))
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, r := range res.Data {
		values := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			values[i] = result.FormatValue(r[col.Name])
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}
