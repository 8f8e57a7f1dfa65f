package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockether/sqlcockpit/internal/result"
)

func sampleResult() *result.QueryResult {
	return &result.QueryResult{
		Columns: []result.Column{
			{Name: "id", Type: "BIGINT"},
			{Name: "name", Type: "VARCHAR"},
		},
		Data: []result.Row{
			{"id": int64(9007199254740993), "name": "alpha"},
			{"id": int64(2), "name": nil},
		},
		RowCount:      2,
		ExecutionTime: 12,
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(), "table"))

	out := buf.String()
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows in 12 ms)")
}

func TestRenderTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, &result.QueryResult{}, "table"))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestRenderJSONKeepsBigIntPrecision(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(), "json"))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "9007199254740993", rows[0]["id"])
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(), "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name", lines[0])
	assert.Equal(t, "9007199254740993,alpha", lines[1])
	assert.Equal(t, "2,", lines[2])
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(), "markdown"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| id | name |", lines[0])
	assert.Equal(t, "| --- | --- |", lines[1])
}

func TestReadStatement(t *testing.T) {
	stmt, err := readStatement([]string{"SELECT 1"}, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", stmt)

	stmt, err = readStatement(nil, strings.NewReader("  SELECT 2  "))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", stmt)

	stmt, err = readStatement([]string{"-"}, strings.NewReader("SELECT 3"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 3", stmt)

	_, err = readStatement(nil, strings.NewReader("   "))
	require.Error(t, err)
}
