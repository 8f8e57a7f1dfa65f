// Package result converts raw engine result sets and raw engine errors into
// the value types the cockpit renders: typed column lists, row maps, and a
// classified SQL error.
package result

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Column describes one result column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Row maps column name to value. Column order lives in QueryResult.Columns.
type Row map[string]any

// QueryResult is a fully materialized query outcome.
type QueryResult struct {
	Data          []Row    `json:"data"`
	Columns       []Column `json:"columns"`
	RowCount      int      `json:"rowCount"`
	ExecutionTime int64    `json:"executionTime"` // milliseconds, wall clock
}

// Querier is the part of the connection facade query execution needs.
type Querier interface {
	Query(ctx context.Context, sql string) (*sql.Rows, error)
}

// Run executes a statement and materializes the result, measuring wall-clock
// execution time around the query call. Errors come back classified; the raw
// error is never propagated.
func Run(ctx context.Context, q Querier, sqlStr string) (*QueryResult, *SQLError) {
	start := time.Now()
	rows, err := q.Query(ctx, sqlStr)
	if err != nil {
		return nil, Classify(err)
	}
	defer func() { _ = rows.Close() }()

	res, err := FromRows(rows)
	if err != nil {
		return nil, Classify(err)
	}
	res.ExecutionTime = time.Since(start).Milliseconds()
	return res, nil
}

// FromRows materializes a sql.Rows into a QueryResult. Column types and
// nullability come from the driver's schema metadata; values pass through
// unchanged except []byte, which becomes a string.
func FromRows(rows *sql.Rows) (*QueryResult, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column metadata: %w", err)
	}

	columns := make([]Column, len(colTypes))
	for i, ct := range colTypes {
		nullable, _ := ct.Nullable()
		columns[i] = Column{
			Name:     ct.Name(),
			Type:     ct.DatabaseTypeName(),
			Nullable: nullable,
		}
	}

	var data []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col.Name] = v
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &QueryResult{
		Data:     data,
		Columns:  columns,
		RowCount: rowCount(columns, data),
	}, nil
}

// rowCount is the number of returned rows, except for mutating statements:
// DuckDB reports those as a single Count cell holding the affected-row
// count, which is what the cockpit surfaces.
func rowCount(columns []Column, data []Row) int {
	if len(columns) == 1 && columns[0].Name == "Count" && len(data) == 1 {
		switch n := data[0]["Count"].(type) {
		case int64:
			return int(n)
		case int32:
			return int(n)
		case uint64:
			return int(n)
		case int:
			return n
		}
	}
	return len(data)
}
