package result

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected ErrorType
	}{
		{"parser", `Parser Error: syntax error at or near "SELEC"`, ErrSyntax},
		{"binder", "Binder Error: column nope does not exist", ErrRuntime},
		{"oom", "Out of Memory Error: could not allocate block", ErrMemory},
		{"memory limit", "failed: memory limit exceeded", ErrMemory},
		{"permission", "IO Error: permission denied opening file", ErrPermission},
		{"readonly", "Cannot execute statement: database is read-only", ErrPermission},
		{"canceled", "INTERRUPT Error: query canceled", ErrTimeout},
		{"timeout", "query timed out after 30s", ErrTimeout},
		{"connection", "database connection not established", ErrConnection},
		{"generic", "Conversion Error: could not convert string", ErrRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(errors.New(tt.message))
			assert.Equal(t, tt.expected, got.Type)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestClassifyExtractsPosition(t *testing.T) {
	got := Classify(errors.New(`Parser Error: syntax error at LINE 3: near "FROMM"`))
	assert.Equal(t, ErrSyntax, got.Type)
	assert.Equal(t, 3, got.Line)
	assert.Zero(t, got.Column)

	got = Classify(errors.New("error at line 2, column 14: unexpected token"))
	assert.Equal(t, 2, got.Line)
	assert.Equal(t, 14, got.Column)
}

func TestSQLErrorError(t *testing.T) {
	e := &SQLError{Type: ErrSyntax, Message: "bad"}
	assert.Equal(t, "syntax: bad", e.Error())
}

func TestFromRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	cols := []*sqlmock.Column{
		sqlmock.NewColumn("id").OfType("BIGINT", int64(0)).Nullable(false),
		sqlmock.NewColumn("name").OfType("VARCHAR", "").Nullable(true),
	}
	rows := sqlmock.NewRowsWithColumnDefinition(cols...).
		AddRow(int64(1), "alpha").
		AddRow(int64(2), nil)
	mock.ExpectQuery("SELECT id, name FROM t").WillReturnRows(rows)

	raw, err := db.Query("SELECT id, name FROM t")
	require.NoError(t, err)
	defer raw.Close()

	res, err := FromRows(raw)
	require.NoError(t, err)

	require.Len(t, res.Columns, 2)
	assert.Equal(t, Column{Name: "id", Type: "BIGINT", Nullable: false}, res.Columns[0])
	assert.Equal(t, Column{Name: "name", Type: "VARCHAR", Nullable: true}, res.Columns[1])

	require.Len(t, res.Data, 2)
	assert.Equal(t, int64(1), res.Data[0]["id"])
	assert.Equal(t, "alpha", res.Data[0]["name"])
	assert.Nil(t, res.Data[1]["name"])
	assert.Equal(t, 2, res.RowCount)
}

func TestFromRowsSurfacesAffectedRowCount(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	// DuckDB reports a mutating statement as a single Count cell.
	cols := []*sqlmock.Column{sqlmock.NewColumn("Count").OfType("BIGINT", int64(0)).Nullable(false)}
	rows := sqlmock.NewRowsWithColumnDefinition(cols...).AddRow(int64(42))
	mock.ExpectQuery("INSERT INTO t SELECT * FROM s").WillReturnRows(rows)

	raw, err := db.Query("INSERT INTO t SELECT * FROM s")
	require.NoError(t, err)
	defer raw.Close()

	res, err := FromRows(raw)
	require.NoError(t, err)
	assert.Equal(t, 42, res.RowCount)
	require.Len(t, res.Data, 1)
}

func TestRowCount(t *testing.T) {
	countCol := []Column{{Name: "Count", Type: "BIGINT"}}
	tests := []struct {
		name     string
		columns  []Column
		data     []Row
		expected int
	}{
		{"mutation count", countCol, []Row{{"Count": int64(7)}}, 7},
		{"count column among others", []Column{{Name: "Count"}, {Name: "x"}}, []Row{{"Count": int64(7), "x": 1}}, 1},
		{"multi-row count column", countCol, []Row{{"Count": int64(7)}, {"Count": int64(8)}}, 2},
		{"non-numeric count cell", countCol, []Row{{"Count": "seven"}}, 1},
		{"plain select", []Column{{Name: "id"}}, []Row{{"id": 1}, {"id": 2}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rowCount(tt.columns, tt.data))
		})
	}
}

// querierFunc adapts a QueryContext-shaped function to the Querier interface.
type querierFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (f querierFunc) Query(ctx context.Context, sqlStr string) (*sql.Rows, error) {
	return f(ctx, sqlStr)
}

func TestRunMeasuresTime(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	cols := []*sqlmock.Column{sqlmock.NewColumn("n").OfType("INTEGER", int32(0)).Nullable(false)}
	mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(cols...).AddRow(int32(1)))

	res, sqlErr := Run(context.Background(), querierFunc(db.QueryContext), "SELECT 1")
	require.Nil(t, sqlErr)
	assert.Equal(t, 1, res.RowCount)
	assert.GreaterOrEqual(t, res.ExecutionTime, int64(0))
}

func TestRunClassifiesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELEC 1").WillReturnError(errors.New("Parser Error: syntax error at LINE 1"))

	res, sqlErr := Run(context.Background(), querierFunc(db.QueryContext), "SELEC 1")
	assert.Nil(t, res)
	require.NotNil(t, sqlErr)
	assert.Equal(t, ErrSyntax, sqlErr.Type)
	assert.Equal(t, 1, sqlErr.Line)
}

func TestExportValue(t *testing.T) {
	assert.Equal(t, "9007199254740993", ExportValue(int64(9007199254740993)))
	assert.Equal(t, "18446744073709551615", ExportValue(uint64(18446744073709551615)))
	assert.Equal(t, "abc", ExportValue([]byte("abc")))
	assert.Equal(t, 3.5, ExportValue(3.5))
	assert.Equal(t, "x", ExportValue("x"))
	assert.Nil(t, ExportValue(nil))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, "NULL"},
		{"string", "hello", "hello"},
		{"int64", int64(100), "100"},
		{"float", 3.14, "3.14"},
		{"bytes", []byte("world"), "world"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatValue(tt.input))
		})
	}
}
