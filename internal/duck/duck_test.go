package duck

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "orders", `"orders"`},
		{"embedded quote", `or"ders`, `"or""ders"`},
		{"schema qualified", "main.orders", `"main"."orders"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteIdent(tt.input))
		})
	}
}

func TestQuotePath(t *testing.T) {
	assert.Equal(t, "'/tmp/a.csv'", QuotePath("/tmp/a.csv"))
	assert.Equal(t, "'/tmp/o''brien.csv'", QuotePath("/tmp/o'brien.csv"))
}

func TestTableExists(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	conn := NewWithDB(db, "")

	mock.ExpectQuery(`SELECT 1 FROM "t_a" LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	exists, err := conn.TableExists(context.Background(), "t_a")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(`SELECT 1 FROM "t_missing" LIMIT 1`).
		WillReturnError(assert.AnError)
	exists, err = conn.TableExists(context.Background(), "t_missing")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribe(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	conn := NewWithDB(db, "")

	rows := sqlmock.NewRows([]string{"column_name", "column_type", "null", "key", "default", "extra"}).
		AddRow("id", "BIGINT", "NO", nil, nil, nil).
		AddRow("name", "VARCHAR", "YES", nil, nil, nil)
	mock.ExpectQuery(`DESCRIBE "orders"`).WillReturnRows(rows)

	cols, err := conn.Describe(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, ColumnInfo{Name: "id", Type: "BIGINT", Nullable: false}, cols[0])
	assert.Equal(t, ColumnInfo{Name: "name", Type: "VARCHAR", Nullable: true}, cols[1])
}

func TestRegisterAndDropFileBuffer(t *testing.T) {
	dir := t.TempDir()
	conn := NewWithDB(nil, dir)

	path, err := conn.RegisterFileBuffer("data.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data.csv"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(content))

	require.NoError(t, conn.DropFile("data.csv"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Dropping an absent file is not an error.
	require.NoError(t, conn.DropFile("data.csv"))
}

func TestRegisterFileBufferFlattensPath(t *testing.T) {
	dir := t.TempDir()
	conn := NewWithDB(nil, dir)

	path, err := conn.RegisterFileBuffer("../../escape.csv", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.csv"), path)
}

func TestQueryWithoutConnection(t *testing.T) {
	conn := NewWithDB(nil, "")
	_, err := conn.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
}
