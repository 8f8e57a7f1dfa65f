package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTableName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "orders", "orders"},
		{"mixed case", "MyOrders", "myorders"},
		{"spaces and dashes", "sales report-2024", "sales_report_2024"},
		{"leading digit", "2024_sales", "t_2024_sales"},
		{"dots", "data.export.final", "data_export_final"},
		{"trailing junk", "__orders__", "orders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeTableName(tt.input))
		})
	}
}

func TestSanitizeTableNameEmpty(t *testing.T) {
	got := SanitizeTableName("---")
	assert.NotEmpty(t, got)
	assert.Contains(t, got, "t_")
}

func TestNewFromFileDerivesTableName(t *testing.T) {
	ds := NewFromFile("Sales Report.csv", []byte("a,b\n1,2\n"), "")
	assert.Equal(t, "sales_report", ds.TableName)
	assert.Equal(t, TypeFile, ds.Type)
	require.NotNil(t, ds.FileData)
	assert.Equal(t, "Sales Report.csv", ds.FileData.Name)
	assert.NotEmpty(t, ds.ID)
}

func TestNewFromURLDerivesTableName(t *testing.T) {
	ds := NewFromURL("https://example.com/data/trips.parquet?token=x", "")
	assert.Equal(t, "trips", ds.TableName)
	assert.Equal(t, TypeURL, ds.Type)
	assert.Equal(t, "https://example.com/data/trips.parquet?token=x", ds.URL)
}

func TestRegistryDemotesLoadedAtConstruction(t *testing.T) {
	reg := NewRegistry([]DataSource{
		{ID: "a", TableName: "t_a", LoadingStatus: StatusLoaded},
		{ID: "b", TableName: "t_b", LoadingStatus: StatusFailed},
		{ID: "c", TableName: "t_c"},
	})

	snap := reg.Snapshot()
	assert.Equal(t, StatusVerificationNeeded, snap[0].LoadingStatus)
	assert.Equal(t, StatusFailed, snap[1].LoadingStatus)
	assert.Equal(t, LoadingStatus(""), snap[2].LoadingStatus)
}

func TestRegistryAddRejectsDuplicateTableName(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Add(DataSource{ID: "a", TableName: "orders"}))

	err := reg.Add(DataSource{ID: "b", TableName: "orders"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders")
	assert.Len(t, reg.Snapshot(), 1)
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	reg := NewRegistry([]DataSource{{ID: "a", TableName: "t_a"}})

	snap := reg.Snapshot()
	reg.SetStatus("a", StatusLoading, "")

	// The snapshot taken before the mutation must not change.
	assert.Equal(t, LoadingStatus(""), snap[0].LoadingStatus)

	after := reg.Snapshot()
	assert.Equal(t, StatusLoading, after[0].LoadingStatus)
}

func TestRegistrySetStatusClearsError(t *testing.T) {
	reg := NewRegistry([]DataSource{{ID: "a", TableName: "t_a"}})

	reg.SetStatus("a", StatusFailed, "fetch failed")
	ds, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "fetch failed", ds.LoadingError)

	reg.SetStatus("a", StatusLoaded, "")
	ds, _ = reg.Get("a")
	assert.Equal(t, StatusLoaded, ds.LoadingStatus)
	assert.Empty(t, ds.LoadingError)
}

func TestRegistryUpdateIgnoresRemovedSource(t *testing.T) {
	reg := NewRegistry([]DataSource{{ID: "a", TableName: "t_a"}})
	reg.Remove("a")

	// A status write racing with removal must not resurrect the source.
	reg.SetStatus("a", StatusLoaded, "")
	assert.Empty(t, reg.Snapshot())
}

func TestRegistrySubscribeReceivesPing(t *testing.T) {
	reg := NewRegistry(nil)
	ch := reg.Subscribe()
	defer reg.Unsubscribe(ch)

	require.NoError(t, reg.Add(DataSource{ID: "a", TableName: "t_a"}))

	select {
	case <-ch:
	default:
		t.Fatal("expected a ping after Add")
	}
}
