package commands

import (
	"context"

	"github.com/blockether/sqlcockpit/internal/duck"
	"github.com/blockether/sqlcockpit/internal/loader"
)

// loaderDB adapts *duck.Connection to loader.Database. The two packages
// declare structurally identical ColumnInfo types (loader deliberately does
// not import duck), so Describe converts between them element by element.
type loaderDB struct {
	*duck.Connection
}

func (d loaderDB) Describe(ctx context.Context, table string) ([]loader.ColumnInfo, error) {
	cols, err := d.Connection.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make([]loader.ColumnInfo, len(cols))
	for i, c := range cols {
		out[i] = loader.ColumnInfo(c)
	}
	return out, nil
}
