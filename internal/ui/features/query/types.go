package query

import "github.com/blockether/sqlcockpit/internal/result"

// QuerySignals represents the signals sent from the frontend.
type QuerySignals struct {
	SQL string `json:"sql"`
}

// ResultSignals is the signal patch sent back after execution.
type ResultSignals struct {
	Result     *result.QueryResult `json:"result"`
	QueryError *result.SQLError    `json:"queryError"`
	Running    bool                `json:"running"`
}

// ExportRequest asks for a slice of a result set in a download format. The
// selection indices come from the grid; an empty selection exports the full
// result.
type ExportRequest struct {
	SQL     string `json:"sql"`
	Format  string `json:"format"` // csv or json
	Mode    string `json:"mode"`   // rows, columns, or empty
	Indices []int  `json:"indices"`
}
