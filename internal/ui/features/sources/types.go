package sources

import "github.com/blockether/sqlcockpit/internal/source"

// SourceView is the JSON shape of one data source as the frontend sees it.
type SourceView struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	TableName string          `json:"table_name"`
	URL       string          `json:"url,omitempty"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	Schema    []source.Column `json:"schema,omitempty"`
}

// SourceSignals is the signal patch streamed to the page whenever the
// registry changes.
type SourceSignals struct {
	Sources []SourceView `json:"sources"`
	Loading bool         `json:"sourcesLoading"`
}

// AddURLRequest asks for a new url-backed source.
type AddURLRequest struct {
	URL       string `json:"url"`
	TableName string `json:"table_name"`
}

func toView(ds source.DataSource) SourceView {
	return SourceView{
		ID:        ds.ID,
		Type:      string(ds.Type),
		TableName: ds.TableName,
		URL:       ds.URL,
		Status:    string(ds.LoadingStatus),
		Error:     ds.LoadingError,
		Schema:    ds.Schema,
	}
}
