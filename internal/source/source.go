// Package source defines data-source descriptors and the in-memory registry
// that tracks which relations the cockpit knows about and their load state.
package source

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Type identifies what kind of relation a data source describes.
type Type string

const (
	TypeTable Type = "table"
	TypeView  Type = "view"
	TypeFile  Type = "file"
	TypeURL   Type = "url"
)

// LoadingStatus tracks where a data source is in its load lifecycle.
// The zero value means the source has not been evaluated yet.
type LoadingStatus string

const (
	StatusLoading LoadingStatus = "loading"
	StatusLoaded  LoadingStatus = "loaded"
	StatusFailed  LoadingStatus = "failed"

	// StatusVerificationNeeded marks a source that claims to be loaded from
	// rehydrated state but has not been confirmed to exist in the live
	// database. Assigned at registry construction, cleared by the loader.
	StatusVerificationNeeded LoadingStatus = "verification_needed"
)

// Column describes one column of a loaded relation.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// FileData holds an in-memory file payload for file-type sources.
type FileData struct {
	Name  string
	Bytes []byte
}

// DataSource describes one importable or queryable relation. Exactly one of
// URL, FileData, or Data is populated for sources that carry their own data;
// table and view sources reference relations that already exist.
type DataSource struct {
	ID        string
	Type      Type
	TableName string

	URL      string
	FileData *FileData
	Data     []map[string]any

	LoadingStatus LoadingStatus
	LoadingError  string
	Schema        []Column
}

// NewFromFile creates a file-type source from an uploaded file. The table
// name is derived from the file name unless an explicit name is given.
func NewFromFile(fileName string, data []byte, tableName string) DataSource {
	if tableName == "" {
		base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		tableName = SanitizeTableName(base)
	}
	return DataSource{
		ID:        uuid.New().String(),
		Type:      TypeFile,
		TableName: tableName,
		FileData:  &FileData{Name: fileName, Bytes: data},
	}
}

// NewFromURL creates a url-type source. The table name is derived from the
// final path segment of the URL unless an explicit name is given.
func NewFromURL(rawURL, tableName string) DataSource {
	if tableName == "" {
		base := rawURL
		if i := strings.LastIndexByte(base, '/'); i >= 0 {
			base = base[i+1:]
		}
		if i := strings.IndexByte(base, '?'); i >= 0 {
			base = base[:i]
		}
		base = strings.TrimSuffix(base, filepath.Ext(base))
		tableName = SanitizeTableName(base)
	}
	return DataSource{
		ID:        uuid.New().String(),
		Type:      TypeURL,
		TableName: tableName,
		URL:       rawURL,
	}
}

// NewInline creates a file-type source backed by inline rows.
func NewInline(tableName string, rows []map[string]any) DataSource {
	return DataSource{
		ID:        uuid.New().String(),
		Type:      TypeFile,
		TableName: SanitizeTableName(tableName),
		Data:      rows,
	}
}

// SanitizeTableName converts an arbitrary name into a valid SQL identifier:
// non-alphanumeric runes become underscores and a leading digit is prefixed.
func SanitizeTableName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "t_" + uuid.New().String()[:8]
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "t_" + out
	}
	return out
}
