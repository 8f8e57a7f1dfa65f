//go:build dev

package resources

import (
	"net/http"
	"path/filepath"
)

// Handler returns an HTTP handler for serving static files.
// In dev mode, files are read from disk on every request so edits show up
// without a rebuild.
func Handler() http.Handler {
	fileServer := http.FileServer(http.Dir(StaticDirectoryPath))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.StripPrefix("/static/", fileServer).ServeHTTP(w, r)
	})
}

// ServeIndex writes the application shell page.
func ServeIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(StaticDirectoryPath, "index.html"))
}
