// Package public embeds the stylesheet and client script of the admin UI.
package public

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed static/*
var static embed.FS

const assetCacheControl = "public, max-age=300"

// Handler serves the embedded static/ directory under prefix. Directory
// listings are refused.
func Handler(prefix string) (http.Handler, error) {
	assets, err := fs.Sub(static, "static")
	if err != nil {
		return nil, err
	}
	files := http.StripPrefix(prefix, http.FileServerFS(assets))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", assetCacheControl)
		files.ServeHTTP(w, r)
	}), nil
}
