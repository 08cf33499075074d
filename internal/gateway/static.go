package gateway

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// staticHandler serves files from a root directory with the same
// semantics as "try_files $uri $uri/ =404": a file is served directly,
// a directory serves its index.html, anything else is 404.
type staticHandler struct {
	root  string
	index string
}

func newStaticHandler(root string) *staticHandler {
	return &staticHandler{
		root:  root,
		index: "index.html",
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	// Normalize and contain the path within the root
	clean := path.Clean("/" + r.URL.Path)
	if strings.Contains(clean, "..") {
		http.NotFound(w, r)
		return
	}
	name := filepath.Join(h.root, filepath.FromSlash(clean))

	info, err := os.Stat(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if info.IsDir() {
		name = filepath.Join(name, h.index)
		if _, err := os.Stat(name); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	http.ServeFile(w, r, name)
}
