package pagefix

import (
	"path/filepath"
	"strings"
)

// NormalizePath strips a single trailing default document from p, so that
// "/docs/index.html" and "/docs/" compare equal. A bare "index.html" becomes
// the empty path. Anything else is returned unchanged, which makes the
// function idempotent: its output never ends in "/"+doc.
func NormalizePath(p, doc string) string {
	if doc == "" {
		return p
	}
	if p == doc {
		return ""
	}
	if strings.HasSuffix(p, "/"+doc) {
		return strings.TrimSuffix(p, doc)
	}
	return p
}

// PagePath maps a file inside the site root to the URL path it is served at.
// Paths always use forward slashes and start with "/".
func PagePath(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "/", nil
	}
	return "/" + strings.TrimPrefix(rel, "/"), nil
}
