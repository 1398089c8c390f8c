package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// parseDSN accepts either a bare file path or a sqlite:// URL and returns
// the path the driver expects. Relative paths are anchored with ./ so the
// driver does not misread them as URI options.
func parseDSN(dsn string) (string, error) {
	rest := dsn
	if strings.HasPrefix(dsn, "sqlite://") {
		rest = strings.TrimPrefix(dsn, "sqlite://")
	}
	if rest == "" {
		return "", fmt.Errorf("empty sqlite DSN")
	}
	if rest == ":memory:" {
		return ":memory:", nil
	}

	path, query, _ := strings.Cut(rest, "?")
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("unescaping path: %w", err)
	}
	path = unescaped

	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") {
		path = "./" + path
	}
	if query != "" {
		return path + "?" + query, nil
	}
	return path, nil
}
