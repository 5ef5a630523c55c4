// Package filex holds filesystem and path helpers.
package filex

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir (relative paths resolve against the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// WithSuffix inserts suffix between the base name and the extension of a
// slash separated storage path: "a/doc.pdf" + "-signed" = "a/doc-signed.pdf".
func WithSuffix(p, suffix string) string {
	ext := path.Ext(p)
	if ext == "" || strings.HasSuffix(p, "/"+ext) || p == ext {
		return p + suffix
	}
	return strings.TrimSuffix(p, ext) + suffix + ext
}
