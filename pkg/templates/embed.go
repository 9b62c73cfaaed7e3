// Package templates provides the embedded default files for the
// notification service extension target.
package templates

import (
	"embed"
	"io/fs"
	"path"
)

//go:embed extension
var FS embed.FS

// ReadFile returns the named template from the embedded extension set.
func ReadFile(name string) ([]byte, error) {
	return FS.ReadFile(path.Join("extension", name))
}

// Files returns the names of all embedded extension templates.
func Files() ([]string, error) {
	entries, err := fs.ReadDir(FS, "extension")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
