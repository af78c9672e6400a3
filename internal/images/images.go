// Package images enumerates the image files of a dataset folder.
package images

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// List returns the names of the regular entries directly inside dir whose
// name ends with ext, sorted lexicographically.
func List(fs afero.Fs, dir, ext string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}

// Key builds the image key "<folder>/<name>". The folder is kept as
// configured, only backslashes become forward slashes, so keys match result
// files written by earlier runs on any platform.
func Key(folder, name string) string {
	folder = strings.ReplaceAll(folder, `\`, "/")
	if folder == "" || strings.HasSuffix(folder, "/") {
		return folder + name
	}
	return folder + "/" + name
}
