// Package fsutil holds small filesystem helpers shared by the export
// and raw-dump paths.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// Mkdir joins the given path elements, creates the resulting directory
// (including parents) if it does not exist, and returns the path.
//
// If the path already exists and is not a directory, an error is
// returned before anything is written.
func Mkdir(pathElements ...string) (string, error) {
	dir := filepath.Join(pathElements...)

	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return dir, nil
	}

	if !info.IsDir() {
		return "", fmt.Errorf("cannot create directory %s: a file with the same name already exists", dir)
	}
	return dir, nil
}
