package filesystemRegistry

import (
	"os"
	"path/filepath"
)

// GetStorageDir returns the storage directory, resolved against the working
// directory when relative
func GetStorageDir(dir string) string {
	if !filepath.IsAbs(dir) {
		wd, _ := os.Getwd()
		return filepath.Join(wd, dir)
	}
	return dir
}
