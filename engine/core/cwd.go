package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveWorkingDir makes path absolute and checks that it is a directory.
// An empty path stays empty, meaning the caller's working directory.
func ResolveWorkingDir(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	absPath := path
	if !filepath.IsAbs(path) {
		var err error
		absPath, err = filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path: %w", err)
		}
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("working directory not found or inaccessible: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("working directory %q is not a directory", absPath)
	}
	return absPath, nil
}
