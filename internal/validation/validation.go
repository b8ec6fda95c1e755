// Package validation provides input validation utilities.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateTargetPath validates a path a file-mutating action is about to
// write. Relative paths are rejected because the engine runs from an
// arbitrary working directory, and traversal segments are rejected so a
// catalog cannot smuggle writes outside the path it names.
func ValidateTargetPath(path string) error {
	if path == "" {
		return fmt.Errorf("target path cannot be empty")
	}

	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("target path contains null byte")
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("target path %q must be absolute", path)
	}

	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == ".." {
			return fmt.Errorf("target path %q cannot contain '..'", path)
		}
	}

	return nil
}
