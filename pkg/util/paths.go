package util

import (
	"path/filepath"
	"strings"
)

// SafeFilePath cleans a relative path and reports whether it stays inside the
// working directory. Absolute paths and paths that still contain ".." after
// cleaning are rejected.
func SafeFilePath(p string) (string, bool) {
	cleaned, ok := cleanPath(p)
	if !ok || filepath.IsAbs(cleaned) {
		return "", false
	}
	return cleaned, true
}

// SafeFilePathAllowAbsolute is like SafeFilePath but accepts absolute paths.
// It is used for operator-supplied locations such as a WSDL file or a PFX bundle.
func SafeFilePathAllowAbsolute(p string) (string, bool) {
	return cleanPath(p)
}

func cleanPath(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	cleaned := filepath.Clean(p)
	for _, seg := range strings.FieldsFunc(cleaned, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", false
		}
	}
	return cleaned, true
}
