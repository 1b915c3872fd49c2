package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxPathLength = 4096

// ExpandPath expands a leading ~/ and converts the result to an absolute path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

// ValidateDBPath checks a database file path and returns its expanded form.
// The parent directory is created when missing.
func ValidateDBPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if len(path) > maxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", maxPathLength)
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("path contains null bytes")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", fmt.Errorf("path traversal detected")
		}
	}

	expanded := ExpandPath(path)

	if info, err := os.Stat(expanded); err == nil && info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", expanded)
	}

	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("creating database directory: %w", err)
	}

	return expanded, nil
}
