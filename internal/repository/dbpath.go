package repository

import "path/filepath"

// DatabasePath builds the on-disk location of a store file from structured
// components: a directory and a logical store name. The name is sanitized
// with a whitelist (letters, digits, '.', '-', '_'); every other rune,
// spaces included, becomes '_'. A ".db" suffix is appended when missing.
//
// The in-memory marker ":memory:" is passed through untouched.
func DatabasePath(dir, name string) string {
	if name == ":memory:" {
		return name
	}

	sanitized := []rune(name)
	for i, r := range sanitized {
		if !isPathSafe(r) {
			sanitized[i] = '_'
		}
	}

	file := string(sanitized)
	if filepath.Ext(file) != ".db" {
		file += ".db"
	}
	return filepath.Join(dir, file)
}

func isPathSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '-' || r == '_':
		return true
	}
	return false
}
