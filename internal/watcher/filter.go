package watcher

import (
	"path/filepath"
	"strings"

	"extsort/internal/config"
)

// FileFilter decides which new files are temporary and must be left alone.
type FileFilter struct {
	patterns []string
}

// NewFileFilter creates a FileFilter. A nil slice selects the default
// temporary-file patterns; an empty non-nil slice ignores nothing.
func NewFileFilter(patterns []string) *FileFilter {
	if patterns == nil {
		patterns = config.DefaultIgnorePatterns()
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &FileFilter{patterns: lowered}
}

// ShouldIgnore matches the base name of path against the patterns, ignoring
// case. Malformed patterns never match.
func (f *FileFilter) ShouldIgnore(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, pattern := range f.patterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the normalized patterns.
func (f *FileFilter) Patterns() []string {
	result := make([]string, len(f.patterns))
	copy(result, f.patterns)
	return result
}
