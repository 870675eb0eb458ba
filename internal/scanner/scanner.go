// Package scanner enumerates source directories and the files inside them.
package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ScanErrorType represents the type of scanning error.
type ScanErrorType string

const (
	// DirectoryNotFound indicates the directory does not exist.
	DirectoryNotFound ScanErrorType = "DIRECTORY_NOT_FOUND"
	// PermissionDenied indicates insufficient permissions to read the directory.
	PermissionDenied ScanErrorType = "PERMISSION_DENIED"
	// NotADirectory indicates the path exists but is not a directory.
	NotADirectory ScanErrorType = "NOT_A_DIRECTORY"
	// ReadFailed covers any other listing failure.
	ReadFailed ScanErrorType = "READ_FAILED"
)

// ScanError represents an error that occurred during directory scanning.
type ScanError struct {
	Type ScanErrorType
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return string(e.Type) + ": " + e.Path + " (" + e.Err.Error() + ")"
	}
	return string(e.Type) + ": " + e.Path
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// TypeName returns the error category.
func (e *ScanError) TypeName() string {
	return string(e.Type)
}

// SourceDir is a qualifying direct child directory of root.
type SourceDir struct {
	Name     string // Directory name only
	FullPath string // root joined with Name
}

// FileEntry represents a regular file found during scanning.
type FileEntry struct {
	Name     string // Filename only
	FullPath string // Directory joined with Name
	Size     int64  // Size in bytes at scan time
}

// SourceDirs lists the direct child directories of root whose names start
// with prefix. An empty prefix selects every child directory. Symlinks to
// directories are not followed. Entries come back in listing order.
func SourceDirs(root, prefix string) ([]SourceDir, error) {
	entries, err := readDir(root)
	if err != nil {
		return nil, err
	}

	dirs := make([]SourceDir, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		dirs = append(dirs, SourceDir{
			Name:     entry.Name(),
			FullPath: filepath.Join(root, entry.Name()),
		})
	}

	return dirs, nil
}

// Scan enumerates regular files in the given directory without recursion.
// Subdirectories, symlinks and special files are excluded.
func Scan(directory string) ([]FileEntry, error) {
	entries, err := readDir(directory)
	if err != nil {
		return nil, err
	}

	files := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // Removed since listing
		}

		files = append(files, FileEntry{
			Name:     entry.Name(),
			FullPath: filepath.Join(directory, entry.Name()),
			Size:     info.Size(),
		})
	}

	return files, nil
}

// readDir lists a directory, translating failures into a ScanError.
func readDir(directory string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(directory)
	if err == nil {
		return entries, nil
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, &ScanError{Type: DirectoryNotFound, Path: directory, Err: err}
	case errors.Is(err, os.ErrPermission):
		return nil, &ScanError{Type: PermissionDenied, Path: directory, Err: err}
	}

	if info, statErr := os.Stat(directory); statErr == nil && !info.IsDir() {
		return nil, &ScanError{
			Type: NotADirectory,
			Path: directory,
			Err:  errors.New("path is not a directory"),
		}
	}

	return nil, &ScanError{Type: ReadFailed, Path: directory, Err: err}
}
