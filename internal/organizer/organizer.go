// Package organizer handles destination directories and file moves for extsort.
package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"extsort/internal/classifier"
	"extsort/internal/scanner"
)

// MoveErrorType represents the type of move error.
type MoveErrorType string

const (
	// SourceNotFound indicates the source file does not exist.
	SourceNotFound MoveErrorType = "SOURCE_NOT_FOUND"
	// PermissionDenied indicates insufficient permissions for the operation.
	PermissionDenied MoveErrorType = "PERMISSION_DENIED"
	// MkdirFailed indicates the destination directory could not be created.
	MkdirFailed MoveErrorType = "MKDIR_FAILED"
	// RenameFailed indicates the rename itself failed.
	RenameFailed MoveErrorType = "RENAME_FAILED"
)

// MoveError represents an error that occurred during file movement.
type MoveError struct {
	Type MoveErrorType
	Path string
	Err  error
}

func (e *MoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// TypeName returns the error category.
func (e *MoveError) TypeName() string {
	return string(e.Type)
}

// Move describes where a single file goes.
type Move struct {
	Source         string
	Destination    string
	DestinationDir string
	Key            string
	Size           int64
}

// MoveResult represents the result of a completed move.
type MoveResult struct {
	SourcePath      string
	DestinationPath string
	DirCreated      bool // True if this move created DestinationDir
}

// PlanMove computes the destination of file under root:
// <root>/<extension key>/<file name>.
func PlanMove(root string, file scanner.FileEntry) Move {
	key := classifier.Key(file.Name)
	destDir := DestinationDir(root, key)
	return Move{
		Source:         file.FullPath,
		Destination:    filepath.Join(destDir, file.Name),
		DestinationDir: destDir,
		Key:            key,
		Size:           file.Size,
	}
}

// DestinationDir returns the directory under root that receives files with key.
func DestinationDir(root, key string) string {
	return filepath.Join(root, key)
}

// Organize creates the destination directory if needed and renames the file
// into it. An existing file at the destination is handled by os.Rename as-is.
func Organize(m Move) (*MoveResult, error) {
	created, err := EnsureDir(m.DestinationDir)
	if err != nil {
		return nil, err
	}

	if _, err := os.Lstat(m.Source); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MoveError{Type: SourceNotFound, Path: m.Source, Err: err}
		}
		return nil, classifyError(RenameFailed, m.Source, err)
	}

	if err := os.Rename(m.Source, m.Destination); err != nil {
		return nil, classifyError(RenameFailed, m.Source, err)
	}

	return &MoveResult{
		SourcePath:      m.Source,
		DestinationPath: m.Destination,
		DirCreated:      created,
	}, nil
}

// EnsureDir creates dir (non-recursively) if it does not exist.
// It reports whether the directory was created by this call. A directory
// that already exists, or appears between the check and the mkdir, is not
// an error.
func EnsureDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, &MoveError{
				Type: MkdirFailed,
				Path: dir,
				Err:  errors.New("destination exists and is not a directory"),
			}
		}
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, classifyError(MkdirFailed, dir, err)
	}

	if err := os.Mkdir(dir, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, classifyError(MkdirFailed, dir, err)
	}
	return true, nil
}

// InPlace reports whether m would rename a file onto itself, comparing
// absolute paths so relative and absolute spellings of root agree.
func InPlace(m Move) bool {
	src, err := filepath.Abs(m.Source)
	if err != nil {
		return filepath.Clean(m.Source) == filepath.Clean(m.Destination)
	}
	dst, err := filepath.Abs(m.Destination)
	if err != nil {
		return filepath.Clean(m.Source) == filepath.Clean(m.Destination)
	}
	return src == dst
}

func classifyError(fallback MoveErrorType, path string, err error) *MoveError {
	if errors.Is(err, os.ErrPermission) {
		return &MoveError{Type: PermissionDenied, Path: path, Err: err}
	}
	return &MoveError{Type: fallback, Path: path, Err: err}
}
