package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoActiveRun is returned when an event is recorded outside a run.
var ErrNoActiveRun = errors.New("no active run: call StartRun first")

// Writer appends events to a journal file. Every event is flushed and
// synced before the call returns.
type Writer struct {
	mu         sync.Mutex
	file       *os.File
	writer     *bufio.Writer
	path       string
	currentRun *RunID
	now        func() time.Time
}

// Open creates the parent directory if needed and opens path for appending.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return &Writer{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
		now:    time.Now,
	}, nil
}

// NewRunID returns a fresh UUID v4 run identifier.
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

// StartRun writes a RUN_START event and makes the new run current.
func (w *Writer) StartRun(meta RunMeta) (RunID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	runID := NewRunID()
	event := Event{
		Timestamp: w.now().UTC(),
		RunID:     runID,
		EventType: EventRunStart,
		Metadata: map[string]string{
			"root":       meta.Root,
			"prefix":     meta.Prefix,
			"appVersion": meta.AppVersion,
			"mode":       meta.Mode,
		},
	}
	if err := w.writeEventLocked(event); err != nil {
		return "", fmt.Errorf("failed to write RUN_START event: %w", err)
	}

	w.currentRun = &runID
	return runID, nil
}

// EndRun writes the RUN_END event with the run status and summary counts.
func (w *Writer) EndRun(status RunStatus, summary RunSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return ErrNoActiveRun
	}

	event := Event{
		Timestamp: w.now().UTC(),
		RunID:     *w.currentRun,
		EventType: EventRunEnd,
		Metadata: map[string]string{
			"status":      string(status),
			"totalFiles":  strconv.Itoa(summary.TotalFiles),
			"moved":       strconv.Itoa(summary.Moved),
			"dirsCreated": strconv.Itoa(summary.DirsCreated),
			"bytes":       strconv.FormatInt(summary.Bytes, 10),
			"errors":      strconv.Itoa(summary.Errors),
		},
	}
	if err := w.writeEventLocked(event); err != nil {
		return fmt.Errorf("failed to write RUN_END event: %w", err)
	}

	w.currentRun = nil
	return nil
}

// RecordMove records a completed move.
func (w *Writer) RecordMove(source, dest, key string, size int64) error {
	return w.record(Event{
		EventType:       EventMove,
		SourcePath:      source,
		DestinationPath: dest,
		Key:             key,
		Size:            size,
	})
}

// RecordMkdir records the creation of a destination directory.
func (w *Writer) RecordMkdir(dir, key string) error {
	return w.record(Event{
		EventType:       EventMkdir,
		DestinationPath: dir,
		Key:             key,
	})
}

// RecordOverlap records a destination directory that is also a source directory.
func (w *Writer) RecordOverlap(dir, key string) error {
	return w.record(Event{
		EventType:       EventOverlap,
		DestinationPath: dir,
		Key:             key,
	})
}

// RecordError records the error that stopped the run.
func (w *Writer) RecordError(path, operation string, cause error) error {
	details := &ErrorDetails{Operation: operation}
	if cause != nil {
		details.ErrorType = errorType(cause)
		details.ErrorMessage = cause.Error()
	}
	return w.record(Event{
		EventType:    EventError,
		SourcePath:   path,
		ErrorDetails: details,
	})
}

// typed is satisfied by the structured error types of the scanner and organizer.
type typed interface {
	error
	TypeName() string
}

func errorType(err error) string {
	var t typed
	if errors.As(err, &t) {
		return t.TypeName()
	}
	return fmt.Sprintf("%T", err)
}

func (w *Writer) record(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return ErrNoActiveRun
	}
	event.Timestamp = w.now().UTC()
	event.RunID = *w.currentRun

	if err := w.writeEventLocked(event); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event.EventType, err)
	}
	return nil
}

// writeEventLocked marshals the event, appends a newline, flushes and syncs.
func (w *Writer) writeEventLocked(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event to disk: %w", err)
	}
	return nil
}

// CurrentRunID returns the active run ID, or nil if no run is active.
func (w *Writer) CurrentRunID() *RunID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentRun
}

// Path returns the journal file path.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes buffered data and closes the journal file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}
