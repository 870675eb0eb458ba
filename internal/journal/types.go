// Package journal keeps an append-only JSON Lines record of extsort runs.
// It is informational: entries describe completed moves and run outcomes so
// `extsort history` can list them. Nothing is ever replayed or reverted.
package journal

import "time"

// RunID is a unique identifier for each run (UUID v4).
type RunID string

// EventType represents the type of journal event.
type EventType string

const (
	EventRunStart EventType = "RUN_START"
	EventRunEnd   EventType = "RUN_END"
	EventMove     EventType = "MOVE"
	EventMkdir    EventType = "MKDIR"
	EventError    EventType = "ERROR"
	EventOverlap  EventType = "OVERLAP"
)

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusInProgress  RunStatus = "IN_PROGRESS"
	RunStatusCompleted   RunStatus = "COMPLETED"
	RunStatusFailed      RunStatus = "FAILED"
	RunStatusInterrupted RunStatus = "INTERRUPTED"
)

// ErrorDetails contains detailed information about an error.
type ErrorDetails struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
	Operation    string `json:"operation"`
}

// Event represents a single journal record.
type Event struct {
	Timestamp       time.Time         `json:"timestamp"`
	RunID           RunID             `json:"runId"`
	EventType       EventType         `json:"eventType"`
	SourcePath      string            `json:"sourcePath,omitempty"`
	DestinationPath string            `json:"destinationPath,omitempty"`
	Key             string            `json:"key,omitempty"`
	Size            int64             `json:"size,omitempty"`
	ErrorDetails    *ErrorDetails     `json:"errorDetails,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// RunMeta describes the parameters a run was started with.
type RunMeta struct {
	Root       string
	Prefix     string
	AppVersion string
	Mode       string // "sort" or "watch"
}

// RunSummary contains statistics for a completed run.
type RunSummary struct {
	TotalFiles  int   `json:"totalFiles"`
	Moved       int   `json:"moved"`
	DirsCreated int   `json:"dirsCreated"`
	Bytes       int64 `json:"bytes"`
	Errors      int   `json:"errors"`
}

// RunInfo contains metadata and summary for a run.
type RunInfo struct {
	RunID     RunID      `json:"runId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Status    RunStatus  `json:"status"`
	Root      string     `json:"root"`
	Prefix    string     `json:"prefix"`
	Mode      string     `json:"mode"`
	Summary   RunSummary `json:"summary"`
}
