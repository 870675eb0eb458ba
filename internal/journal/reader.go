package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// ErrRunNotFound is returned when a run ID does not appear in the journal.
var ErrRunNotFound = errors.New("run not found")

// maxLineSize bounds a single journal line.
const maxLineSize = 1024 * 1024

// Reader reads a journal file.
type Reader struct {
	path string
}

// NewReader returns a Reader for the journal at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ListRuns returns every run in the journal, oldest first.
// A missing journal yields no runs.
func (r *Reader) ListRuns() ([]RunInfo, error) {
	events, err := r.ReadEvents()
	if err != nil {
		return nil, err
	}
	return extractRunInfos(events), nil
}

// GetRun returns the events of a single run in file order.
func (r *Reader) GetRun(runID RunID) ([]Event, error) {
	events, err := r.ReadEvents()
	if err != nil {
		return nil, err
	}

	var runEvents []Event
	for _, event := range events {
		if event.RunID == runID {
			runEvents = append(runEvents, event)
		}
	}
	if len(runEvents) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return runEvents, nil
}

// GetRunInfo returns the summarized RunInfo for runID.
func (r *Reader) GetRunInfo(runID RunID) (*RunInfo, error) {
	events, err := r.GetRun(runID)
	if err != nil {
		return nil, err
	}
	info := buildRunInfo(runID, events)
	return &info, nil
}

// GetLatestRun returns the most recently started run, or nil if none exist.
func (r *Reader) GetLatestRun() (*RunInfo, error) {
	runs, err := r.ListRuns()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	latest := runs[len(runs)-1]
	return &latest, nil
}

// ReadEvents reads all events in file order.
func (r *Reader) ReadEvents() ([]Event, error) {
	file, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse journal line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading journal: %w", err)
	}

	return events, nil
}

func extractRunInfos(events []Event) []RunInfo {
	var order []RunID
	runEvents := make(map[RunID][]Event)
	for _, event := range events {
		if event.RunID == "" {
			continue
		}
		if _, seen := runEvents[event.RunID]; !seen {
			order = append(order, event.RunID)
		}
		runEvents[event.RunID] = append(runEvents[event.RunID], event)
	}

	runs := make([]RunInfo, 0, len(order))
	for _, runID := range order {
		runs = append(runs, buildRunInfo(runID, runEvents[runID]))
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartTime.Before(runs[j].StartTime)
	})
	return runs
}

// buildRunInfo folds a run's events into a RunInfo. Counts from RUN_END take
// precedence; runs without one are reconstructed from their MOVE and MKDIR
// events and stay IN_PROGRESS.
func buildRunInfo(runID RunID, events []Event) RunInfo {
	info := RunInfo{
		RunID:  runID,
		Status: RunStatusInProgress,
	}

	var counted RunSummary
	ended := false
	for _, event := range events {
		switch event.EventType {
		case EventRunStart:
			info.StartTime = event.Timestamp
			info.Root = event.Metadata["root"]
			info.Prefix = event.Metadata["prefix"]
			info.Mode = event.Metadata["mode"]

		case EventRunEnd:
			ended = true
			endTime := event.Timestamp
			info.EndTime = &endTime
			if status, ok := event.Metadata["status"]; ok {
				info.Status = RunStatus(status)
			}
			info.Summary = parseSummary(event.Metadata)

		case EventMove:
			counted.TotalFiles++
			counted.Moved++
			counted.Bytes += event.Size

		case EventMkdir:
			counted.DirsCreated++

		case EventError:
			counted.Errors++
		}
	}

	if !ended {
		info.Summary = counted
	}
	return info
}

func parseSummary(metadata map[string]string) RunSummary {
	var summary RunSummary
	summary.TotalFiles, _ = strconv.Atoi(metadata["totalFiles"])
	summary.Moved, _ = strconv.Atoi(metadata["moved"])
	summary.DirsCreated, _ = strconv.Atoi(metadata["dirsCreated"])
	summary.Bytes, _ = strconv.ParseInt(metadata["bytes"], 10, 64)
	summary.Errors, _ = strconv.Atoi(metadata["errors"])
	return summary
}
