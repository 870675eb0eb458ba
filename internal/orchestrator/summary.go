package orchestrator

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"extsort/internal/journal"
	"extsort/internal/organizer"
)

// Outcome is the result of sorting one file.
type Outcome struct {
	organizer.Move
	Moved      bool // False for dry runs
	DirCreated bool // True if the move created DestinationDir
}

// Summary contains statistics from a sort pass.
type Summary struct {
	Root        string
	Prefix      string
	DryRun      bool
	RunID       journal.RunID
	SourceDirs  int
	TotalFiles  int            // Files classified
	Moved       int            // Files actually renamed
	DirsCreated int            // Extension directories created
	Bytes       int64          // Bytes in the classified files
	ByKey       map[string]int // Files per extension key
	Moves       []organizer.Move
	Overlaps    []string // Destination directories that were also source directories
	Duration    time.Duration
}

// NewSummary returns an empty Summary for opts.
func NewSummary(opts Options) *Summary {
	return &Summary{
		Root:   opts.Root,
		Prefix: opts.Prefix,
		DryRun: opts.DryRun,
		ByKey:  make(map[string]int),
	}
}

// Add accumulates the outcome of one file.
func (s *Summary) Add(o Outcome) {
	s.TotalFiles++
	s.Bytes += o.Size
	s.ByKey[o.Key]++
	s.Moves = append(s.Moves, o.Move)
	if o.Moved {
		s.Moved++
	}
	if o.DirCreated {
		s.DirsCreated++
	}
}

// Keys returns the extension keys seen, sorted.
func (s *Summary) Keys() []string {
	return sortedKeys(s.ByKey)
}

// Line returns the one-line summary printed after a pass.
func (s *Summary) Line() string {
	verb := "Moved"
	count := s.Moved
	if s.DryRun {
		verb = "Would move"
		count = s.TotalFiles
	}
	return fmt.Sprintf("%s %s (%s) into %s",
		verb,
		plural(count, "file", "files"),
		humanize.Bytes(uint64(s.Bytes)),
		plural(len(s.ByKey), "directory", "directories"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%s %s", humanize.Comma(int64(n)), many)
}

func (s *Summary) journalSummary(errors int) journal.RunSummary {
	return journal.RunSummary{
		TotalFiles:  s.TotalFiles,
		Moved:       s.Moved,
		DirsCreated: s.DirsCreated,
		Bytes:       s.Bytes,
		Errors:      errors,
	}
}
