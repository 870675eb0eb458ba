// Package orchestrator coordinates the extsort workflow: it lists the source
// directories, classifies every file and moves it into its extension directory.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"extsort/internal/journal"
	"extsort/internal/logging"
	"extsort/internal/organizer"
	"extsort/internal/output"
	"extsort/internal/scanner"
)

// Version is recorded in journal RUN_START events. It is set by the CLI.
var Version = "dev"

// DryRunBanner is printed before a dry run.
const DryRunBanner = "DRY RUN : No files will be moved"

// Options selects what a run operates on.
type Options struct {
	Root   string
	Prefix string
	DryRun bool
}

// Orchestrator runs sort passes. It is not safe for concurrent use; watch
// mode serializes calls.
type Orchestrator struct {
	out     *output.Output
	logger  *slog.Logger
	journal *journal.Writer
	now     func() time.Time
}

// New creates an Orchestrator. out and logger may be nil; a nil journal
// disables journaling.
func New(out *output.Output, logger *slog.Logger, j *journal.Writer) *Orchestrator {
	if out == nil {
		out = output.Discard()
	}
	return &Orchestrator{
		out:     out,
		logger:  logging.OrNop(logger),
		journal: j,
		now:     time.Now,
	}
}

// Run performs one full pass over root. Each source directory is listed once,
// right before its files are moved. The first error aborts the pass; the
// returned Summary then describes the work done up to that point.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := o.now()
	summary := NewSummary(opts)

	if opts.DryRun {
		o.out.Notice(DryRunBanner)
		o.out.Info("%s", strings.Repeat("-", len(DryRunBanner)))
	}
	o.out.Info("Will move every file in %s/%s*/ to %s/<extname>/", opts.Root, opts.Prefix, opts.Root)

	runID, err := o.BeginRun(opts, "sort")
	if err != nil {
		return summary, err
	}
	summary.RunID = runID

	err = o.pass(ctx, opts, summary)
	summary.Duration = o.now().Sub(start)

	if finishErr := o.FinishRun(summary, err); finishErr != nil && err == nil {
		err = finishErr
	}
	if err != nil {
		o.logger.Error("sort pass failed",
			slog.String("root", opts.Root),
			slog.Int("moved", summary.Moved),
			slog.Any("error", err))
		return summary, err
	}

	o.out.Info("Done.")
	o.out.Info("%s", summary.Line())
	o.logger.Info("sort pass complete",
		slog.String("root", opts.Root),
		slog.String("prefix", opts.Prefix),
		slog.Bool("dry_run", opts.DryRun),
		slog.Int("files", summary.TotalFiles),
		slog.Int("dirs_created", summary.DirsCreated),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}

func (o *Orchestrator) pass(ctx context.Context, opts Options, summary *Summary) error {
	sources, err := scanner.SourceDirs(opts.Root, opts.Prefix)
	if err != nil {
		return err
	}
	summary.SourceDirs = len(sources)
	o.logger.Debug("source directories listed",
		slog.String("root", opts.Root),
		slog.Int("count", len(sources)))

	sourceNames := make(map[string]bool, len(sources))
	for _, dir := range sources {
		sourceNames[dir.Name] = true
	}

	for _, dir := range sources {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted: %w", err)
		}

		files, err := scanner.Scan(dir.FullPath)
		if err != nil {
			return err
		}

		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("run interrupted: %w", err)
			}

			outcome, err := o.sortOne(opts.Root, file, opts.DryRun)
			if err != nil {
				return err
			}
			summary.Add(outcome)

			if sourceNames[outcome.Key] {
				if err := o.flagOverlap(summary, outcome); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// flagOverlap records, once per directory, a destination that is also a
// qualifying source directory. Nothing else changes.
func (o *Orchestrator) flagOverlap(summary *Summary, outcome Outcome) error {
	for _, dir := range summary.Overlaps {
		if dir == outcome.DestinationDir {
			return nil
		}
	}
	summary.Overlaps = append(summary.Overlaps, outcome.DestinationDir)
	o.logger.Warn("destination directory is also a source directory",
		slog.String("dir", outcome.DestinationDir),
		slog.String("key", outcome.Key))

	if o.journaling() {
		return o.journal.RecordOverlap(outcome.DestinationDir, outcome.Key)
	}
	return nil
}

// SortFile moves a single file from a source directory under root into its
// extension directory, reporting it like a full pass does.
func (o *Orchestrator) SortFile(root string, file scanner.FileEntry, dryRun bool) (Outcome, error) {
	return o.sortOne(root, file, dryRun)
}

func (o *Orchestrator) sortOne(root string, file scanner.FileEntry, dryRun bool) (Outcome, error) {
	m := organizer.PlanMove(root, file)
	outcome := Outcome{Move: m}

	o.out.Info("Moving %s => %s", m.Source, m.Destination)
	if dryRun {
		return outcome, nil
	}

	result, err := organizer.Organize(m)
	if err != nil {
		return outcome, err
	}
	outcome.Moved = true
	outcome.DirCreated = result.DirCreated
	if outcome.DirCreated {
		o.out.Verbose("Created %s", m.DestinationDir)
	}

	o.logger.Debug("file moved",
		slog.String("source", m.Source),
		slog.String("destination", m.Destination),
		slog.String("key", m.Key),
		slog.Int64("size", m.Size),
		slog.Bool("dir_created", result.DirCreated))

	if o.journaling() {
		if outcome.DirCreated {
			if err := o.journal.RecordMkdir(m.DestinationDir, m.Key); err != nil {
				return outcome, err
			}
		}
		if err := o.journal.RecordMove(m.Source, m.Destination, m.Key, m.Size); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// BeginRun opens a journal run for opts. It does nothing, and returns an
// empty ID, for dry runs or when no journal is configured.
func (o *Orchestrator) BeginRun(opts Options, mode string) (journal.RunID, error) {
	if o.journal == nil || opts.DryRun {
		return "", nil
	}
	runID, err := o.journal.StartRun(journal.RunMeta{
		Root:       opts.Root,
		Prefix:     opts.Prefix,
		AppVersion: Version,
		Mode:       mode,
	})
	if err != nil {
		return "", err
	}
	o.logger.Debug("journal run started", slog.String("run_id", string(runID)))
	return runID, nil
}

// FinishRun closes the journal run opened by BeginRun, recording runErr when
// set. Cancellation ends the run as INTERRUPTED, any other error as FAILED.
func (o *Orchestrator) FinishRun(summary *Summary, runErr error) error {
	if !o.journaling() {
		return nil
	}

	status := journal.RunStatusCompleted
	errCount := 0
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = journal.RunStatusInterrupted
	default:
		status = journal.RunStatusFailed
		errCount = 1
		if err := o.journal.RecordError(errorPath(runErr), errorOperation(runErr), runErr); err != nil {
			return err
		}
	}

	return o.journal.EndRun(status, summary.journalSummary(errCount))
}

// journaling reports whether a journal run is open.
func (o *Orchestrator) journaling() bool {
	return o.journal != nil && o.journal.CurrentRunID() != nil
}

func errorPath(err error) string {
	var moveErr *organizer.MoveError
	if errors.As(err, &moveErr) {
		return moveErr.Path
	}
	var scanErr *scanner.ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Path
	}
	return ""
}

func errorOperation(err error) string {
	var moveErr *organizer.MoveError
	if errors.As(err, &moveErr) {
		if moveErr.Type == organizer.MkdirFailed {
			return "mkdir"
		}
		return "rename"
	}
	var scanErr *scanner.ScanError
	if errors.As(err, &scanErr) {
		return "scan"
	}
	return "journal"
}
