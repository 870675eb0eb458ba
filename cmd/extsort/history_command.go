package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"extsort/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history [RUN_ID|latest]",
		Short: "List journaled runs, or the moves of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled() {
				return errors.New("no journal configured: pass --journal or set [journal] path")
			}
			reader := journal.NewReader(cfg.Journal.Path)

			if len(args) == 0 {
				return printRuns(cmd, reader)
			}

			runID := journal.RunID(args[0])
			if args[0] == "latest" {
				latest, err := reader.GetLatestRun()
				if err != nil {
					return err
				}
				if latest == nil {
					return errors.New("journal contains no runs")
				}
				runID = latest.RunID
			}
			return printRun(cmd, reader, runID)
		},
	}
}

func printRuns(cmd *cobra.Command, reader *journal.Reader) error {
	runs, err := reader.ListRuns()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			string(run.RunID),
			run.StartTime.Local().Format(time.DateTime),
			run.Mode,
			string(run.Status),
			strconv.Itoa(run.Summary.Moved),
			humanize.Bytes(uint64(run.Summary.Bytes)),
			strconv.Itoa(run.Summary.Errors),
			run.Root,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run ID", "Started", "Mode", "Status", "Moved", "Size", "Errors", "Root"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	return nil
}

func printRun(cmd *cobra.Command, reader *journal.Reader, runID journal.RunID) error {
	info, err := reader.GetRunInfo(runID)
	if err != nil {
		return err
	}
	events, err := reader.GetRun(runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s, %s)\n", info.RunID, info.Mode, info.Status)
	fmt.Fprintf(out, "Root: %s  Prefix: %q\n", info.Root, info.Prefix)
	fmt.Fprintf(out, "Started: %s (%s)\n", info.StartTime.Local().Format(time.DateTime), humanize.Time(info.StartTime))

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		switch e.EventType {
		case journal.EventMove:
			rows = append(rows, []string{e.Key, e.SourcePath, e.DestinationPath, humanize.Bytes(uint64(e.Size))})
		case journal.EventError:
			msg := ""
			if e.ErrorDetails != nil {
				msg = e.ErrorDetails.ErrorType + ": " + e.ErrorDetails.ErrorMessage
			}
			fmt.Fprintf(out, "Error: %s\n", msg)
		case journal.EventOverlap:
			fmt.Fprintf(out, "Overlap: %s is also a source directory\n", e.DestinationPath)
		}
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No files moved")
		return nil
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Extension", "Source", "Destination", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(out, "Moved %d files (%s), created %d directories\n",
		info.Summary.Moved, humanize.Bytes(uint64(info.Summary.Bytes)), info.Summary.DirsCreated)
	return nil
}
