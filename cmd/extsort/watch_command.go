package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"extsort/internal/organizer"
	"extsort/internal/orchestrator"
	"extsort/internal/scanner"
	"extsort/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "watch [ROOT] [PREFIX]",
		Short: "Sort once, then keep sorting new files until interrupted",
		Long: `watch performs a normal sort pass, then watches every qualifying source
directory and moves new files as soon as they stop changing. Temporary
download files are left alone. Source directories created after the watch
starts are not picked up.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.options(cmd, args, rf)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			l, err := ctx.acquireLock(opts.Root, rf)
			if err != nil {
				return err
			}
			defer l.Release()

			j, err := ctx.openJournal(opts.DryRun)
			if err != nil {
				return err
			}
			if j != nil {
				defer j.Close()
			}

			out := ctx.output(cmd)
			o := orchestrator.New(out, logger, j)
			if _, err := o.Run(cmd.Context(), opts); err != nil {
				return err
			}

			sources, err := scanner.SourceDirs(opts.Root, opts.Prefix)
			if err != nil {
				return err
			}
			dirs := make([]string, len(sources))
			for i, s := range sources {
				dirs[i] = s.FullPath
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no directories matching %s/%s* to watch", opts.Root, opts.Prefix)
			}

			session := orchestrator.NewSummary(opts)
			runID, err := o.BeginRun(opts, "watch")
			if err != nil {
				return err
			}
			session.RunID = runID

			handler := func(file scanner.FileEntry) error {
				// Files already in their extension directory stay put.
				if organizer.InPlace(organizer.PlanMove(opts.Root, file)) {
					return watcher.ErrSkip
				}
				outcome, err := o.SortFile(opts.Root, file, opts.DryRun)
				if err != nil {
					return err
				}
				session.Add(outcome)
				return nil
			}

			w := watcher.New(watcher.ConfigFromSettings(cfg.Watch), handler, logger)
			out.Info("Watching %d directories in %s (Ctrl+C to stop)", len(dirs), opts.Root)

			stats, err := w.Run(cmd.Context(), dirs)
			if err != nil {
				_ = o.FinishRun(session, err)
				return err
			}
			session.Duration = stats.Duration
			if err := o.FinishRun(session, nil); err != nil {
				return err
			}

			out.Info("Watch stopped after %s: %d sorted, %d ignored, %d skipped, %d failed",
				stats.Duration.Round(time.Second), stats.Sorted, stats.Ignored, stats.Skipped, stats.Failed)
			out.Info("%s", session.Line())
			return nil
		},
	}

	rf.register(cmd)
	return cmd
}
