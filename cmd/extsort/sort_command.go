package main

import (
	"github.com/spf13/cobra"

	"extsort/internal/orchestrator"
)

func newSortCommand(ctx *commandContext) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "sort [ROOT] [PREFIX]",
		Short: "Move files from ROOT/PREFIX*/ into ROOT/<extension>/",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.options(cmd, args, rf)
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

			o := orchestrator.New(ctx.output(cmd), logger, j)
			_, err = o.Run(cmd.Context(), opts)
			return err
		},
	}

	rf.register(cmd)
	return cmd
}
