package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"extsort/internal/orchestrator"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [ROOT] [PREFIX]",
		Short: "Show where each file would go, grouped by extension",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.options(cmd, args, nil)
			if err != nil {
				return err
			}

			plan, err := orchestrator.Plan(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if plan.GrandTotal == 0 {
				fmt.Fprintf(out, "Nothing to move in %s/%s*/\n", opts.Root, opts.Prefix)
				return nil
			}

			rows := make([][]string, 0)
			for _, sp := range plan.Sources {
				for _, key := range sp.Keys() {
					moves := sp.ByKey[key]
					var size int64
					for _, m := range moves {
						size += m.Size
					}
					rows = append(rows, []string{
						filepath.Base(sp.Directory),
						key,
						strconv.Itoa(len(moves)),
						humanize.Bytes(uint64(size)),
						moves[0].DestinationDir,
					})
				}
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Source", "Extension", "Files", "Size", "Destination"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "Total: %s files (%s) from %d directories into %d extension directories\n",
				humanize.Comma(int64(plan.GrandTotal)),
				humanize.Bytes(uint64(plan.Bytes)),
				len(plan.Sources),
				len(plan.ByKey))
			return nil
		},
	}
}
