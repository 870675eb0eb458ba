package main

import (
	"github.com/spf13/cobra"

	"extsort/internal/orchestrator"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)
	orchestrator.Version = version

	rootCmd := &cobra.Command{
		Use:   "extsort",
		Short: "Sort files into directories named after their extension",
		Long: `extsort moves every file found directly inside the subdirectories of ROOT
whose name starts with PREFIX into ROOT/<extension>/, lowercasing the
extension. Files without a usable extension go to ROOT/NOEXT/.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.journalPath, "journal", "", "Append run events to this JSON Lines file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Print extra progress detail")
	pf.StringVar(&flags.logLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Diagnostic log format (text, json)")

	rootCmd.AddCommand(newSortCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
