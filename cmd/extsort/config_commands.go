package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"extsort/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "init [PATH]",
		Short:       "Create a sample configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) == 1 {
				expanded, err := config.ExpandPath(args[0])
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			} else {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var savePath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if savePath != "" {
				target, err := config.ExpandPath(savePath)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				if err := config.Save(cfg, target); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote effective configuration to %s\n", target)
				return nil
			}

			encoded, err := config.Encode(cfg)
			if err != nil {
				return err
			}
			if ctx.configPath != "" {
				fmt.Fprintf(out, "# %s\n", ctx.configPath)
			}
			fmt.Fprint(out, encoded)
			return nil
		},
	}

	cmd.Flags().StringVar(&savePath, "save", "", "Write the effective configuration (file plus flag overrides) to PATH")
	return cmd
}
