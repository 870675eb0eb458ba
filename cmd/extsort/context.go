package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"extsort/internal/config"
	"extsort/internal/journal"
	"extsort/internal/lock"
	"extsort/internal/logging"
	"extsort/internal/orchestrator"
	"extsort/internal/output"
)

type globalFlags struct {
	configPath  string
	journalPath string
	verbose     bool
	logLevel    string
	logFormat   string
}

// runFlags are shared by the commands that move files.
type runFlags struct {
	dryRun bool
	noLock bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Report the moves without touching the filesystem")
	cmd.Flags().BoolVar(&f.noLock, "no-lock", false, "Do not take the exclusive lock on ROOT")
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the configuration once and applies flag overrides.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		c.configPath = path

		if c.flags.journalPath != "" {
			expanded, err := config.ExpandPath(c.flags.journalPath)
			if err != nil {
				c.configErr = fmt.Errorf("journal path: %w", err)
				return
			}
			cfg.Journal.Path = expanded
		}
		if c.flags.logLevel != "" {
			cfg.Logging.Level = strings.ToLower(c.flags.logLevel)
		}
		if c.flags.logFormat != "" {
			cfg.Logging.Format = strings.ToLower(c.flags.logFormat)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg, cmd.ErrOrStderr())
}

func (c *commandContext) output(cmd *cobra.Command) *output.Output {
	return output.New(output.Config{
		Verbose:   c.flags.verbose,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		IsTTY:     output.IsTerminal(cmd.OutOrStdout()),
	})
}

// options resolves ROOT and PREFIX from positional arguments, falling back
// to the configuration file.
func (c *commandContext) options(cmd *cobra.Command, args []string, rf *runFlags) (orchestrator.Options, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return orchestrator.Options{}, err
	}

	opts := orchestrator.Options{Root: cfg.Root, Prefix: cfg.Prefix, DryRun: cfg.DryRun}
	if len(args) > 0 {
		root, err := config.ExpandPath(args[0])
		if err != nil {
			return opts, fmt.Errorf("root: %w", err)
		}
		opts.Root = root
	}
	if len(args) > 1 {
		opts.Prefix = args[1]
	}
	if rf != nil && cmd.Flags().Changed("dry-run") {
		opts.DryRun = rf.dryRun
	}
	if opts.Root == "" {
		return opts, errors.New("root directory required: pass ROOT or set root in the configuration file")
	}
	return opts, nil
}

// openJournal opens the configured journal for writing, or returns nil when
// journaling is disabled or the run is a dry run.
func (c *commandContext) openJournal(dryRun bool) (*journal.Writer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if dryRun || !cfg.Journal.Enabled() {
		return nil, nil
	}
	return journal.Open(cfg.Journal.Path)
}

// acquireLock takes the root lock unless disabled by flag or configuration.
func (c *commandContext) acquireLock(root string, rf *runFlags) (*lock.Lock, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if rf.noLock || !cfg.Lock.Enabled {
		return nil, nil
	}
	return lock.Acquire("", root)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
