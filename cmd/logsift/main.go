package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/logsift/internal/cli"
	"github.com/ppiankov/logsift/internal/config"
)

var version = "dev"

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.SugaredLogger
)

func main() {
	if err := execute(); err != nil {
		cli.FormatError(os.Stderr, err, false)
		os.Exit(cli.ExitCode(err))
	}
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if logger != nil {
		_ = logger.Sync()
	}
	return err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "logsift",
		Short:         "Find and classify errors in rotated WebLogic/SOA diagnostic logs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.logsift/config.yaml, then ./.logsift.yaml)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging on stderr")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return cli.Usage(err)
	})

	root.AddCommand(newVersionCmd())
	root.AddCommand(newLogCmd())
	return root
}

// setup loads the configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cli.Config(fmt.Errorf("load config: %w", err))
	}

	// Flag overrides config
	if !cmd.Flags().Changed("verbose") && cfg.Defaults.Verbose {
		verbose = true
	}
	logger, err = newLogger(verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

// named returns a child of the process logger, or a no-op logger before setup.
func named(name string) *zap.SugaredLogger {
	if logger == nil {
		return zap.NewNop().Sugar()
	}
	return logger.Named(name)
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return cli.Usage(cobra.ExactArgs(n)(cmd, args))
	}
}
