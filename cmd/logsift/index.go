package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/logsift/internal/cli"
	"github.com/ppiankov/logsift/internal/cloud"
	"github.com/ppiankov/logsift/internal/config"
	"github.com/ppiankov/logsift/internal/index"
	"github.com/ppiankov/logsift/internal/view"
)

type indexOptions struct {
	stdout bool
	tui    bool
	remote string
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index <id>",
		Short: "Show the context of an error found by the last errors run",
		Long: `Looks up an index id printed in the INDEX column of "log soa errors" and shows
the full entry with its source file. Output goes through the pager ($PAGER,
defaults.pager or less) unless --stdout or --tui is given.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.stdout, "stdout", "s", false, "print to stdout instead of the pager")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show in the built-in full-screen viewer")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "pull <prefix>/logsift.index from s3://bucket/prefix or gs://bucket/prefix first")

	return cmd
}

func runIndex(ctx context.Context, w, errW io.Writer, id string, opts indexOptions) error {
	if opts.stdout && opts.tui {
		return cli.NewUsageError("--stdout and --tui are mutually exclusive")
	}
	if _, err := index.NormalizeID(id); err != nil {
		return cli.Usage(err)
	}

	path := cfg.IndexPath()
	if opts.remote != "" {
		if err := pullIndex(ctx, opts.remote, path); err != nil {
			return err
		}
		named("index").Debugw("index pulled", "remote", opts.remote, "path", path)
	}

	err := view.Lookup(ctx, view.LookupRequest{ID: id, IndexPath: path}, newSink(w, errW, opts), w)
	switch {
	case errors.Is(err, index.ErrInvalidID):
		return cli.Usage(err)
	case errors.Is(err, view.ErrNoIndex):
		return cli.NewNotFoundError(fmt.Sprintf("%v (run \"log soa errors\" first)", err)).WithCause(err)
	}
	return err
}

func newSink(w, errW io.Writer, opts indexOptions) view.Sink {
	switch {
	case opts.stdout:
		return view.WriterSink{W: w}
	case opts.tui:
		return view.TUISink{}
	default:
		return view.PagerSink{
			Command: view.PagerCommand(cfg.Defaults.Pager),
			Stdout:  w,
			Stderr:  errW,
		}
	}
}

func pullIndex(ctx context.Context, remote, path string) error {
	src, err := cloud.ParseLocation(remote, config.IndexFileName)
	if err != nil {
		return cli.Usage(fmt.Errorf("invalid --remote: %w", err))
	}
	store, err := cloud.Open(ctx, src)
	if err != nil {
		return cli.NewNetworkError(fmt.Sprintf("connect to %s: %v", src.Scheme, err)).WithCause(err)
	}
	if err := index.Pull(ctx, store, src.Key, path); err != nil {
		if errors.Is(err, cloud.ErrNotFound) {
			return cli.NewNotFoundError(fmt.Sprintf("no index at %s", src)).WithCause(err)
		}
		return cli.NewNetworkError(fmt.Sprintf("download index from %s: %v", src, err)).WithCause(err)
	}
	return nil
}
