package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ppiankov/logsift/internal/cli"
	"github.com/ppiankov/logsift/internal/cloud"
	"github.com/ppiankov/logsift/internal/config"
	"github.com/ppiankov/logsift/internal/index"
	"github.com/ppiankov/logsift/internal/logtypes"
	"github.com/ppiankov/logsift/internal/scan"
	"github.com/ppiankov/logsift/internal/soalog"
	"github.com/ppiankov/logsift/internal/view"
	"github.com/ppiankov/logsift/internal/window"
)

type errorsOptions struct {
	from   window.TimestampFlag
	to     window.TimestampFlag
	offset window.OffsetFlag

	rules       []string
	jobs        int
	jsonOutput  bool
	export      string
	format      string
	metricsFile string
	upload      string
}

func newErrorsCmd() *cobra.Command {
	var opts errorsOptions

	cmd := &cobra.Command{
		Use:   "errors <set>",
		Short: "Scan a log set for errors within a time window",
		Long: `Scans every file of the log set that overlaps the window, classifies ERROR and
INCIDENT_ERROR entries with the configured label rules and prints them sorted
by time. The context of each error is written to the index so it can be shown
later with "log soa index <id>".

At least one of --from and --to is required. --to defaults to now and
--offset sets --from relative to --to.

Timestamps: "YYYY-MM-DD HH:MM:SS", "HH:MM:SS" or "HH:MM" (today).
Offsets: <n>m, <n>h or <n>d.`,
		Example: `  logsift log soa errors osb --from 08:00 --to 09:30
  logsift log soa errors osb --to "2024-03-01 12:00:00" --offset 2h
  logsift log soa errors soa -o 1d --rules soa --rules common --export errors.parquet --format parquet`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("jobs") && cfg.Defaults.Jobs > 0 {
				opts.jobs = cfg.Defaults.Jobs
			}
			return runErrors(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}

	cmd.Flags().VarP(&opts.from, "from", "f", "window start timestamp")
	cmd.Flags().VarP(&opts.to, "to", "t", "window end timestamp (default now)")
	cmd.Flags().VarP(&opts.offset, "offset", "o", "window length before --to, e.g. 30m, 2h, 1d")
	cmd.Flags().StringArrayVar(&opts.rules, "rules", nil, "label rule sets to apply (repeatable, default the set name)")
	cmd.Flags().IntVar(&opts.jobs, "jobs", 1, "files scanned in parallel")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "output entries as JSON")
	cmd.Flags().StringVar(&opts.export, "export", "", "also write the entries to this file")
	cmd.Flags().StringVar(&opts.format, "format", "csv", "export format: csv, jsonl or parquet")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write scan metrics in Prometheus textfile format")
	cmd.Flags().StringVar(&opts.upload, "upload", "", "push the index to s3://bucket/prefix or gs://bucket/prefix (stored as <prefix>/logsift.index)")

	return cmd
}

func runErrors(ctx context.Context, w, errW io.Writer, setName string, opts errorsOptions) error {
	iv, err := window.Resolve(opts.from.Value, opts.to.Value, opts.offset.Value, time.Now())
	if err != nil {
		return cli.Usage(err)
	}

	var format scan.ExportFormat
	if opts.export != "" {
		if format, err = scan.ParseExportFormat(opts.format); err != nil {
			return cli.Usage(err)
		}
	}

	var dest cloud.Location
	if opts.upload != "" {
		if dest, err = cloud.ParseLocation(opts.upload, config.IndexFileName); err != nil {
			return cli.Usage(fmt.Errorf("invalid --upload: %w", err))
		}
	}

	var reg *prometheus.Registry
	var metrics *scan.Metrics
	if opts.metricsFile != "" {
		reg = prometheus.NewRegistry()
		metrics = scan.NewMetrics(reg)
	}

	// Keep stdout clean for JSON.
	status := w
	if opts.jsonOutput {
		status = errW
	}

	orch := &scan.Orchestrator{
		Config:   cfg,
		Locator:  &soalog.Locator{Log: named("locate")},
		Open:     scan.OpenODL,
		Out:      status,
		Progress: errW,
		Log:      named("scan"),
		Metrics:  metrics,
		Jobs:     opts.jobs,
	}
	res, err := orch.Run(ctx, scan.Request{
		Set:      setName,
		Window:   iv,
		RuleSets: opts.rules,
	})
	if err != nil {
		return mapScanError(err)
	}

	if reg != nil {
		if err := scan.WriteTextfile(opts.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if res.IndexPath != "" {
		if opts.export != "" {
			if err := scan.Export(res.Entries, opts.export, format); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			_, _ = fmt.Fprintf(status, "-- Exported %d entries to %s\n", len(res.Entries), opts.export)
		}
		if opts.upload != "" {
			if err := pushIndex(ctx, dest, res.IndexPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(status, "-- Index uploaded to %s\n", dest)
		}
	}

	return writeEntries(w, res.Entries, opts.jsonOutput)
}

func writeEntries(w io.Writer, entries []logtypes.ErrorEntry, jsonOutput bool) error {
	if jsonOutput {
		if entries == nil {
			entries = []logtypes.ErrorEntry{}
		}
		return view.WriteJSON(w, entries)
	}
	if len(entries) == 0 {
		return nil
	}
	if err := view.WriteErrors(w, entries); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "-- Errors: %d\n", len(entries))
	return err
}

func mapScanError(err error) error {
	var ce *scan.ConfigError
	if errors.As(err, &ce) {
		return cli.Config(err)
	}
	return err
}

func pushIndex(ctx context.Context, dest cloud.Location, path string) error {
	store, err := cloud.Open(ctx, dest)
	if err != nil {
		return cli.NewNetworkError(fmt.Sprintf("connect to %s: %v", dest.Scheme, err)).WithCause(err)
	}
	if err := index.Push(ctx, store, dest.Key, path); err != nil {
		return cli.NewNetworkError(fmt.Sprintf("upload index to %s: %v", dest, err)).WithCause(err)
	}
	return nil
}
