package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/logsift/internal/cli"
	"github.com/ppiankov/logsift/internal/soalog"
	"github.com/ppiankov/logsift/internal/view"
)

func newRangeCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "range <set>",
		Short: "Show files, size and covered time span per server",
		Long: `Lists every file of the log set grouped by server, with the total size and the
first and last entry timestamps. Useful to pick a --from/--to window before
running errors.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRange(cmd.OutOrStdout(), args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runRange(w io.Writer, setName string, jsonOutput bool) error {
	set, err := cfg.Set(setName)
	if err != nil {
		return cli.Config(err)
	}
	match, err := set.Matcher()
	if err != nil {
		return cli.Config(fmt.Errorf("set '%s': %w", setName, err))
	}

	loc := &soalog.Locator{Log: named("locate")}
	ranges, err := loc.Range(set.Dirs(), match)
	if err != nil {
		return err
	}

	if jsonOutput {
		return view.WriteJSON(w, ranges)
	}
	if len(ranges) == 0 {
		_, _ = fmt.Fprintln(w, "-- No files found.")
		return nil
	}
	return view.WriteRanges(w, ranges)
}
