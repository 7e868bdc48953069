package view

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/ppiankov/logsift/internal/logtypes"
	"github.com/ppiankov/logsift/internal/soalog"
	"github.com/ppiankov/logsift/internal/window"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).PaddingRight(2)
	tableCellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

// newTable returns a borderless table with space-separated columns.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
}

// WriteErrors renders scan results as a table. Times are shown in the local
// zone so entries logged with different UTC offsets read in order.
func WriteErrors(w io.Writer, entries []logtypes.ErrorEntry) error {
	t := newTable("TIME", "SERVER", "FLOW_ID", "COMPOSITE", "VERSION", "LABEL", "INDEX")
	for _, e := range entries {
		t.Row(
			e.Time.Local().Format(window.DisplayLayout),
			e.Server,
			orDash(e.FlowID),
			orDash(e.Composite),
			orDash(e.Version),
			e.Label,
			e.IndexID,
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// WriteRanges renders per-server file statistics as a table.
func WriteRanges(w io.Writer, ranges []soalog.ServerRange) error {
	t := newTable("SERVER", "FILES", "SIZE", "MIN", "MAX")
	for _, r := range ranges {
		t.Row(
			r.Server,
			strconv.Itoa(r.Files),
			humanize.IBytes(uint64(r.Size)),
			formatTime(r.Min),
			formatTime(r.Max),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(window.DisplayLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
