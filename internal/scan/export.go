package scan

import (
	"fmt"

	"github.com/ppiankov/logsift/internal/logtypes"
)

// ExportFormat identifies the output format of an export.
type ExportFormat string

const (
	FormatParquet ExportFormat = "parquet"
	FormatCSV     ExportFormat = "csv"
	FormatJSONL   ExportFormat = "jsonl"
)

// ParseExportFormat validates a --format value.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatParquet, FormatCSV, FormatJSONL:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %q (expected csv, jsonl or parquet)", s)
	}
}

// ExportWriter writes error entries to an output format.
type ExportWriter interface {
	Write(logtypes.ErrorEntry) error
	Close() error
}

// Export writes entries to dst in the given format.
func Export(entries []logtypes.ErrorEntry, dst string, format ExportFormat) error {
	writer, err := newExportWriter(dst, format)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	for _, e := range entries {
		if err := writer.Write(e); err != nil {
			_ = writer.Close()
			return fmt.Errorf("write %s: %w", dst, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

func newExportWriter(path string, format ExportFormat) (ExportWriter, error) {
	switch format {
	case FormatParquet:
		return newParquetWriter(path)
	case FormatCSV:
		return newCSVWriter(path)
	case FormatJSONL:
		return newJSONLWriter(path)
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
}
