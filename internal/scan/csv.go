package scan

import (
	"encoding/csv"
	"os"
	"time"

	"github.com/ppiankov/logsift/internal/logtypes"
)

var csvHeader = []string{"time", "server", "flow_id", "composite", "version", "label", "index", "file"}

type csvWriter struct {
	file *os.File
	w    *csv.Writer
}

func newCSVWriter(path string) (*csvWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &csvWriter{file: f, w: w}, nil
}

func (w *csvWriter) Write(e logtypes.ErrorEntry) error {
	return w.w.Write([]string{
		e.Time.Format(time.RFC3339Nano),
		e.Server,
		e.FlowID,
		e.Composite,
		e.Version,
		e.Label,
		e.IndexID,
		e.File,
	})
}

func (w *csvWriter) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}
