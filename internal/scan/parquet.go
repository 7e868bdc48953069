package scan

import (
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/ppiankov/logsift/internal/logtypes"
)

const parquetBatchSize = 50000

// parquetEntry is the Parquet schema struct.
type parquetEntry struct {
	Time      int64  `parquet:"time,timestamp(nanosecond)"`
	Server    string `parquet:"server,dict"`
	FlowID    string `parquet:"flow_id"`
	Composite string `parquet:"composite,dict"`
	Version   string `parquet:"version,dict"`
	Label     string `parquet:"label,dict"`
	Index     string `parquet:"index"`
	File      string `parquet:"file,dict"`
}

type parquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[parquetEntry]
	batch  []parquetEntry
}

func newParquetWriter(path string) (*parquetWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := parquet.NewGenericWriter[parquetEntry](f,
		parquet.Compression(&zstd.Codec{}),
	)

	return &parquetWriter{
		file:   f,
		writer: w,
		batch:  make([]parquetEntry, 0, parquetBatchSize),
	}, nil
}

func (w *parquetWriter) Write(e logtypes.ErrorEntry) error {
	w.batch = append(w.batch, parquetEntry{
		Time:      e.Time.UnixNano(),
		Server:    e.Server,
		FlowID:    e.FlowID,
		Composite: e.Composite,
		Version:   e.Version,
		Label:     e.Label,
		Index:     e.IndexID,
		File:      e.File,
	})
	if len(w.batch) >= parquetBatchSize {
		return w.flush()
	}
	return nil
}

func (w *parquetWriter) flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	_, err := w.writer.Write(w.batch)
	w.batch = w.batch[:0]
	return err
}

func (w *parquetWriter) Close() error {
	if err := w.flush(); err != nil {
		_ = w.writer.Close()
		_ = w.file.Close()
		return err
	}
	if err := w.writer.Close(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}
