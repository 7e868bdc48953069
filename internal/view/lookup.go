package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/ppiankov/logsift/internal/index"
)

// ErrNoIndex is returned when no index has been persisted yet.
var ErrNoIndex = errors.New("no index found")

// LookupRequest identifies an indexed error.
type LookupRequest struct {
	ID        string
	IndexPath string
}

// Lookup shows the context of the indexed error req.ID through sink. A
// well-formed id that is not in the index is reported on out and is not an
// error; the sink is not invoked in that case. The index is never modified.
func Lookup(ctx context.Context, req LookupRequest, sink Sink, out io.Writer) error {
	id, err := index.NormalizeID(req.ID)
	if err != nil {
		return err
	}

	ix, err := index.Load(req.IndexPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w at %s", ErrNoIndex, req.IndexPath)
	}
	if err != nil {
		return err
	}

	rec, ok := ix.Search(id)
	if !ok {
		_, _ = fmt.Fprintf(out, "Index entry '%s' not found.\n", req.ID)
		return nil
	}
	return sink.Show(ctx, Document(rec, req.IndexPath))
}

// Document renders an index record as shown to the operator.
func Document(rec index.Record, indexPath string) string {
	var b strings.Builder
	b.WriteString("log_file: ")
	b.WriteString(rec.File)
	b.WriteString("\nindex_file: ")
	b.WriteString(indexPath)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(rec.Messages, "\n"))
	return b.String()
}
