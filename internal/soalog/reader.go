package soalog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/logsift/internal/index"
	"github.com/ppiankov/logsift/internal/logtypes"
)

// DefaultLabel is assigned to errors that carry no message id and match no rule.
const DefaultLabel = "-"

// Labeler classifies the raw text of an error entry.
type Labeler interface {
	Label(text string) (string, bool)
}

// Progress receives the number of bytes consumed.
type Progress interface {
	Add(n int64)
}

// IndexSink records the context of every emitted error.
type IndexSink interface {
	Add(id, file string, messages []string)
}

// ReadOptions controls ReadErrors.
type ReadOptions struct {
	Start    int64     // byte offset to start reading from
	Until    time.Time // stop at the first entry after Until; zero reads to EOF
	Labeler  Labeler
	Progress Progress
	Index    IndexSink
}

// Reader streams entries from one ODL file.
type Reader struct {
	path string
	file *os.File
}

// Open opens path for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{path: path, file: f}, nil
}

// Path returns the file the reader was opened on.
func (r *Reader) Path() string { return r.path }

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

type pending struct {
	header Header
	offset int64
	lines  []string
}

// ReadErrors calls fn for every error entry at or after opts.Start whose
// timestamp is not after opts.Until. Reading stops at the first entry after
// Until, at EOF, when ctx is cancelled, or when fn returns an error.
func (r *Reader) ReadErrors(ctx context.Context, opts ReadOptions, fn func(logtypes.ErrorEntry) error) error {
	if r.file == nil {
		return errors.New("reader is closed")
	}
	if _, err := r.file.Seek(opts.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek %d: %w", opts.Start, err)
	}

	br := bufio.NewReaderSize(r.file, 256*1024)
	offset := opts.Start
	var cur *pending

	flush := func() error {
		if cur == nil || !cur.header.IsError() {
			return nil
		}
		e := r.entry(cur, opts)
		return fn(e)
	}

	for {
		raw, readErr := br.ReadString('\n')
		if len(raw) > 0 {
			lineOffset := offset
			offset += int64(len(raw))
			line := strings.TrimRight(raw, "\r\n")

			if h, ok := ParseHeader(line); ok {
				if err := flush(); err != nil {
					return err
				}
				cur = nil
				if err := ctx.Err(); err != nil {
					return err
				}
				if !opts.Until.IsZero() && h.Time.After(opts.Until) {
					return nil
				}
				cur = &pending{header: h, offset: lineOffset, lines: []string{line}}
			} else if cur != nil {
				cur.lines = append(cur.lines, line)
			}

			if opts.Progress != nil {
				opts.Progress.Add(int64(len(raw)))
			}
		}

		if readErr == io.EOF {
			return flush()
		}
		if readErr != nil {
			return readErr
		}
	}
}

func (r *Reader) entry(p *pending, opts ReadOptions) logtypes.ErrorEntry {
	h := p.header
	id := index.ID(r.path, p.offset)

	label := h.MessageID
	if label == "" {
		label = DefaultLabel
	}
	if opts.Labeler != nil {
		if l, ok := opts.Labeler.Label(strings.Join(p.lines, "\n")); ok {
			label = l
		}
	}

	if opts.Index != nil {
		opts.Index.Add(id, r.path, p.lines)
	}

	return logtypes.ErrorEntry{
		Time:      h.Time,
		FlowID:    h.Field("FlowId", "oracle.soa.tracking.FlowId", "flow_id", "ecid"),
		Composite: h.Field("composite_name", "oracle.soa.tracking.CompositeName"),
		Version:   h.Field("composite_version", "oracle.soa.tracking.CompositeVersion"),
		Label:     label,
		IndexID:   id,
		File:      r.path,
		Messages:  p.lines,
	}
}
