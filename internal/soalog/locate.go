package soalog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/logsift/internal/window"
)

// FileSpan is the byte range of one log file relevant to a time window.
type FileSpan struct {
	Server string
	Path   string
	Start  int64
	End    int64
}

// Size returns the number of bytes in the span.
func (s FileSpan) Size() int64 { return s.End - s.Start }

// ServerSpans groups the spans found for one server, in discovery order.
type ServerSpans struct {
	Server string
	Spans  []FileSpan
}

// ServerFiles groups the files found for one server.
type ServerFiles struct {
	Server string
	Files  []string
}

// Locator maps directories and a time window to file spans.
type Locator struct {
	Log *zap.SugaredLogger
}

func (l *Locator) log() *zap.SugaredLogger {
	if l == nil || l.Log == nil {
		return zap.NewNop().Sugar()
	}
	return l.Log
}

// ServerName derives the server a log file belongs to from its directory:
// .../servers/<server>/logs/<file> and .../<server>/<file> both yield <server>.
func ServerName(path string) string {
	dir := filepath.Dir(path)
	name := filepath.Base(dir)
	if name == "logs" {
		name = filepath.Base(filepath.Dir(dir))
	}
	return name
}

// List walks dirs recursively and returns the regular files whose base name
// satisfies match, grouped by server in first-seen order.
func (l *Locator) List(dirs []string, match func(string) bool) ([]ServerFiles, error) {
	var out []ServerFiles
	pos := make(map[string]int)

	for _, root := range dirs {
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			l.log().Warnw("log directory does not exist", "dir", root)
			continue
		}

		var found []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() || !match(d.Name()) {
				return nil
			}
			found = append(found, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
		sort.Strings(found)

		for _, path := range found {
			server := ServerName(path)
			i, ok := pos[server]
			if !ok {
				i = len(out)
				pos[server] = i
				out = append(out, ServerFiles{Server: server})
			}
			out[i].Files = append(out[i].Files, path)
		}
	}
	return out, nil
}

// Locate returns, per server, the spans of files overlapping iv. Within a
// server, spans are ordered by the file's first timestamp. Start is the
// offset of the first entry at or after iv.Start; End is the offset of the
// first entry after iv.End, or the file size.
func (l *Locator) Locate(ctx context.Context, dirs []string, match func(string) bool, iv window.Interval) ([]ServerSpans, error) {
	servers, err := l.List(dirs, match)
	if err != nil {
		return nil, err
	}

	var out []ServerSpans
	for _, sf := range servers {
		type candidate struct {
			span  FileSpan
			first time.Time
		}
		var cands []candidate

		for _, path := range sf.Files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			span, first, ok, err := locateFile(path, iv)
			if err != nil {
				return nil, fmt.Errorf("locate %s: %w", path, err)
			}
			if !ok {
				l.log().Debugw("file outside window", "file", path)
				continue
			}
			span.Server = sf.Server
			l.log().Debugw("file in window", "file", path, "start", span.Start, "end", span.End)
			cands = append(cands, candidate{span: span, first: first})
		}

		if len(cands) == 0 {
			continue
		}
		sort.SliceStable(cands, func(i, j int) bool {
			if !cands[i].first.Equal(cands[j].first) {
				return cands[i].first.Before(cands[j].first)
			}
			return cands[i].span.Path < cands[j].span.Path
		})

		ss := ServerSpans{Server: sf.Server}
		for _, c := range cands {
			ss.Spans = append(ss.Spans, c.span)
		}
		out = append(out, ss)
	}
	return out, nil
}

func locateFile(path string, iv window.Interval) (FileSpan, time.Time, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileSpan{}, time.Time{}, false, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return FileSpan{}, time.Time{}, false, err
	}
	size := info.Size()

	first, last, ok, err := bounds(f, size)
	if err != nil || !ok {
		return FileSpan{}, time.Time{}, false, err
	}
	if first.After(iv.End) || (!iv.Open() && last.Before(iv.Start)) {
		return FileSpan{}, first, false, nil
	}

	span := FileSpan{Path: path, End: size}
	if !iv.Open() && first.Before(iv.Start) {
		span.Start, err = searchOffset(f, size, func(t time.Time) bool { return !t.Before(iv.Start) })
		if err != nil {
			return FileSpan{}, first, false, err
		}
	}
	if last.After(iv.End) {
		span.End, err = searchOffset(f, size, func(t time.Time) bool { return t.After(iv.End) })
		if err != nil {
			return FileSpan{}, first, false, err
		}
	}
	if span.End <= span.Start {
		return FileSpan{}, first, false, nil
	}
	return span, first, true, nil
}

// Bounds returns the timestamps of the first and last entry in the file.
// ok is false when the file holds no ODL entry.
func Bounds(path string) (first, last time.Time, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return bounds(f, info.Size())
}

func bounds(f *os.File, size int64) (time.Time, time.Time, bool, error) {
	_, first, ok, err := headerAtOrAfter(f, 0)
	if err != nil || !ok {
		return time.Time{}, time.Time{}, false, err
	}
	last, ok, err := lastHeader(f, size)
	if err != nil || !ok {
		return time.Time{}, time.Time{}, false, err
	}
	return first, last, true, nil
}

// searchOffset returns the offset of the first entry whose timestamp
// satisfies pred, or size if none does. Entries must be time-ordered.
func searchOffset(f *os.File, size int64, pred func(time.Time) bool) (int64, error) {
	lo, hi := int64(0), size
	for lo < hi {
		mid := lo + (hi-lo)/2
		_, t, ok, err := headerAtOrAfter(f, mid)
		if err != nil {
			return 0, err
		}
		if !ok || pred(t) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	pos, _, ok, err := headerAtOrAfter(f, lo)
	if err != nil {
		return 0, err
	}
	if !ok {
		return size, nil
	}
	return pos, nil
}

// headerAtOrAfter returns the offset and time of the first entry header
// starting at or after off.
func headerAtOrAfter(f *os.File, off int64) (int64, time.Time, bool, error) {
	start := off
	if off > 0 {
		start = off - 1 // so a line starting exactly at off is not skipped
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return 0, time.Time{}, false, err
	}
	br := bufio.NewReader(f)
	pos := start

	if off > 0 {
		skipped, err := br.ReadString('\n')
		pos += int64(len(skipped))
		if err == io.EOF {
			return 0, time.Time{}, false, nil
		}
		if err != nil {
			return 0, time.Time{}, false, err
		}
	}

	for {
		raw, err := br.ReadString('\n')
		if len(raw) > 0 {
			if h, ok := ParseHeader(strings.TrimRight(raw, "\r\n")); ok {
				return pos, h.Time, true, nil
			}
			pos += int64(len(raw))
		}
		if err == io.EOF {
			return 0, time.Time{}, false, nil
		}
		if err != nil {
			return 0, time.Time{}, false, err
		}
	}
}

const tailChunk = 64 * 1024

// lastHeader scans backwards from the end of the file for the last entry header.
func lastHeader(f *os.File, size int64) (time.Time, bool, error) {
	var tail []byte
	pos := size
	for pos > 0 {
		n := int64(tailChunk)
		if pos < n {
			n = pos
		}
		pos -= n
		chunk := make([]byte, n)
		if _, err := f.ReadAt(chunk, pos); err != nil && err != io.EOF {
			return time.Time{}, false, err
		}
		tail = append(chunk, tail...)

		lines := strings.Split(string(tail), "\n")
		// unless we reached the start, the first line may be partial
		from := 1
		if pos == 0 {
			from = 0
		}
		for i := len(lines) - 1; i >= from; i-- {
			if h, ok := ParseHeader(strings.TrimRight(lines[i], "\r")); ok {
				return h.Time, true, nil
			}
		}
		if pos > 0 && len(lines) > 0 {
			tail = []byte(lines[0])
		}
	}
	return time.Time{}, false, nil
}
