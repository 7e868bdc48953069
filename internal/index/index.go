// Package index keeps the context of every error reported by a scan so it
// can be looked up later by its short identifier.
//
// On disk an index is a zstd-compressed JSON Lines stream: one header line
// followed by one Record per line. It is rewritten wholesale by each scan
// through a temp file and rename, so a crash never leaves a partial index.
package index

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// IDLength is the number of hex characters in an index identifier.
const IDLength = 10

const formatVersion = 1

// ErrInvalidID is returned for identifiers that are not IDLength hex characters.
var ErrInvalidID = errors.New("invalid index id")

// ID derives the identifier of the entry starting at offset in path.
// The same file and offset always produce the same identifier.
func ID(path string, offset int64) string {
	h := xxhash.New()
	_, _ = h.WriteString(path)
	_, _ = h.WriteString(":")
	_, _ = h.WriteString(strconv.FormatInt(offset, 10))
	return fmt.Sprintf("%016x", h.Sum64())[:IDLength]
}

// NormalizeID trims and lowercases id and checks its syntax.
func NormalizeID(id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if len(id) != IDLength {
		return "", fmt.Errorf("%w %q: expected %d hex characters", ErrInvalidID, id, IDLength)
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w %q: expected %d hex characters", ErrInvalidID, id, IDLength)
		}
	}
	return id, nil
}

// Record is the persisted context of one error.
type Record struct {
	ID       string   `json:"id"`
	File     string   `json:"file"`
	Messages []string `json:"messages"`
}

type header struct {
	Version int       `json:"version"`
	Created time.Time `json:"created"`
	Records int       `json:"records"`
}

// Builder accumulates records during a scan. It is safe for concurrent use.
type Builder struct {
	mu      sync.Mutex
	records []Record
	pos     map[string]int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{pos: make(map[string]int)}
}

// Add records the context of one error. A repeated id replaces the earlier record.
func (b *Builder) Add(id, file string, messages []string) {
	rec := Record{ID: id, File: file, Messages: append([]string(nil), messages...)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.pos[id]; ok {
		b.records[i] = rec
		return
	}
	b.pos[id] = len(b.records)
	b.records = append(b.records, rec)
}

// Len returns the number of records.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Records returns a copy of the records in insertion order.
func (b *Builder) Records() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Record(nil), b.records...)
}

// Write persists the builder to path, replacing any previous index atomically.
func (b *Builder) Write(path string) error {
	records := b.Records()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }() // no-op after a successful rename

	if err := encode(tmp, records, time.Now()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod index: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

func encode(w io.Writer, records []Record, created time.Time) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	buf := bufio.NewWriter(zw)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{Version: formatVersion, Created: created.UTC(), Records: len(records)}); err != nil {
		_ = zw.Close()
		return err
	}
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			_ = zw.Close()
			return err
		}
	}
	if err := buf.Flush(); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// Index is a loaded, read-only index.
type Index struct {
	path    string
	created time.Time
	records map[string]Record
}

// Load reads the index persisted at path.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd open: %w", err)
	}
	defer dec.Close()

	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 256*1024), 64*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read index %s: %w", path, err)
		}
		return nil, fmt.Errorf("read index %s: missing header", path)
	}
	var h header
	if err := json.Unmarshal(scanner.Bytes(), &h); err != nil {
		return nil, fmt.Errorf("read index %s: bad header: %w", path, err)
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("read index %s: unsupported version %d", path, h.Version)
	}

	ix := &Index{path: path, created: h.Created, records: make(map[string]Record, h.Records)}
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("read index %s: bad record: %w", path, err)
		}
		ix.records[rec.ID] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	return ix, nil
}

// Path returns the file the index was loaded from.
func (ix *Index) Path() string { return ix.path }

// Created returns when the index was written.
func (ix *Index) Created() time.Time { return ix.created }

// Len returns the number of records.
func (ix *Index) Len() int { return len(ix.records) }

// Search returns the record for id.
func (ix *Index) Search(id string) (Record, bool) {
	rec, ok := ix.records[id]
	return rec, ok
}
