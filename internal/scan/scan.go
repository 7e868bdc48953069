// Package scan drives an error scan over the files of a log set: it locates
// the byte spans overlapping a time window, reads and classifies the errors
// in them, persists the lookup index and returns the entries in time order.
package scan

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/logsift/internal/config"
	"github.com/ppiankov/logsift/internal/index"
	"github.com/ppiankov/logsift/internal/label"
	"github.com/ppiankov/logsift/internal/logtypes"
	"github.com/ppiankov/logsift/internal/soalog"
	"github.com/ppiankov/logsift/internal/window"
)

// Locator finds the file spans of a log set that overlap a window.
type Locator interface {
	Locate(ctx context.Context, dirs []string, match func(string) bool, iv window.Interval) ([]soalog.ServerSpans, error)
}

// Reader streams error entries from one file.
type Reader interface {
	ReadErrors(ctx context.Context, opts soalog.ReadOptions, fn func(logtypes.ErrorEntry) error) error
	Close() error
}

// Opener opens a Reader on path.
type Opener func(path string) (Reader, error)

// OpenODL opens path with the ODL reader.
func OpenODL(path string) (Reader, error) {
	return soalog.Open(path)
}

// ConfigError marks failures caused by the configuration rather than by I/O.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// Request describes one scan.
type Request struct {
	Set      string
	Window   window.Interval
	RuleSets []string // defaults to [Set]
}

// Result is the outcome of a scan.
type Result struct {
	Entries   []logtypes.ErrorEntry
	Files     int
	Bytes     int64
	Elapsed   time.Duration
	IndexPath string // empty when nothing was scanned
}

// Orchestrator runs scans. Zero-valued optional fields fall back to defaults.
type Orchestrator struct {
	Config  *config.Config
	Locator Locator
	Open    Opener

	// WriteIndex persists the index built by a run. Defaults to Builder.Write.
	WriteIndex func(b *index.Builder, path string) error

	Out      io.Writer // status lines
	Progress io.Writer // progress meter; nil disables it
	Log      *zap.SugaredLogger
	Metrics  *Metrics
	Jobs     int
}

func (o *Orchestrator) log() *zap.SugaredLogger {
	if o.Log == nil {
		return zap.NewNop().Sugar()
	}
	return o.Log
}

func (o *Orchestrator) printf(format string, args ...any) {
	if o.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(o.Out, format, args...)
}

// Run executes req. A read failure or cancellation aborts the run before
// the index is persisted, leaving any previous index in place.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	set, err := o.Config.Set(req.Set)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	match, err := set.Matcher()
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("set '%s': %w", req.Set, err)}
	}
	ruleSets := req.RuleSets
	if len(ruleSets) == 0 {
		ruleSets = []string{req.Set}
	}
	classifier, err := label.Compile(o.Config.Parsers, ruleSets)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	o.printf("-- Time range: %s\n", req.Window)
	o.printf("-- Searching files in the set '%s'\n", req.Set)

	servers, err := o.Locator.Locate(ctx, set.Dirs(), match, req.Window)
	if err != nil {
		return nil, fmt.Errorf("locate files: %w", err)
	}
	var spans []soalog.FileSpan
	var total int64
	for _, ss := range servers {
		for _, s := range ss.Spans {
			spans = append(spans, s)
			total += s.Size()
		}
	}
	if len(spans) == 0 {
		o.printf("-- No files found.\n")
		return &Result{Elapsed: time.Since(started)}, nil
	}

	o.log().Debugw("scan started",
		"set", req.Set, "servers", len(servers), "files", len(spans),
		"bytes", total, "rules", classifier.Len(), "jobs", o.Jobs)

	meter := NewMeter(o.Progress, fmt.Sprintf("-- Reading entries from %d files", len(spans)), total)
	builder := index.NewBuilder()
	opts := soalog.ReadOptions{
		Until:    req.Window.End,
		Labeler:  classifier,
		Progress: meter,
		Index:    builder,
	}

	var slots [][]logtypes.ErrorEntry
	if o.Jobs > 1 && len(spans) > 1 {
		slots, err = o.scanParallel(ctx, spans, opts)
	} else {
		slots, err = o.scanSequential(ctx, spans, opts)
	}
	meter.Done()
	if err != nil {
		return nil, err
	}

	indexPath := o.Config.IndexPath()
	write := o.WriteIndex
	if write == nil {
		write = (*index.Builder).Write
	}
	if err := write(builder, indexPath); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}
	o.log().Debugw("index written", "path", indexPath, "records", builder.Len())

	var entries []logtypes.ErrorEntry
	for _, slot := range slots {
		entries = append(entries, slot...)
	}
	logtypes.SortByTime(entries)

	res := &Result{
		Entries:   entries,
		Files:     len(spans),
		Bytes:     total,
		Elapsed:   time.Since(started),
		IndexPath: indexPath,
	}
	o.Metrics.Observe(res)

	if len(entries) == 0 {
		o.printf("-- No errors found.\n")
	} else {
		o.printf("-- Completed in %.2fs\n", res.Elapsed.Seconds())
	}
	return res, nil
}

func (o *Orchestrator) scanSequential(ctx context.Context, spans []soalog.FileSpan, opts soalog.ReadOptions) ([][]logtypes.ErrorEntry, error) {
	slots := make([][]logtypes.ErrorEntry, len(spans))
	for i, span := range spans {
		entries, err := o.scanSpan(ctx, span, opts)
		if err != nil {
			return nil, err
		}
		slots[i] = entries
	}
	return slots, nil
}

// scanParallel reads spans with a bounded worker pool. Each span writes to
// its own slot, so the concatenation order matches the sequential scan.
func (o *Orchestrator) scanParallel(ctx context.Context, spans []soalog.FileSpan, opts soalog.ReadOptions) ([][]logtypes.ErrorEntry, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := o.Jobs
	if workers > len(spans) {
		workers = len(spans)
	}

	idxCh := make(chan int, len(spans))
	for i := range spans {
		idxCh <- i
	}
	close(idxCh)

	slots := make([][]logtypes.ErrorEntry, len(spans))
	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		scanErr error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				entries, err := o.scanSpan(ctx, spans[i], opts)
				if err != nil {
					errOnce.Do(func() {
						scanErr = err
						cancel()
					})
					return
				}
				slots[i] = entries
			}
		}()
	}
	wg.Wait()

	if scanErr != nil {
		return nil, scanErr
	}
	return slots, nil
}

func (o *Orchestrator) scanSpan(ctx context.Context, span soalog.FileSpan, opts soalog.ReadOptions) ([]logtypes.ErrorEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	open := o.Open
	if open == nil {
		open = OpenODL
	}
	r, err := open(span.Path)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", span.Path, err)
	}
	defer func() { _ = r.Close() }()

	opts.Start = span.Start
	var entries []logtypes.ErrorEntry
	err = r.ReadErrors(ctx, opts, func(e logtypes.ErrorEntry) error {
		e.File = span.Path
		e.Server = span.Server
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", span.Path, err)
	}
	o.log().Debugw("file scanned", "server", span.Server, "file", span.Path, "errors", len(entries))
	return entries, nil
}
