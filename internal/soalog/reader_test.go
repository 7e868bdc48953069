package soalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/logsift/internal/index"
	"github.com/ppiankov/logsift/internal/logtypes"
)

// writeLog writes lines to path and returns the byte offset of each line.
func writeLog(t *testing.T, path string, lines []string) []int64 {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	offsets := make([]int64, len(lines))
	for i, l := range lines {
		offsets[i] = int64(b.Len())
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return offsets
}

func ts(hhmm string) string {
	return "2024-01-15T" + hhmm + ":00.000+00:00"
}

func at(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return time.Date(2024, 1, 15, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

var sampleLines = []string{
	odl(ts("10:00"), "NOTIFICATION", "SOA-1", "[tid: 1]", "started"),
	odl(ts("10:01"), "ERROR", "OSB-382500", "[tid: 2] [FlowId: 7] [composite_name: Orders] [composite_version: 2.1]", "Fault"),
	"java.lang.IllegalStateException: boom",
	"\tat com.example.Orders.run(Orders.java:42)",
	odl(ts("10:02"), "INCIDENT_ERROR", "", "[tid: 3] [ecid: e-3]", "Incident"),
	odl(ts("10:05"), "ERROR", "BEA-1", "[tid: 4]", "late"),
}

type fakeLabeler map[string]string

func (f fakeLabeler) Label(text string) (string, bool) {
	for sub, label := range f {
		if strings.Contains(text, sub) {
			return label, true
		}
	}
	return "", false
}

type countingProgress struct{ n int64 }

func (p *countingProgress) Add(n int64) { p.n += n }

type recordingSink struct{ ids []string }

func (s *recordingSink) Add(id, _ string, _ []string) { s.ids = append(s.ids, id) }

func readAll(t *testing.T, path string, opts ReadOptions) []logtypes.ErrorEntry {
	t.Helper()
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	var got []logtypes.ErrorEntry
	err = r.ReadErrors(context.Background(), opts, func(e logtypes.ErrorEntry) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadErrors: %v", err)
	}
	return got
}

func TestReadErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soa_server1.log")
	offsets := writeLog(t, path, sampleLines)

	sink := &recordingSink{}
	progress := &countingProgress{}
	got := readAll(t, path, ReadOptions{
		Until:    at("10:03"),
		Labeler:  fakeLabeler{"IllegalStateException": "illegal-state"},
		Progress: progress,
		Index:    sink,
	})

	want := []logtypes.ErrorEntry{
		{
			Time:      at("10:01"),
			FlowID:    "7",
			Composite: "Orders",
			Version:   "2.1",
			Label:     "illegal-state",
			IndexID:   index.ID(path, offsets[1]),
			File:      path,
			Messages:  sampleLines[1:4],
		},
		{
			Time:     at("10:02"),
			FlowID:   "e-3",
			Label:    DefaultLabel,
			IndexID:  index.ID(path, offsets[4]),
			File:     path,
			Messages: sampleLines[4:5],
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{want[0].IndexID, want[1].IndexID}, sink.ids); diff != "" {
		t.Errorf("indexed ids mismatch (-want +got):\n%s", diff)
	}
	// reading stops at the 10:05 header, which is never consumed
	if progress.n != offsets[5] {
		t.Errorf("progress = %d, want %d", progress.n, offsets[5])
	}
}

func TestReadErrorsMessageIDLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soa_server1.log")
	writeLog(t, path, sampleLines)

	got := readAll(t, path, ReadOptions{})
	var labels []string
	for _, e := range got {
		labels = append(labels, e.Label)
	}
	if diff := cmp.Diff([]string{"OSB-382500", DefaultLabel, "BEA-1"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestReadErrorsFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soa_server1.log")
	offsets := writeLog(t, path, sampleLines)

	got := readAll(t, path, ReadOptions{Start: offsets[4]})
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].IndexID != index.ID(path, offsets[4]) || got[1].IndexID != index.ID(path, offsets[5]) {
		t.Errorf("unexpected ids %s, %s", got[0].IndexID, got[1].IndexID)
	}
}

func TestReadErrorsIDsAreStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soa_server1.log")
	writeLog(t, path, sampleLines)

	first := readAll(t, path, ReadOptions{})
	second := readAll(t, path, ReadOptions{})
	for i := range first {
		if first[i].IndexID != second[i].IndexID {
			t.Errorf("entry %d: id %s then %s", i, first[i].IndexID, second[i].IndexID)
		}
	}
}

func TestReadErrorsCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soa_server1.log")
	writeLog(t, path, sampleLines)

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	stop := errors.New("stop")
	calls := 0
	err = r.ReadErrors(context.Background(), ReadOptions{}, func(logtypes.ErrorEntry) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want stop", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestReadErrorsCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soa_server1.log")
	writeLog(t, path, sampleLines)

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = r.ReadErrors(ctx, ReadOptions{}, func(logtypes.ErrorEntry) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReadErrorsClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soa_server1.log")
	writeLog(t, path, sampleLines)

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if err := r.ReadErrors(context.Background(), ReadOptions{}, func(logtypes.ErrorEntry) error { return nil }); err == nil {
		t.Fatal("expected error on closed reader")
	}
}
