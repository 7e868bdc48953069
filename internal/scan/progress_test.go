package scan

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestMeterRendersPercentChanges(t *testing.T) {
	var buf bytes.Buffer
	m := NewMeter(&buf, "-- Reading entries from 1 files", 2048)

	m.Add(512)
	m.Add(1) // same percentage, no redraw
	m.Add(1535)
	m.Done()
	m.Done() // idempotent

	out := buf.String()
	frames := strings.Split(strings.TrimSuffix(out, "\n"), "\r")[1:]
	if len(frames) != 3 {
		t.Fatalf("frames = %q", frames)
	}
	if !strings.Contains(frames[0], " 25% 512 B/2.0 KiB") {
		t.Errorf("first frame = %q", frames[0])
	}
	if !strings.Contains(frames[1], "100% 2.0 KiB/2.0 KiB") {
		t.Errorf("second frame = %q", frames[1])
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected exactly one newline, got %q", out)
	}
}

func TestMeterNilWriterCounts(t *testing.T) {
	m := NewMeter(nil, "x", 10)
	m.Add(4)
	m.Add(6)
	m.Done()
	if m.Count() != 10 {
		t.Errorf("Count = %d, want 10", m.Count())
	}
}

func TestMeterConcurrentAdd(t *testing.T) {
	m := NewMeter(nil, "x", 1<<20)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Add(1)
			}
		}()
	}
	wg.Wait()
	if m.Count() != 16000 {
		t.Errorf("Count = %d, want 16000", m.Count())
	}
}

func TestMeterZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	m := NewMeter(&buf, "x", 0)
	m.Done()
	if !strings.Contains(buf.String(), "100%") {
		t.Errorf("output = %q", buf.String())
	}
}
