package scan

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
)

// Meter renders scan progress as a single carriage-return line. It is safe
// for concurrent use by the workers of a parallel scan.
type Meter struct {
	mu      sync.Mutex
	w       io.Writer
	desc    string
	total   int64
	done    int64
	lastPct int
	closed  bool
}

// NewMeter returns a meter for total bytes. A nil w only counts.
func NewMeter(w io.Writer, desc string, total int64) *Meter {
	return &Meter{w: w, desc: desc, total: total, lastPct: -1}
}

// Add records n more bytes consumed.
func (m *Meter) Add(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done += n
	if pct := m.percent(); pct != m.lastPct {
		m.lastPct = pct
		m.render()
	}
}

// Count returns the number of bytes recorded so far.
func (m *Meter) Count() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Done renders the final state and ends the line.
func (m *Meter) Done() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.render()
	if m.w != nil {
		_, _ = fmt.Fprintln(m.w)
	}
}

func (m *Meter) percent() int {
	if m.total <= 0 {
		return 100
	}
	pct := int(m.done * 100 / m.total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (m *Meter) render() {
	if m.w == nil {
		return
	}
	_, _ = fmt.Fprintf(m.w, "\r%s: %3d%% %s/%s", m.desc, m.percent(),
		humanize.IBytes(uint64(m.done)), humanize.IBytes(uint64(m.total)))
}
