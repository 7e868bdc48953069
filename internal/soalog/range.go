package soalog

import (
	"fmt"
	"os"
	"sort"
	"time"
)

// ServerRange summarizes the files of one server.
type ServerRange struct {
	Server string    `json:"server"`
	Files  int       `json:"files"`
	Size   int64     `json:"size"`
	Min    time.Time `json:"min"`
	Max    time.Time `json:"max"`
}

// Range returns per-server file counts, total size and the earliest and
// latest entry timestamps, sorted by server name.
func (l *Locator) Range(dirs []string, match func(string) bool) ([]ServerRange, error) {
	servers, err := l.List(dirs, match)
	if err != nil {
		return nil, err
	}

	out := make([]ServerRange, 0, len(servers))
	for _, sf := range servers {
		sr := ServerRange{Server: sf.Server, Files: len(sf.Files)}
		for _, path := range sf.Files {
			info, err := os.Stat(path)
			if err != nil {
				return nil, err
			}
			sr.Size += info.Size()

			first, last, ok, err := Bounds(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			if !ok {
				l.log().Debugw("no entries in file", "file", path)
				continue
			}
			if sr.Min.IsZero() || first.Before(sr.Min) {
				sr.Min = first
			}
			if last.After(sr.Max) {
				sr.Max = last
			}
		}
		out = append(out, sr)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Server < out[j].Server })
	return out, nil
}
