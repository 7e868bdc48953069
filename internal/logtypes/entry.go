package logtypes

import (
	"sort"
	"time"
)

// ErrorEntry is one classified error occurrence found in a log file.
type ErrorEntry struct {
	Time      time.Time `json:"time"`
	Server    string    `json:"server"`
	FlowID    string    `json:"flow_id"`
	Composite string    `json:"composite"`
	Version   string    `json:"version"`
	Label     string    `json:"label"`
	IndexID   string    `json:"index"`
	File      string    `json:"file"`
	Messages  []string  `json:"messages,omitempty"`
}

// SortByTime orders entries by Time ascending. Entries with equal times keep their relative order.
func SortByTime(entries []ErrorEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
}
