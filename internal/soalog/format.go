// Package soalog reads Oracle Diagnostic Logging (ODL) files written by
// WebLogic and SOA Suite servers: it parses entry headers, locates the byte
// ranges of rotated files that overlap a time window, and streams error
// entries from a given offset.
package soalog

import (
	"strings"
	"time"
)

// Header is the parsed first line of an ODL entry:
//
//	[ts] [component] [type] [message id] [module] [key: value]... message
type Header struct {
	Time      time.Time
	Component string
	Type      string
	MessageID string
	Module    string
	Fields    map[string]string
	Message   string
}

// IsError reports whether the entry is an error-level message.
func (h Header) IsError() bool {
	return h.Type == "ERROR" || h.Type == "INCIDENT_ERROR"
}

// Field returns the first non-empty supplemental attribute among keys.
func (h Header) Field(keys ...string) string {
	for _, k := range keys {
		if v := h.Fields[k]; v != "" {
			return v
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
}

// ParseTime parses an ODL timestamp such as 2024-01-15T10:32:00.123+01:00.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseHeader parses line as an ODL entry header. It reports false for
// continuation lines (stack traces, wrapped payloads).
func ParseHeader(line string) (Header, bool) {
	if !strings.HasPrefix(line, "[") {
		return Header{}, false
	}

	groups, restAt := splitGroups(line)
	if len(groups) < 5 {
		return Header{}, false
	}
	ts, ok := ParseTime(groups[0].text)
	if !ok {
		return Header{}, false
	}

	h := Header{
		Time:      ts,
		Component: groups[1].text,
		Type:      normalizeType(groups[2].text),
		MessageID: groups[3].text,
		Module:    groups[4].text,
		Fields:    make(map[string]string, len(groups)-5),
	}

	for _, g := range groups[5:] {
		key, val, ok := strings.Cut(g.text, ": ")
		if !ok {
			// an unkeyed bracket group starts the message text
			restAt = g.start
			break
		}
		if _, seen := h.Fields[key]; !seen {
			h.Fields[key] = strings.TrimSpace(val)
		}
	}
	h.Message = strings.TrimSpace(line[restAt:])
	return h, true
}

type group struct {
	text  string
	start int
}

// splitGroups returns the leading bracket groups, honouring nested
// brackets, and the offset where the remaining text starts.
func splitGroups(line string) ([]group, int) {
	var groups []group
	i := 0
	for {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) || line[i] != '[' {
			break
		}
		depth := 0
		end := -1
		for j := i; j < len(line); j++ {
			switch line[j] {
			case '[':
				depth++
			case ']':
				depth--
			}
			if depth == 0 {
				end = j
				break
			}
		}
		if end < 0 {
			break // unterminated group belongs to the message
		}
		groups = append(groups, group{text: line[i+1 : end], start: i})
		i = end + 1
	}
	return groups, i
}

func normalizeType(s string) string {
	t, _, _ := strings.Cut(s, ":")
	return strings.ToUpper(strings.TrimSpace(t))
}
