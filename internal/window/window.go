// Package window resolves the --from, --to and --offset inputs into a
// concrete scan interval.
package window

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DisplayLayout is the layout used for full timestamps on input and output.
const DisplayLayout = "2006-01-02 15:04:05"

var (
	// ErrMissingBounds is returned when neither from nor to is given.
	ErrMissingBounds = errors.New("either --from or --to must be specified")
	// ErrInverted is returned when from is after to.
	ErrInverted = errors.New("--from must not be after --to")
	// ErrTimestamp is returned for timestamps in none of the accepted forms.
	ErrTimestamp = errors.New("use values in the format 'YYYY-MM-DD HH:MM:SS', 'HH:MM:SS' or 'HH:MM'")
	// ErrOffset is returned for malformed offsets.
	ErrOffset = errors.New("use values like '1h', '2d', '10m'")
)

// Interval is a scan window. A zero Start means no lower bound.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Open reports whether the interval has no lower bound.
func (iv Interval) Open() bool {
	return iv.Start.IsZero()
}

// Contains reports whether t lies within the interval, inclusive on both ends.
func (iv Interval) Contains(t time.Time) bool {
	if !iv.Open() && t.Before(iv.Start) {
		return false
	}
	return !t.After(iv.End)
}

func (iv Interval) String() string {
	start := "(beginning)"
	if !iv.Open() {
		start = iv.Start.Format(DisplayLayout)
	}
	return start + " - " + iv.End.Format(DisplayLayout)
}

// ParseTimestamp parses s in one of three forms, tried in order:
//   - "2006-01-02 15:04:05"
//   - "15:04:05", resolved against the calendar date of now
//   - "15:04", resolved against the calendar date of now
//
// All forms are interpreted in now's location.
func ParseTimestamp(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc := now.Location()

	// zero padding is optional in the full form: 2024-1-5 9:05:00
	for _, layout := range []string{DisplayLayout, "2006-1-2 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		return time.Date(now.Year(), now.Month(), now.Day(),
			t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, ErrTimestamp)
}

var offsetUnits = map[byte]time.Duration{
	'h': time.Hour,
	'd': 24 * time.Hour,
	'm': time.Minute,
}

// ParseOffset parses an integer immediately followed by a unit letter:
// h (hours), d (days) or m (minutes).
func ParseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid offset %q: %w", s, ErrOffset)
	}
	unit, ok := offsetUnits[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("invalid offset %q: %w", s, ErrOffset)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, ErrOffset)
	}
	if int64(n) > math.MaxInt64/int64(unit) || int64(n) < math.MinInt64/int64(unit) {
		return 0, fmt.Errorf("offset %q out of range: %w", s, ErrOffset)
	}
	return time.Duration(n) * unit, nil
}

// Resolve turns the optional inputs into an Interval:
//  1. both from and to absent is an error;
//  2. an absent to defaults to now;
//  3. an absent from with an offset becomes to - offset;
//  4. an absent from without an offset leaves the interval open.
func Resolve(from, to *time.Time, offset *time.Duration, now time.Time) (Interval, error) {
	if from == nil && to == nil {
		return Interval{}, ErrMissingBounds
	}

	var iv Interval
	if to != nil {
		iv.End = *to
	} else {
		iv.End = now
	}

	switch {
	case from != nil:
		iv.Start = *from
	case offset != nil:
		iv.Start = iv.End.Add(-*offset)
	}

	if !iv.Open() && iv.Start.After(iv.End) {
		return Interval{}, fmt.Errorf("%w: %s > %s", ErrInverted,
			iv.Start.Format(DisplayLayout), iv.End.Format(DisplayLayout))
	}
	return iv, nil
}
