package window

import (
	"time"

	"github.com/spf13/pflag"
)

var (
	_ pflag.Value = (*TimestampFlag)(nil)
	_ pflag.Value = (*OffsetFlag)(nil)
)

// TimestampFlag is a pflag.Value that parses with ParseTimestamp, so a
// malformed --from/--to is rejected while flags are parsed.
type TimestampFlag struct {
	Value *time.Time
	Now   func() time.Time
}

func (f *TimestampFlag) Set(s string) error {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	t, err := ParseTimestamp(s, now())
	if err != nil {
		return err
	}
	f.Value = &t
	return nil
}

func (f *TimestampFlag) String() string {
	if f == nil || f.Value == nil {
		return ""
	}
	return f.Value.Format(DisplayLayout)
}

func (f *TimestampFlag) Type() string { return "timestamp" }

// OffsetFlag is a pflag.Value that parses with ParseOffset.
type OffsetFlag struct {
	Value *time.Duration
	raw   string
}

func (f *OffsetFlag) Set(s string) error {
	d, err := ParseOffset(s)
	if err != nil {
		return err
	}
	f.Value = &d
	f.raw = s
	return nil
}

func (f *OffsetFlag) String() string {
	if f == nil {
		return ""
	}
	return f.raw
}

func (f *OffsetFlag) Type() string { return "offset" }
