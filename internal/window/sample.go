package window

import (
	"math"
	"strings"
	"time"
)

// localLayouts are accepted when the source omits a UTC offset.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// Sample is a single wind observation. Values are immutable once built by NewSample.
type Sample struct {
	CapturedAt      time.Time
	SpeedKt         float64
	SourceTimestamp string
}

// Valid reports whether the sample was built from a usable reading.
func (s Sample) Valid() bool {
	return !s.CapturedAt.IsZero() && s.SourceTimestamp != "" &&
		!math.IsNaN(s.SpeedKt) && !math.IsInf(s.SpeedKt, 0)
}

// NewSample builds a sample from the upstream observation timestamp and speed.
// It returns false when the speed is missing or the timestamp cannot be parsed.
func NewSample(sourceTimestamp string, speedKt *float64, loc *time.Location) (Sample, bool) {
	if speedKt == nil {
		return Sample{}, false
	}
	at, ok := ParseTimestamp(sourceTimestamp, loc)
	if !ok {
		return Sample{}, false
	}
	s := Sample{CapturedAt: at, SpeedKt: *speedKt, SourceTimestamp: sourceTimestamp}
	if !s.Valid() {
		return Sample{}, false
	}
	return s, true
}

// ParseTimestamp parses RFC 3339 first and falls back to offset-less layouts
// interpreted in loc (UTC when loc is nil).
func ParseTimestamp(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
