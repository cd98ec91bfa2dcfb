package models

import (
	"errors"
	"fmt"
	"time"
)

// DayLayout is the wire format of a whole-day date on both sides.
const DayLayout = "2006-01-02"

// Granularity tells whether a DateValue is a whole day or a precise instant.
type Granularity int

const (
	Day Granularity = iota
	Instant
)

func (g Granularity) String() string {
	if g == Day {
		return "day"
	}
	return "instant"
}

// DateValue is a date tagged with its granularity at parse time.
// Day values are stored as midnight UTC. An instant that could not be parsed
// keeps its raw text and reports Valid() == false.
type DateValue struct {
	kind  Granularity
	t     time.Time
	raw   string
	valid bool
}

// ErrEmptyDate is returned when parsing an empty date string.
var ErrEmptyDate = errors.New("empty date")

// NewDay returns a day value for the calendar date of t.
func NewDay(t time.Time) DateValue {
	y, m, d := t.Date()
	return DateValue{kind: Day, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), valid: true}
}

// NewInstant returns an instant value for t.
func NewInstant(t time.Time) DateValue {
	return DateValue{kind: Instant, t: t, valid: true}
}

// ParseDateValue parses a day ("2006-01-02") or an RFC 3339 timestamp.
// Any other non-empty string is kept as an unparsed instant, except strings
// shaped like a day that fail to parse, which are an error.
func ParseDateValue(s string) (DateValue, error) {
	if s == "" {
		return DateValue{}, ErrEmptyDate
	}
	if len(s) == len(DayLayout) {
		t, err := time.Parse(DayLayout, s)
		if err != nil {
			return DateValue{}, fmt.Errorf("invalid day %q: %w", s, err)
		}
		return DateValue{kind: Day, t: t, valid: true}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return DateValue{kind: Instant, raw: s}, nil
	}
	return DateValue{kind: Instant, t: t, raw: s, valid: true}, nil
}

func (v DateValue) Kind() Granularity { return v.kind }

// Valid reports whether the value carries a usable time.
func (v DateValue) Valid() bool { return v.valid }

// IsZero reports whether v was never set.
func (v DateValue) IsZero() bool { return !v.valid && v.raw == "" }

// Time returns the parsed time. It is the zero time for unparsed instants.
func (v DateValue) Time() time.Time { return v.t }

// AddDays shifts a day value by n days. Other values are returned unchanged.
func (v DateValue) AddDays(n int) DateValue {
	if v.kind != Day || !v.valid {
		return v
	}
	return DateValue{kind: Day, t: v.t.AddDate(0, 0, n), valid: true}
}

// Add shifts a valid instant by d. Other values are returned unchanged.
func (v DateValue) Add(d time.Duration) DateValue {
	if v.kind != Instant || !v.valid {
		return v
	}
	return DateValue{kind: Instant, t: v.t.Add(d), valid: true}
}

// String formats the value the way both backends expect it. Parsed instants
// keep their original text so offsets survive a round trip.
func (v DateValue) String() string {
	switch {
	case v.kind == Day && v.valid:
		return v.t.Format(DayLayout)
	case v.raw != "":
		return v.raw
	case v.valid:
		return v.t.Format(time.RFC3339)
	}
	return ""
}

// Equal compares granularity and moment. Instants in different offsets that
// denote the same moment are equal.
func (v DateValue) Equal(o DateValue) bool {
	if v.kind != o.kind || v.valid != o.valid {
		return false
	}
	if !v.valid {
		return v.raw == o.raw
	}
	return v.t.Equal(o.t)
}
