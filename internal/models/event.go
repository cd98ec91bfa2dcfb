package models

// Range is a start date with an optional end. On the calendar side End is
// exclusive for days; on the record side it is inclusive.
type Range struct {
	Start DateValue
	End   *DateValue
}

// Equal reports whether both ranges have equal starts and equal ends.
func (r Range) Equal(o Range) bool {
	if !r.Start.Equal(o.Start) {
		return false
	}
	if r.End == nil || o.End == nil {
		return r.End == nil && o.End == nil
	}
	return r.End.Equal(*o.End)
}

// Event represents a calendar event, independent of the calendar provider.
type Event struct {
	ID          string   // Provider identifier (Google event id, CalDAV object path)
	Title       string   // Summary of the event
	Description string   // Detailed description
	Location    string   // Free-form location, carried through updates
	TimeZone    string   // IANA zone of timed events, if the provider reports one
	Recurrence  []string // RRULE/EXDATE lines of a recurring master event
	Range       Range    // Start and exclusive end
	Link        string   // Identity of the linked record, empty for calendar-native events
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	c := *e
	if e.Recurrence != nil {
		c.Recurrence = append([]string(nil), e.Recurrence...)
	}
	if e.Range.End != nil {
		end := *e.Range.End
		c.Range.End = &end
	}
	return &c
}

// EventQuery filters a calendar listing.
type EventQuery struct {
	Link       string // only events linked to this record id; empty lists everything
	MaxResults int    // page-size ceiling
}
