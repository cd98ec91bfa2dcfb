package syncer

import (
	"time"

	"notioncal/internal/models"
)

// defaultInstantLength is the length of a timed event synthesized from a
// record that only has a start.
const defaultInstantLength = time.Hour

// ToRecordRange converts a calendar range (exclusive day end) into a record
// range (inclusive day end). It returns false when the event has no start.
// The end is dropped when it collapses onto the start.
func ToRecordRange(ev models.Range) (models.Range, bool) {
	if ev.Start.IsZero() {
		return models.Range{}, false
	}
	out := models.Range{Start: ev.Start}
	if ev.End == nil || ev.End.IsZero() {
		return out, true
	}
	end := *ev.End
	if end.Kind() == models.Day {
		end = end.AddDays(-1)
	}
	if end.Kind() == ev.Start.Kind() && end.Equal(ev.Start) {
		return out, true
	}
	out.End = &end
	return out, true
}

// ToEventRange converts a record range into a calendar range, always
// setting an end. Day ends move one day forward to become exclusive; a
// missing end becomes start plus one day or one hour. An unparsed instant
// start without an end ends where it starts.
func ToEventRange(rec models.Range) models.Range {
	start := rec.Start
	var end models.DateValue
	switch {
	case rec.End != nil && !rec.End.IsZero() && rec.End.Kind() == start.Kind():
		end = *rec.End
		if end.Kind() == models.Day {
			end = end.AddDays(1)
		}
	case start.Kind() == models.Day:
		end = start.AddDays(1)
	default:
		// Add is a no-op on unparsed instants, so end == start there.
		end = start.Add(defaultInstantLength)
	}
	return models.Range{Start: start, End: &end}
}
