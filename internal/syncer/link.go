package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"notioncal/internal/models"
)

// Correlator resolves record ids to the calendar events that carry them as
// their link attribute. The link is the only persisted correlation.
type Correlator struct {
	calendar Calendar
	logger   *slog.Logger
}

// NewCorrelator creates a Correlator on top of cal.
func NewCorrelator(logger *slog.Logger, cal Calendar) *Correlator {
	return &Correlator{calendar: cal, logger: logger}
}

// FindLinkedEvent returns the event linked to recordID, or nil if there is
// none. If several events carry the link the first one wins.
func (c *Correlator) FindLinkedEvent(ctx context.Context, recordID string) (*models.Event, error) {
	events, err := c.calendar.ListEvents(ctx, models.EventQuery{Link: recordID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up event linked to %s: %w", recordID, err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	if len(events) > 1 {
		c.logger.Warn("Several events linked to one record, using the first.", "recordID", recordID, "matches", len(events), "eventID", events[0].ID)
	}
	return events[0], nil
}

// ReadLink returns the record id an event is linked to, or "".
func ReadLink(ev *models.Event) string {
	return ev.Link
}

// AttachLink returns a copy of ev linked to recordID.
func AttachLink(ev *models.Event, recordID string) *models.Event {
	out := ev.Clone()
	out.Link = recordID
	return out
}
