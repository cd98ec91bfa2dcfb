package google

import (
	"notioncal/internal/models"

	"google.golang.org/api/calendar/v3"
)

// toInternalEvents converts Google Calendar events to the internal Event model.
func (c *CalendarClient) toInternalEvents(googleEvents []*calendar.Event) []*models.Event {
	internalEvents := make([]*models.Event, 0, len(googleEvents))
	for _, item := range googleEvents {
		internalEvents = append(internalEvents, c.toInternalEvent(item))
	}
	return internalEvents
}

func (c *CalendarClient) toInternalEvent(item *calendar.Event) *models.Event {
	event := &models.Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Recurrence:  item.Recurrence,
	}

	if item.Start != nil {
		event.TimeZone = item.Start.TimeZone
		start, err := parseEventDateTime(item.Start)
		if err != nil {
			c.logger.Warn("Ignoring unparseable event start.", "eventID", item.Id, "error", err)
		} else {
			event.Range.Start = start
		}
	}
	if item.End != nil {
		end, err := parseEventDateTime(item.End)
		if err != nil {
			c.logger.Warn("Ignoring unparseable event end.", "eventID", item.Id, "error", err)
		} else if !end.IsZero() {
			event.Range.End = &end
		}
	}

	if item.ExtendedProperties != nil {
		event.Link = item.ExtendedProperties.Private[c.linkKey]
	}
	return event
}

// parseEventDateTime reads the all-day date or the timestamp of edt.
func parseEventDateTime(edt *calendar.EventDateTime) (models.DateValue, error) {
	switch {
	case edt.Date != "":
		return models.ParseDateValue(edt.Date)
	case edt.DateTime != "":
		return models.ParseDateValue(edt.DateTime)
	}
	return models.DateValue{}, nil
}

// toGoogleEvent converts an internal event into a full Google event body.
func (c *CalendarClient) toGoogleEvent(event *models.Event) *calendar.Event {
	g := &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Recurrence:  event.Recurrence,
		Start:       toEventDateTime(event.Range.Start, event.TimeZone),
	}
	if event.Range.End != nil {
		g.End = toEventDateTime(*event.Range.End, event.TimeZone)
	}
	if event.Link != "" {
		g.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: map[string]string{c.linkKey: event.Link},
		}
	}
	return g
}

func toEventDateTime(v models.DateValue, timeZone string) *calendar.EventDateTime {
	if v.Kind() == models.Day {
		return &calendar.EventDateTime{Date: v.String()}
	}
	return &calendar.EventDateTime{DateTime: v.String(), TimeZone: timeZone}
}
