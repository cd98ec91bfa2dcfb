package google

import (
	"context"
	"fmt"
	"log/slog"

	"notioncal/internal/models"

	"google.golang.org/api/calendar/v3"
)

// CalendarClient provides a client for interacting with one Google Calendar.
type CalendarClient struct {
	service    *calendar.Service
	logger     *slog.Logger
	calendarID string
	linkKey    string
}

// NewClient creates a new Google Calendar client for calendarID. The link
// attribute is stored as the private extended property linkKey.
func NewClient(ctx context.Context, logger *slog.Logger, creds Credentials, calendarID, linkKey string) (*CalendarClient, error) {
	opt, err := clientOption(ctx, creds)
	if err != nil {
		return nil, err
	}

	service, err := calendar.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &CalendarClient{service: service, logger: logger, calendarID: calendarID, linkKey: linkKey}, nil
}

// ListEvents lists events of the calendar. With q.Link set only events whose
// link property equals it are returned. Only the first page is read.
func (c *CalendarClient) ListEvents(ctx context.Context, q models.EventQuery) ([]*models.Event, error) {
	call := c.service.Events.List(c.calendarID).
		Context(ctx).
		ShowDeleted(false)
	if q.Link != "" {
		call = call.PrivateExtendedProperty(c.linkKey + "=" + q.Link)
	}
	if q.MaxResults > 0 {
		call = call.MaxResults(int64(q.MaxResults))
	}

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}
	if events.NextPageToken != "" {
		c.logger.Warn("Calendar has more events than one page, the rest are ignored.", "calendarID", c.calendarID, "fetched", len(events.Items))
	}

	c.logger.Debug("Fetched events from Google Calendar", "count", len(events.Items), "calendarID", c.calendarID, "link", q.Link)
	return c.toInternalEvents(events.Items), nil
}

// CreateEvent inserts event into the calendar.
func (c *CalendarClient) CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	created, err := c.service.Events.Insert(c.calendarID, c.toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	return c.toInternalEvent(created), nil
}

// UpdateEvent replaces the event with id by event.
func (c *CalendarClient) UpdateEvent(ctx context.Context, id string, event *models.Event) (*models.Event, error) {
	updated, err := c.service.Events.Update(c.calendarID, id, c.toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return c.toInternalEvent(updated), nil
}

// DeleteEvent removes the event with id.
func (c *CalendarClient) DeleteEvent(ctx context.Context, id string) error {
	if err := c.service.Events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// CalendarInfo describes a calendar of the authenticated account.
type CalendarInfo struct {
	ID      string
	Summary string
	Primary bool
}

// DiscoverGoogleCalendars finds all calendars associated with the authenticated account.
func (c *CalendarClient) DiscoverGoogleCalendars(ctx context.Context) ([]CalendarInfo, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var calendars []CalendarInfo
	for _, item := range list.Items {
		calendars = append(calendars, CalendarInfo{ID: item.Id, Summary: item.Summary, Primary: item.Primary})
	}
	return calendars, nil
}
