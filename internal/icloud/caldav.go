package icloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"notioncal/internal/models"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

const (
	iCloudCalDAVEndpoint = "https://caldav.icloud.com/"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "notioncal/1.0")
	return t.Transport.RoundTrip(req)
}

// Options configures a CalDAVClient.
type Options struct {
	Endpoint     string         // CalDAV root, iCloud if empty
	Username     string
	Password     string
	CalendarName string         // display name of the calendar to sync
	LinkKey      string         // link attribute key, stored as an X- property
	Location     *time.Location // zone for floating times, UTC if nil
}

// CalDAVClient is a calendar backend for any CalDAV server (iCloud by default).
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
	linkProp     string
	loc          *time.Location
}

// NewClient creates and initializes a new CalDAVClient, resolving the
// calendar by its display name.
func NewClient(ctx context.Context, logger *slog.Logger, opts Options) (*CalDAVClient, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = iCloudCalDAVEndpoint
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	transport := &customTransport{
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		linkProp:     LinkPropName(opts.LinkKey),
		loc:          opts.Location,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", opts.CalendarName)
	calendarPath, err := c.findCalendar(ctx, opts.CalendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", opts.CalendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// LinkPropName maps a link key such as "notion_id" to "X-NOTION-ID".
func LinkPropName(key string) string {
	return "X-" + strings.ToUpper(strings.ReplaceAll(key, "_", "-"))
}

// ListEvents returns the master VEVENT of every calendar object, optionally
// only those linked to q.Link. Filtering happens client-side because servers
// disagree on text-match support for X- properties.
func (c *CalDAVClient) ListEvents(ctx context.Context, q models.EventQuery) ([]*models.Event, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			Comps:    []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ical.CompEvent}},
		},
	}
	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var events []*models.Event
	for _, obj := range objects {
		master := masterEvent(obj.Data)
		if master == nil {
			continue
		}
		ev := c.toInternal(obj.Path, master)
		if q.Link != "" && ev.Link != q.Link {
			continue
		}
		if q.MaxResults > 0 && len(events) == q.MaxResults {
			c.logger.Warn("Calendar has more events than one page, the rest are ignored.", "path", c.calendarPath, "fetched", len(events))
			break
		}
		events = append(events, ev)
	}
	return events, nil
}

// CreateEvent stores event as a new calendar object named after a fresh UID.
func (c *CalDAVClient) CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	uid := GenerateUID()
	vevent := ical.NewComponent(ical.CompEvent)
	vevent.Props.SetText(ical.PropUID, uid)
	c.apply(vevent, event)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//notioncal//EN")
	cal.Children = append(cal.Children, vevent)

	objectPath := path.Join(c.calendarPath, uid+".ics")
	if _, err := c.caldavClient.PutCalendarObject(ctx, objectPath, cal); err != nil {
		return nil, fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	created := event.Clone()
	created.ID = objectPath
	return created, nil
}

// UpdateEvent rewrites the fields the sync owns on the master VEVENT at id.
// Alarms, attendees and recurrence overrides are kept.
func (c *CalDAVClient) UpdateEvent(ctx context.Context, id string, event *models.Event) (*models.Event, error) {
	obj, err := c.caldavClient.GetCalendarObject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}
	master := masterEvent(obj.Data)
	if master == nil {
		return nil, errors.New("calendar object has no VEVENT")
	}
	c.apply(master, event)

	if _, err := c.caldavClient.PutCalendarObject(ctx, id, obj.Data); err != nil {
		return nil, fmt.Errorf("failed to update event on CalDAV server: %w", err)
	}
	updated := event.Clone()
	updated.ID = id
	return updated, nil
}

// DeleteEvent removes the calendar object at id.
func (c *CalDAVClient) DeleteEvent(ctx context.Context, id string) error {
	if err := c.webdavClient.RemoveAll(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event on CalDAV server: %w", err)
	}
	return nil
}

// masterEvent returns the VEVENT without RECURRENCE-ID, or the first one.
func masterEvent(cal *ical.Calendar) *ical.Component {
	if cal == nil {
		return nil
	}
	var first *ical.Component
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		if first == nil {
			first = child
		}
		if child.Props.Get(ical.PropRecurrenceID) == nil {
			return child
		}
	}
	return first
}

// toInternal converts a VEVENT into the internal Event model.
func (c *CalDAVClient) toInternal(objectPath string, ve *ical.Component) *models.Event {
	event := &models.Event{
		ID:          objectPath,
		Title:       propText(ve, ical.PropSummary),
		Description: propText(ve, ical.PropDescription),
		Location:    propText(ve, ical.PropLocation),
		Link:        propText(ve, c.linkProp),
	}
	for _, rule := range ve.Props[ical.PropRecurrenceRule] {
		event.Recurrence = append(event.Recurrence, "RRULE:"+rule.Value)
	}

	start, err := c.readDate(ve, ical.PropDateTimeStart)
	if err != nil {
		c.logger.Warn("Ignoring unparseable event start.", "path", objectPath, "error", err)
	} else {
		event.Range.Start = start
	}
	end, err := c.readDate(ve, ical.PropDateTimeEnd)
	if err != nil {
		c.logger.Warn("Ignoring unparseable event end.", "path", objectPath, "error", err)
	} else if !end.IsZero() {
		event.Range.End = &end
	}
	return event
}

func (c *CalDAVClient) readDate(ve *ical.Component, name string) (models.DateValue, error) {
	prop := ve.Props.Get(name)
	if prop == nil {
		return models.DateValue{}, nil
	}
	t, err := prop.DateTime(c.loc)
	if err != nil {
		return models.DateValue{}, err
	}
	if prop.ValueType() == ical.ValueDate {
		return models.NewDay(t), nil
	}
	return models.NewInstant(t), nil
}

// apply writes the fields the sync owns onto ve.
func (c *CalDAVClient) apply(ve *ical.Component, event *models.Event) {
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetText(ical.PropSummary, event.Title)
	setOptionalText(ve, ical.PropDescription, event.Description)
	setOptionalText(ve, ical.PropLocation, event.Location)
	setOptionalText(ve, c.linkProp, event.Link)

	setDate(ve, ical.PropDateTimeStart, event.Range.Start)
	if event.Range.End != nil {
		setDate(ve, ical.PropDateTimeEnd, *event.Range.End)
	} else {
		delete(ve.Props, ical.PropDateTimeEnd)
	}
}

func setDate(ve *ical.Component, name string, v models.DateValue) {
	delete(ve.Props, name)
	switch {
	case v.Kind() == models.Day:
		ve.Props.SetDate(name, v.Time())
	case v.Valid():
		ve.Props.SetDateTime(name, v.Time().UTC())
	default:
		ve.Props.SetText(name, v.String())
	}
}

func setOptionalText(ve *ical.Component, name, value string) {
	if value == "" {
		delete(ve.Props, name)
		return
	}
	ve.Props.SetText(name, value)
}

func propText(ve *ical.Component, name string) string {
	prop := ve.Props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return text
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
