package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"notioncal/internal/models"
)

func mustDate(s string) models.DateValue {
	v, err := models.ParseDateValue(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCalendar struct {
	events     []*models.Event
	nextID     int
	listErr    error
	createErr  error
	updateErrs map[string]error
	deleteErrs map[string]error

	lookups, lists, creates, updates, deletes int
	updated                                   []*models.Event
}

func newFakeCalendar(events ...*models.Event) *fakeCalendar {
	return &fakeCalendar{events: events}
}

func (c *fakeCalendar) ListEvents(_ context.Context, q models.EventQuery) ([]*models.Event, error) {
	var out []*models.Event
	if q.Link != "" {
		c.lookups++
		for _, ev := range c.events {
			if ev.Link == q.Link {
				out = append(out, ev.Clone())
			}
		}
		return out, nil
	}
	c.lists++
	if c.listErr != nil {
		return nil, c.listErr
	}
	for _, ev := range c.events {
		if q.MaxResults > 0 && len(out) == q.MaxResults {
			break
		}
		out = append(out, ev.Clone())
	}
	return out, nil
}

func (c *fakeCalendar) CreateEvent(_ context.Context, ev *models.Event) (*models.Event, error) {
	c.creates++
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.nextID++
	created := ev.Clone()
	created.ID = fmt.Sprintf("ev%d", c.nextID)
	c.events = append(c.events, created)
	return created.Clone(), nil
}

func (c *fakeCalendar) UpdateEvent(_ context.Context, id string, ev *models.Event) (*models.Event, error) {
	c.updates++
	if err := c.updateErrs[id]; err != nil {
		return nil, err
	}
	for i, existing := range c.events {
		if existing.ID == id {
			updated := ev.Clone()
			updated.ID = id
			c.events[i] = updated
			c.updated = append(c.updated, updated.Clone())
			return updated.Clone(), nil
		}
	}
	return nil, fmt.Errorf("event %s not found", id)
}

func (c *fakeCalendar) DeleteEvent(_ context.Context, id string) error {
	c.deletes++
	if err := c.deleteErrs[id]; err != nil {
		return err
	}
	for i, existing := range c.events {
		if existing.ID == id {
			c.events = append(c.events[:i], c.events[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("event %s not found", id)
}

func (c *fakeCalendar) byID(id string) *models.Event {
	for _, ev := range c.events {
		if ev.ID == id {
			return ev
		}
	}
	return nil
}

type recordUpdate struct {
	id    string
	title string
	rng   *models.Range
}

type fakeStore struct {
	records   []*models.Record
	nextID    int
	listErr   error
	createErr error

	creates  int
	updates  []recordUpdate
	archived []string
}

func newFakeStore(records ...*models.Record) *fakeStore {
	return &fakeStore{records: records}
}

func (s *fakeStore) ListRecords(context.Context) ([]*models.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]*models.Record(nil), s.records...), nil
}

func (s *fakeStore) CreateRecord(_ context.Context, title string, rng models.Range) (*models.Record, error) {
	s.creates++
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	id := fmt.Sprintf("new%d", s.nextID)
	rec := record(id, title, rng)
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *fakeStore) UpdateRecord(_ context.Context, id, title string, rng *models.Range) error {
	s.updates = append(s.updates, recordUpdate{id: id, title: title, rng: rng})
	for _, rec := range s.records {
		if rec.ID == id {
			rec.Properties["Name"] = models.Property{Name: "Name", Type: models.PropertyTitle, Text: title}
			if rng != nil {
				rec.Range = rng
			}
			return nil
		}
	}
	return fmt.Errorf("record %s not found", id)
}

func (s *fakeStore) ArchiveRecord(_ context.Context, id string) error {
	s.archived = append(s.archived, id)
	return nil
}

func record(id, title string, rng models.Range) *models.Record {
	return &models.Record{
		ID:  id,
		URL: "https://www.notion.so/" + id,
		Properties: map[string]models.Property{
			"Name": {Name: "Name", Type: models.PropertyTitle, Text: title},
		},
		Range: &rng,
	}
}

func undatedRecord(id, title string) *models.Record {
	rec := record(id, title, models.Range{})
	rec.Range = nil
	return rec
}

func dayRange(start string, end ...string) models.Range {
	r := models.Range{Start: mustDate(start)}
	if len(end) > 0 {
		e := mustDate(end[0])
		r.End = &e
	}
	return r
}

func event(id, title, link string, rng models.Range) *models.Event {
	return &models.Event{ID: id, Title: title, Link: link, Range: rng}
}
