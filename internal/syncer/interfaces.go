package syncer

import (
	"context"

	"notioncal/internal/models"
)

// RecordStore provides read/write access to the database side.
// Implemented by [notion.Client].
type RecordStore interface {
	ListRecords(ctx context.Context) ([]*models.Record, error)
	// CreateRecord returns the new record, at least its ID and URL.
	CreateRecord(ctx context.Context, title string, rng models.Range) (*models.Record, error)
	// UpdateRecord rewrites the title, and the date too when rng is non-nil.
	UpdateRecord(ctx context.Context, id, title string, rng *models.Range) error
	// ArchiveRecord moves a record to the trash. Neither sync pass calls it:
	// a record whose event vanished gets the event recreated, never archived.
	ArchiveRecord(ctx context.Context, id string) error
}

// Calendar provides read/write access to the calendar side.
// Implemented by [google.CalendarClient] and [icloud.CalDAVClient].
type Calendar interface {
	ListEvents(ctx context.Context, q models.EventQuery) ([]*models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error)
	// UpdateEvent replaces the whole event body.
	UpdateEvent(ctx context.Context, id string, event *models.Event) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}
