package syncer

import (
	"context"
	"fmt"

	"notioncal/internal/models"
)

const passForward = "notion_to_calendar"

// SyncForward pushes every record to the calendar and then deletes linked
// events whose record is no longer in records. The returned error is set
// only when the deletion sweep could not list the calendar; item failures
// are collected in the stats.
func (s *Syncer) SyncForward(ctx context.Context, records []*models.Record) (*ForwardStats, error) {
	s.logger.Info("Syncing Notion to calendar.", "records", len(records))
	stats := &ForwardStats{}
	s.dryRunDeleted = nil

	// Captured once so the sweep does not re-query the record store.
	ids := make(map[string]struct{}, len(records))
	for _, rec := range records {
		ids[rec.ID] = struct{}{}
	}

	for _, rec := range records {
		outcome, err := s.forwardRecord(ctx, rec)
		if err != nil {
			s.logger.Error("Failed to sync record to calendar", "recordID", rec.ID, "error", err)
			stats.Failures = append(stats.Failures, &ItemError{Pass: passForward, ItemID: rec.ID, Err: err})
			continue
		}
		stats.add(outcome)
	}

	if err := s.sweepUnlinked(ctx, ids, stats); err != nil {
		s.logger.Error("Calendar deletion sweep failed", "error", err)
		return stats, err
	}
	return stats, nil
}

// desiredEvent builds the calendar body a record should have. It returns
// false for records without a start date.
func (s *Syncer) desiredEvent(rec *models.Record) (*models.Event, bool) {
	if rec.Range == nil || rec.Range.Start.IsZero() {
		return nil, false
	}
	return &models.Event{
		Title:       s.titles.RecordTitle(rec),
		Description: provenance(rec),
		Range:       ToEventRange(*rec.Range),
		Link:        rec.ID,
	}, true
}

func provenance(rec *models.Record) string {
	return fmt.Sprintf("Synced from Notion: %s", rec.URL)
}

func (s *Syncer) forwardRecord(ctx context.Context, rec *models.Record) (Outcome, error) {
	desired, ok := s.desiredEvent(rec)
	if !ok {
		s.logger.Debug("Skipping record without a date.", "recordID", rec.ID)
		return OutcomeSkipped, nil
	}

	existing, err := s.correlator.FindLinkedEvent(ctx, rec.ID)
	if err != nil {
		return OutcomeNone, err
	}

	if existing != nil {
		if sameEventBody(existing, desired) {
			s.logger.Debug("Calendar event already up to date.", "title", desired.Title, "eventID", existing.ID)
			return OutcomeUnchanged, nil
		}
		if s.dryRun {
			s.logger.Info("[DRY RUN] Would update calendar event", "title", desired.Title, "eventID", existing.ID)
			return OutcomeUpdated, nil
		}
		// Updates replace the whole body; keep what the record does not own.
		desired.Location = existing.Location
		desired.TimeZone = existing.TimeZone
		desired.Recurrence = existing.Recurrence
		if _, err := s.calendar.UpdateEvent(ctx, existing.ID, desired); err != nil {
			return OutcomeNone, fmt.Errorf("failed to update event %s: %w", existing.ID, err)
		}
		s.logger.Info("Updated calendar event.", "title", desired.Title, "eventID", existing.ID)
		return OutcomeUpdated, nil
	}

	if s.dryRun {
		s.logger.Info("[DRY RUN] Would create calendar event", "title", desired.Title, "start", desired.Range.Start.String())
		return OutcomeCreated, nil
	}
	created, err := s.calendar.CreateEvent(ctx, desired)
	if err != nil {
		return OutcomeNone, fmt.Errorf("failed to create event: %w", err)
	}
	s.logger.Info("Created calendar event.", "title", desired.Title, "eventID", created.ID)
	return OutcomeCreated, nil
}

// sweepUnlinked deletes linked events whose record id is not in ids.
func (s *Syncer) sweepUnlinked(ctx context.Context, ids map[string]struct{}, stats *ForwardStats) error {
	events, err := s.calendar.ListEvents(ctx, models.EventQuery{MaxResults: s.pageSize})
	if err != nil {
		return fmt.Errorf("failed to list calendar events: %w", err)
	}

	linked := 0
	for _, ev := range events {
		recordID := ReadLink(ev)
		if recordID == "" {
			continue
		}
		linked++
		if _, ok := ids[recordID]; ok {
			continue
		}
		if err := s.deleteEvent(ctx, ev); err != nil {
			s.logger.Error("Failed to delete orphaned calendar event", "eventID", ev.ID, "error", err)
			stats.Failures = append(stats.Failures, &ItemError{Pass: passForward, ItemID: ev.ID, Err: err})
			continue
		}
		if s.dryRun {
			if s.dryRunDeleted == nil {
				s.dryRunDeleted = make(map[string]struct{})
			}
			s.dryRunDeleted[ev.ID] = struct{}{}
		}
		stats.Deleted++
	}
	s.logger.Debug("Checked previously synced events.", "linked", linked, "deleted", stats.Deleted)
	return nil
}

func (s *Syncer) deleteEvent(ctx context.Context, ev *models.Event) error {
	if s.dryRun {
		s.logger.Info("[DRY RUN] Would delete calendar event", "title", ev.Title, "eventID", ev.ID)
		return nil
	}
	if err := s.calendar.DeleteEvent(ctx, ev.ID); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", ev.ID, err)
	}
	s.logger.Info("Deleted calendar event.", "title", ev.Title, "eventID", ev.ID)
	return nil
}

// sameEventBody reports whether applying desired to existing would change
// any field the forward pass owns.
func sameEventBody(existing, desired *models.Event) bool {
	return existing.Title == desired.Title &&
		existing.Description == desired.Description &&
		existing.Link == desired.Link &&
		existing.Range.Equal(desired.Range)
}
