package syncer

import (
	"context"
	"fmt"

	"notioncal/internal/models"
)

const passReverse = "calendar_to_notion"

// SyncReverse reconciles every calendar event against records: native
// events are adopted as new records, events whose record is gone are
// deleted, and title drift is copied onto the record. Dates never flow back
// to the database. The returned error means the event list could not be
// fetched and nothing was processed.
func (s *Syncer) SyncReverse(ctx context.Context, records []*models.Record) (*ReverseStats, error) {
	s.logger.Info("Syncing calendar to Notion.")
	stats := &ReverseStats{}

	byID := make(map[string]*models.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	events, err := s.calendar.ListEvents(ctx, models.EventQuery{MaxResults: s.pageSize})
	if err != nil {
		return stats, fmt.Errorf("failed to list calendar events: %w", err)
	}

	for _, ev := range events {
		outcome, err := s.reverseEvent(ctx, ev, byID)
		if err != nil {
			s.logger.Error("Failed to sync calendar event to Notion", "eventID", ev.ID, "title", ev.Title, "error", err)
			stats.Failures = append(stats.Failures, &ItemError{Pass: passReverse, ItemID: ev.ID, Err: err})
			continue
		}
		stats.add(outcome)
	}
	return stats, nil
}

func (s *Syncer) reverseEvent(ctx context.Context, ev *models.Event, byID map[string]*models.Record) (Outcome, error) {
	recordID := ReadLink(ev)
	if recordID == "" {
		return s.adoptEvent(ctx, ev)
	}

	rec, ok := byID[recordID]
	if !ok {
		if _, swept := s.dryRunDeleted[ev.ID]; swept {
			s.logger.Debug("Event already counted by the deletion sweep.", "eventID", ev.ID)
			return OutcomeNone, nil
		}
		if err := s.deleteEvent(ctx, ev); err != nil {
			return OutcomeNone, err
		}
		return OutcomeDeleted, nil
	}

	eventTitle := s.titles.EventTitle(ev)
	recordTitle := s.titles.RecordTitle(rec)
	if eventTitle == recordTitle {
		return OutcomeUnchanged, nil
	}

	s.logger.Info("Title changed on calendar.", "from", recordTitle, "to", eventTitle, "recordID", rec.ID)
	if s.dryRun {
		s.logger.Info("[DRY RUN] Would update Notion page", "title", eventTitle, "recordID", rec.ID)
		return OutcomeUpdated, nil
	}
	if err := s.records.UpdateRecord(ctx, rec.ID, eventTitle, nil); err != nil {
		return OutcomeNone, fmt.Errorf("failed to update record %s: %w", rec.ID, err)
	}
	return OutcomeUpdated, nil
}

// adoptEvent creates a record for a calendar-native event and links the
// event to it so the next run treats the pair as synced. The event also gets
// the provenance description the forward pass would write.
func (s *Syncer) adoptEvent(ctx context.Context, ev *models.Event) (Outcome, error) {
	rng, ok := ToRecordRange(ev.Range)
	if !ok {
		return OutcomeSkipped, nil
	}
	title := s.titles.EventTitle(ev)

	if s.dryRun {
		s.logger.Info("[DRY RUN] Would create Notion page from calendar event", "title", title, "eventID", ev.ID)
		return OutcomeCreated, nil
	}

	rec, err := s.records.CreateRecord(ctx, title, rng)
	if err != nil {
		return OutcomeNone, fmt.Errorf("failed to create record: %w", err)
	}
	linked := AttachLink(ev, rec.ID)
	linked.Description = provenance(rec)
	if _, err := s.calendar.UpdateEvent(ctx, ev.ID, linked); err != nil {
		return OutcomeNone, fmt.Errorf("created record %s but failed to link event: %w", rec.ID, err)
	}
	s.logger.Info("Created Notion page from calendar event.", "title", title, "recordID", rec.ID)
	return OutcomeCreated, nil
}
