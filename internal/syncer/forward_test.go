package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notioncal/internal/models"
)

func newTestSyncer(store RecordStore, cal Calendar) *Syncer {
	return NewSyncer(testLogger(), store, cal, Options{})
}

func TestSyncForward_CreatesAllDayEvent(t *testing.T) {
	cal := newFakeCalendar()
	s := newTestSyncer(newFakeStore(), cal)
	records := []*models.Record{record("r1", "Standup", dayRange("2024-03-01"))}

	stats, err := s.SyncForward(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, ForwardStats{Created: 1}, *stats)
	require.Len(t, cal.events, 1)
	ev := cal.events[0]
	assert.Equal(t, "Standup", ev.Title)
	assert.Equal(t, "r1", ev.Link)
	assert.Equal(t, "Synced from Notion: https://www.notion.so/r1", ev.Description)
	assert.Equal(t, models.Day, ev.Range.Start.Kind())
	assert.Equal(t, "2024-03-01", ev.Range.Start.String())
	assert.Equal(t, "2024-03-02", ev.Range.End.String())
}

func TestSyncForward_UpdatesLinkedEventWithoutCreating(t *testing.T) {
	cal := newFakeCalendar(event("e1", "Old title", "r1", ToEventRange(dayRange("2024-03-01"))))
	s := newTestSyncer(newFakeStore(), cal)
	records := []*models.Record{record("r1", "Standup", dayRange("2024-03-01"))}

	stats, err := s.SyncForward(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 1, cal.updates)
	assert.Equal(t, 0, cal.creates)
	assert.Equal(t, "Standup", cal.byID("e1").Title)
}

func TestSyncForward_UpdateKeepsCalendarOwnedFields(t *testing.T) {
	linked := event("e1", "Weekly", "r1", dayRange("2024-03-01T10:00:00+01:00", "2024-03-01T11:00:00+01:00"))
	linked.Location = "Room 4"
	linked.TimeZone = "Europe/Paris"
	linked.Recurrence = []string{"RRULE:FREQ=WEEKLY"}
	cal := newFakeCalendar(linked)
	s := newTestSyncer(newFakeStore(), cal)
	records := []*models.Record{record("r1", "Weekly sync", dayRange("2024-03-01T09:00:00Z", "2024-03-01T10:00:00Z"))}

	stats, err := s.SyncForward(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Updated)
	require.Len(t, cal.updated, 1)
	got := cal.updated[0]
	assert.Equal(t, "Weekly sync", got.Title)
	assert.Equal(t, "Room 4", got.Location)
	assert.Equal(t, "Europe/Paris", got.TimeZone)
	assert.Equal(t, []string{"RRULE:FREQ=WEEKLY"}, got.Recurrence)
}

func TestSyncForward_LeavesMatchingEventAlone(t *testing.T) {
	rec := record("r1", "Standup", dayRange("2024-03-01T10:00:00Z"))
	cal := newFakeCalendar(&models.Event{
		ID:          "e1",
		Title:       "Standup",
		Description: "Synced from Notion: https://www.notion.so/r1",
		Link:        "r1",
		// Same moments as the record, reported in another offset.
		Range: dayRange("2024-03-01T11:00:00+01:00", "2024-03-01T12:00:00+01:00"),
	})
	s := newTestSyncer(newFakeStore(), cal)

	stats, err := s.SyncForward(context.Background(), []*models.Record{rec})
	require.NoError(t, err)
	assert.Equal(t, ForwardStats{Unchanged: 1}, *stats)
	assert.Equal(t, 0, cal.updates)
}

func TestSyncForward_SkipsUndatedRecords(t *testing.T) {
	cal := newFakeCalendar()
	s := newTestSyncer(newFakeStore(), cal)

	stats, err := s.SyncForward(context.Background(), []*models.Record{undatedRecord("r1", "Someday")})
	require.NoError(t, err)
	assert.Equal(t, ForwardStats{Skipped: 1}, *stats)
	assert.Equal(t, 0, cal.lookups)
}

func TestSyncForward_DeletesOrphanedEvent(t *testing.T) {
	cal := newFakeCalendar(
		event("e1", "Gone", "r-gone", dayRange("2024-03-01", "2024-03-02")),
		event("e2", "Native", "", dayRange("2024-03-01", "2024-03-02")),
	)
	s := newTestSyncer(newFakeStore(), cal)

	stats, err := s.SyncForward(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, 1, cal.deletes)
	assert.Nil(t, cal.byID("e1"))
	assert.NotNil(t, cal.byID("e2"))
}

func TestSyncForward_ContinuesAfterItemFailure(t *testing.T) {
	cal := newFakeCalendar()
	cal.createErr = errors.New("quota exceeded")
	s := newTestSyncer(newFakeStore(), cal)
	records := []*models.Record{
		record("r1", "A", dayRange("2024-03-01")),
		record("r2", "B", dayRange("2024-03-02")),
	}

	stats, err := s.SyncForward(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 2, cal.creates)
	require.Len(t, stats.Failures, 2)
	assert.Equal(t, "r1", stats.Failures[0].ItemID)
	assert.ErrorContains(t, stats.Failures[0], "quota exceeded")
}

func TestSyncForward_SweepFailureKeepsCounts(t *testing.T) {
	cal := newFakeCalendar()
	cal.listErr = errors.New("backend down")
	s := newTestSyncer(newFakeStore(), cal)

	stats, err := s.SyncForward(context.Background(), []*models.Record{record("r1", "A", dayRange("2024-03-01"))})
	require.Error(t, err)
	assert.Equal(t, 1, stats.Created)
}

func TestSyncForward_DryRunIssuesNoWrites(t *testing.T) {
	cal := newFakeCalendar(event("e1", "Gone", "r-gone", dayRange("2024-03-01", "2024-03-02")))
	s := NewSyncer(testLogger(), newFakeStore(), cal, Options{DryRun: true})

	stats, err := s.SyncForward(context.Background(), []*models.Record{record("r1", "A", dayRange("2024-03-01"))})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, 0, cal.creates+cal.updates+cal.deletes)
}
