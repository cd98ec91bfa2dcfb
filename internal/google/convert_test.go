package google

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"notioncal/internal/models"
)

func mustDate(s string) models.DateValue {
	v, err := models.ParseDateValue(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testClient() *CalendarClient {
	return &CalendarClient{logger: slog.New(slog.NewTextHandler(io.Discard, nil)), linkKey: "notion_id"}
}

func TestToInternalEvent_AllDayLinked(t *testing.T) {
	ev := testClient().toInternalEvent(&calendar.Event{
		Id:      "abc",
		Summary: "Standup",
		Start:   &calendar.EventDateTime{Date: "2024-03-01"},
		End:     &calendar.EventDateTime{Date: "2024-03-02"},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"notion_id": "r1", "other": "x"},
		},
	})

	assert.Equal(t, "abc", ev.ID)
	assert.Equal(t, "Standup", ev.Title)
	assert.Equal(t, "r1", ev.Link)
	assert.Equal(t, models.Day, ev.Range.Start.Kind())
	require.NotNil(t, ev.Range.End)
	assert.Equal(t, "2024-03-02", ev.Range.End.String())
}

func TestToInternalEvent_TimedNative(t *testing.T) {
	ev := testClient().toInternalEvent(&calendar.Event{
		Id:         "def",
		Summary:    "Weekly",
		Recurrence: []string{"RRULE:FREQ=WEEKLY"},
		Start:      &calendar.EventDateTime{DateTime: "2024-03-01T10:00:00+01:00", TimeZone: "Europe/Paris"},
		End:        &calendar.EventDateTime{DateTime: "2024-03-01T11:00:00+01:00", TimeZone: "Europe/Paris"},
	})

	assert.Equal(t, "", ev.Link)
	assert.Equal(t, "Europe/Paris", ev.TimeZone)
	assert.Equal(t, models.Instant, ev.Range.Start.Kind())
	assert.Equal(t, []string{"RRULE:FREQ=WEEKLY"}, ev.Recurrence)
}

func TestToInternalEvent_BadDateLeavesRangeEmpty(t *testing.T) {
	ev := testClient().toInternalEvent(&calendar.Event{
		Id:    "bad",
		Start: &calendar.EventDateTime{Date: "2024-99-01"},
	})
	assert.True(t, ev.Range.Start.IsZero())
	assert.Nil(t, ev.Range.End)
}

func TestToGoogleEvent(t *testing.T) {
	end := mustDate("2024-03-02")
	g := testClient().toGoogleEvent(&models.Event{
		Title:       "Standup",
		Description: "Synced from Notion: https://www.notion.so/r1",
		Range:       models.Range{Start: mustDate("2024-03-01"), End: &end},
		Link:        "r1",
	})

	assert.Equal(t, "Standup", g.Summary)
	assert.Equal(t, "2024-03-01", g.Start.Date)
	assert.Empty(t, g.Start.DateTime)
	assert.Equal(t, "2024-03-02", g.End.Date)
	assert.Equal(t, map[string]string{"notion_id": "r1"}, g.ExtendedProperties.Private)
}

func TestToGoogleEvent_TimedWithoutLink(t *testing.T) {
	end := mustDate("2024-03-01T11:00:00Z")
	g := testClient().toGoogleEvent(&models.Event{
		Title:    "Call",
		TimeZone: "UTC",
		Range:    models.Range{Start: mustDate("2024-03-01T10:00:00Z"), End: &end},
	})

	assert.Equal(t, "2024-03-01T10:00:00Z", g.Start.DateTime)
	assert.Equal(t, "UTC", g.Start.TimeZone)
	assert.Equal(t, "2024-03-01T11:00:00Z", g.End.DateTime)
	assert.Nil(t, g.ExtendedProperties)
}

func TestGetTokenAccounts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"token-work.json", "token-personal.json", "credentials.json", "token-notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0600))
	}

	accounts, err := GetTokenAccounts(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"work", "personal"}, accounts)
}

func TestGetOAuthConfig_FromClientCredentials(t *testing.T) {
	cfg, err := getOAuthConfig("id", "secret")
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, []string{calendar.CalendarScope}, cfg.Scopes)
}

func TestToGoogleEvent_KeepsRecurrenceZoneAndLocation(t *testing.T) {
	c := testClient()
	ev := c.toInternalEvent(&calendar.Event{
		Id:         "wk",
		Summary:    "Weekly",
		Location:   "Room 4",
		Recurrence: []string{"RRULE:FREQ=WEEKLY"},
		Start:      &calendar.EventDateTime{DateTime: "2024-03-01T10:00:00+01:00", TimeZone: "Europe/Paris"},
		End:        &calendar.EventDateTime{DateTime: "2024-03-01T11:00:00+01:00", TimeZone: "Europe/Paris"},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"notion_id": "r1"},
		},
	})
	ev.Title = "Weekly sync"

	g := c.toGoogleEvent(ev)

	assert.Equal(t, "Weekly sync", g.Summary)
	assert.Equal(t, "Room 4", g.Location)
	assert.Equal(t, []string{"RRULE:FREQ=WEEKLY"}, g.Recurrence)
	assert.Equal(t, "Europe/Paris", g.Start.TimeZone)
	assert.Equal(t, "Europe/Paris", g.End.TimeZone)
}
