package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelator_FindLinkedEvent(t *testing.T) {
	cal := newFakeCalendar(
		event("e1", "A", "r1", dayRange("2024-03-01", "2024-03-02")),
		event("e2", "B", "", dayRange("2024-03-01", "2024-03-02")),
	)
	c := NewCorrelator(testLogger(), cal)

	ev, err := c.FindLinkedEvent(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "e1", ev.ID)

	ev, err = c.FindLinkedEvent(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestCorrelator_FirstMatchWins(t *testing.T) {
	cal := newFakeCalendar(
		event("e1", "A", "r1", dayRange("2024-03-01", "2024-03-02")),
		event("e2", "A again", "r1", dayRange("2024-03-01", "2024-03-02")),
	)
	ev, err := NewCorrelator(testLogger(), cal).FindLinkedEvent(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "e1", ev.ID)
}

func TestAttachLink_DoesNotMutate(t *testing.T) {
	ev := event("e1", "A", "", dayRange("2024-03-01", "2024-03-02"))
	linked := AttachLink(ev, "r9")
	assert.Equal(t, "r9", ReadLink(linked))
	assert.Equal(t, "", ReadLink(ev))
	assert.Equal(t, "e1", linked.ID)
}
