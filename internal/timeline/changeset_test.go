package timeline_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/timeline"
)

// storedFixture returns three stored chapters covering Jan 1 - Jan 8 2026.
func storedFixture(tripID uuid.UUID) []domain.Chapter {
	return []domain.Chapter{
		{ID: uuid.New(), TripID: tripID, Title: "Fly out", Type: domain.ChapterTravel,
			StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 2), Position: 0},
		{ID: uuid.New(), TripID: tripID, Title: "Lisbon", Type: domain.ChapterStay,
			StartLocation: "Lisbon", EndLocation: "Lisbon",
			StartDate: date(2026, 1, 3), EndDate: date(2026, 1, 7), Position: 1},
		{ID: uuid.New(), TripID: tripID, Title: "Fly home", Type: domain.ChapterTravel,
			StartDate: date(2026, 1, 8), EndDate: date(2026, 1, 8), Position: 2},
	}
}

func TestSnapshotFromChapters(t *testing.T) {
	tripID := uuid.New()
	stored := storedFixture(tripID)

	snap, err := timeline.SnapshotFromChapters(tripID, stored)

	require.NoError(t, err)
	assert.Equal(t, tripID, snap.TripID)
	assert.Equal(t, date(2026, 1, 1), snap.Timeline.Start())
	assert.Equal(t, []int{2, 5, 1}, dayCounts(snap.Timeline))
	c, _ := snap.Timeline.Chapter(1)
	assert.Equal(t, timeline.Persisted{ID: stored[1].ID}, c.Ref)
	assert.Equal(t, "Lisbon", c.StartLocation)
}

func TestSnapshotFromChapters_Empty(t *testing.T) {
	_, err := timeline.SnapshotFromChapters(uuid.New(), nil)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// Diffing an untouched timeline yields one unchanged update per chapter.
func TestDiff_NoEdits(t *testing.T) {
	tripID := uuid.New()
	stored := storedFixture(tripID)
	snap, err := timeline.SnapshotFromChapters(tripID, stored)
	require.NoError(t, err)

	cs := timeline.Diff(snap, snap.Timeline)

	assert.Empty(t, cs.Inserts)
	assert.Empty(t, cs.Deletes)
	require.Len(t, cs.Updates, 3)
	for i, u := range cs.Updates {
		assert.Equal(t, stored[i].ID, u.ID)
		assert.Equal(t, stored[i].StartDate, u.StartDate)
		assert.Equal(t, stored[i].EndDate, u.EndDate)
		assert.Equal(t, i, u.Position)
		assert.False(t, u.Changed)
	}
	assert.True(t, cs.Empty())
	assert.Equal(t, timeline.DateRange{Start: date(2026, 1, 1), End: date(2026, 1, 8)}, cs.Range)
}

func TestDiff_ClassifiesEdits(t *testing.T) {
	tripID := uuid.New()
	stored := storedFixture(tripID)
	snap, err := timeline.SnapshotFromChapters(tripID, stored)
	require.NoError(t, err)

	tl := snap.Timeline
	tl, _, err = tl.Split(1) // Lisbon 2 + Lisbon (Part 2) 3
	require.NoError(t, err)
	tl, err = tl.Remove(0, timeline.ModeUnlocked) // drop the outbound flight
	require.NoError(t, err)

	cs := timeline.Diff(snap, tl)

	assert.Equal(t, []uuid.UUID{stored[0].ID}, cs.Deletes)
	require.Len(t, cs.Inserts, 1)
	ins := cs.Inserts[0]
	assert.Equal(t, uuid.Nil, ins.ID)
	assert.Equal(t, 1, ins.LocalID)
	assert.Equal(t, "Lisbon (Part 2)", ins.Title)
	assert.Equal(t, 1, ins.Position)
	assert.Equal(t, date(2026, 1, 3), ins.StartDate)
	assert.Equal(t, date(2026, 1, 5), ins.EndDate)

	require.Len(t, cs.Updates, 2)
	assert.Equal(t, stored[1].ID, cs.Updates[0].ID)
	assert.Equal(t, 0, cs.Updates[0].Position)
	assert.Equal(t, date(2026, 1, 1), cs.Updates[0].StartDate)
	assert.Equal(t, date(2026, 1, 2), cs.Updates[0].EndDate)
	assert.True(t, cs.Updates[0].Changed)
	assert.Equal(t, stored[2].ID, cs.Updates[1].ID)
	assert.Equal(t, date(2026, 1, 6), cs.Updates[1].StartDate)

	assert.False(t, cs.Empty())
	assert.Equal(t, timeline.DateRange{Start: date(2026, 1, 1), End: date(2026, 1, 6)}, cs.Range)
}

func TestRebase(t *testing.T) {
	tripID := uuid.New()
	snap, err := timeline.SnapshotFromChapters(tripID, storedFixture(tripID))
	require.NoError(t, err)
	tl, ref, err := snap.Timeline.Split(1)
	require.NoError(t, err)
	tl, err = tl.Delete(0)
	require.NoError(t, err)
	newID := uuid.New()

	got, err := tl.Rebase(timeline.CommitResult{Inserted: map[int]uuid.UUID{ref.(timeline.Pending).LocalID: newID}})

	require.NoError(t, err)
	assert.Empty(t, got.Deleted())
	c, _ := got.Chapter(1)
	assert.Equal(t, timeline.Persisted{ID: newID}, c.Ref)

	_, err = tl.Rebase(timeline.CommitResult{})
	assert.Error(t, err)
}
