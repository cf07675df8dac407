package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/repo"
	"github.com/pkordes/tripline/internal/service"
	"github.com/pkordes/tripline/internal/timeline"
)

// mockTimelineStore is a hand-written test double for repo.TimelineStore.
type mockTimelineStore struct {
	load   func(ctx context.Context, tripID uuid.UUID) (domain.Trip, []domain.Chapter, error)
	commit func(ctx context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error)
}

func (m *mockTimelineStore) Load(ctx context.Context, tripID uuid.UUID) (domain.Trip, []domain.Chapter, error) {
	return m.load(ctx, tripID)
}
func (m *mockTimelineStore) Commit(ctx context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error) {
	return m.commit(ctx, cs)
}

// compile-time check: mockTimelineStore must satisfy repo.TimelineStore.
var _ repo.TimelineStore = (*mockTimelineStore)(nil)

// ---- helpers ---------------------------------------------------------------

// chaptersFixture returns three stored chapters of 2, 5 and 1 days starting
// 2026-01-01.
func chaptersFixture(tripID uuid.UUID) []domain.Chapter {
	return []domain.Chapter{
		{ID: uuid.New(), TripID: tripID, Title: "Fly out", Type: domain.ChapterTravel,
			StartLocation: "Boston", EndLocation: "Lisbon",
			StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 2), Position: 0},
		{ID: uuid.New(), TripID: tripID, Title: "Lisbon", Type: domain.ChapterStay,
			StartLocation: "Lisbon", EndLocation: "Lisbon",
			StartDate: date(2026, 1, 3), EndDate: date(2026, 1, 7), Position: 1},
		{ID: uuid.New(), TripID: tripID, Title: "Fly home", Type: domain.ChapterTravel,
			StartLocation: "Lisbon", EndLocation: "Boston",
			StartDate: date(2026, 1, 8), EndDate: date(2026, 1, 8), Position: 2},
	}
}

// loadingStore returns a store that serves trip and its fixture chapters.
func loadingStore(trip domain.Trip) *mockTimelineStore {
	chapters := chaptersFixture(trip.ID)
	return &mockTimelineStore{
		load: func(_ context.Context, id uuid.UUID) (domain.Trip, []domain.Chapter, error) {
			if id != trip.ID {
				return domain.Trip{}, nil, domain.ErrNotFound
			}
			return trip, chapters, nil
		},
	}
}

func openEditor(t *testing.T, store *mockTimelineStore, tripID uuid.UUID) (*service.TimelineService, *timeline.Editor) {
	t.Helper()
	svc := service.NewTimelineService(store, nil)
	ed, err := svc.Open(context.Background(), tripID)
	require.NoError(t, err)
	return svc, ed
}

// ---- Load / Open -----------------------------------------------------------

func TestTimelineService_Open_BuildsEditorFromStoredChapters(t *testing.T) {
	trip := tripFixture("Portugal")
	_, ed := openEditor(t, loadingStore(trip), trip.ID)

	assert.Equal(t, trip.ID, ed.TripID())
	assert.Equal(t, date(2026, 1, 1), ed.Timeline().Start())
	assert.Equal(t, 8, ed.Timeline().TotalDays())
	assert.True(t, ed.ChangeSet().Empty())
}

func TestTimelineService_Open_UnknownTrip(t *testing.T) {
	svc := service.NewTimelineService(loadingStore(tripFixture("Portugal")), nil)

	_, err := svc.Open(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTimelineService_Open_TripWithoutChapters(t *testing.T) {
	trip := tripFixture("Empty")
	svc := service.NewTimelineService(&mockTimelineStore{
		load: func(_ context.Context, _ uuid.UUID) (domain.Trip, []domain.Chapter, error) {
			return trip, nil, nil
		},
	}, nil)

	_, err := svc.Open(context.Background(), trip.ID)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTimelineService_View(t *testing.T) {
	trip := tripFixture("Portugal")
	svc := service.NewTimelineService(loadingStore(trip), nil)

	v, err := svc.View(context.Background(), trip.ID, timeline.ModeUnlocked)

	require.NoError(t, err)
	assert.Equal(t, timeline.ModeUnlocked, v.Mode)
	assert.Equal(t, date(2026, 1, 8), v.End)
	require.Len(t, v.Chapters, 3)
	assert.Equal(t, date(2026, 1, 3), v.Chapters[1].Start)
	assert.False(t, v.Dirty)
}

// ---- Save ------------------------------------------------------------------

func TestTimelineService_Save_CommitsChangeSetAndAdopts(t *testing.T) {
	trip := tripFixture("Portugal")
	store := loadingStore(trip)
	svc, ed := openEditor(t, store, trip.ID)

	applied, err := ed.Apply(timeline.Edit{Op: timeline.OpResize, Index: 1, Delta: 2}, timeline.ModeUnlocked)
	require.NoError(t, err)
	require.True(t, applied)
	applied, err = ed.Apply(timeline.Edit{Op: timeline.OpSplit, Index: 1}, timeline.ModeUnlocked)
	require.NoError(t, err)
	require.True(t, applied)

	newID := uuid.New()
	var got timeline.ChangeSet
	store.commit = func(_ context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error) {
		got = cs
		inserted := make(map[int]uuid.UUID, len(cs.Inserts))
		for _, w := range cs.Inserts {
			inserted[w.LocalID] = newID
		}
		return timeline.CommitResult{Inserted: inserted}, nil
	}

	err = svc.Save(context.Background(), ed)

	require.NoError(t, err)
	assert.Equal(t, trip.ID, got.TripID)
	assert.Len(t, got.Inserts, 1)
	assert.Len(t, got.Updates, 3)
	assert.Empty(t, got.Deletes)
	assert.Equal(t, date(2026, 1, 10), got.Range.End)

	// After adoption the session is clean and the new chapter is persisted.
	assert.True(t, ed.ChangeSet().Empty())
	assert.False(t, ed.CanUndo())
	c, err := ed.Timeline().Chapter(2)
	require.NoError(t, err)
	assert.Equal(t, timeline.Persisted{ID: newID}, c.Ref)
}

func TestTimelineService_Save_FailureKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind domain.FailureKind
	}{
		{"missing chapter", domain.ErrNotFound, domain.FailureValidation},
		{"unresolvable location", &domain.LocationError{Location: "Atlantis", Err: domain.ErrGeocoding}, domain.FailureGeocoding},
		{"expired session", domain.ErrUnauthenticated, domain.FailureAuthentication},
		{"database down", errors.New("connection refused"), domain.FailureTransaction},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			trip := tripFixture("Portugal")
			store := loadingStore(trip)
			svc, ed := openEditor(t, store, trip.ID)
			_, err := ed.Apply(timeline.Edit{Op: timeline.OpResize, Index: 0, Delta: 1}, timeline.ModeLocked)
			require.NoError(t, err)

			store.commit = func(_ context.Context, _ timeline.ChangeSet) (timeline.CommitResult, error) {
				return timeline.CommitResult{}, tc.err
			}

			err = svc.Save(context.Background(), ed)

			var ce *domain.CommitError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.wantKind, ce.Kind)
			assert.NotEmpty(t, ce.UserMessage())
		})
	}
}

func TestTimelineService_Save_FailureLeavesEditorUntouched(t *testing.T) {
	trip := tripFixture("Portugal")
	store := loadingStore(trip)
	svc, ed := openEditor(t, store, trip.ID)

	_, err := ed.Apply(timeline.Edit{Op: timeline.OpResize, Index: 1, Delta: -2}, timeline.ModeLocked)
	require.NoError(t, err)
	_, err = ed.Apply(timeline.Edit{Op: timeline.OpDelete, Index: 2}, timeline.ModeUnlocked)
	require.NoError(t, err)

	beforeTimeline := ed.Timeline()
	beforeSnapshot := ed.Snapshot()
	beforeChanges := ed.ChangeSet()

	store.commit = func(_ context.Context, _ timeline.ChangeSet) (timeline.CommitResult, error) {
		return timeline.CommitResult{}, errors.New("serialization failure")
	}

	err = svc.Save(context.Background(), ed)

	require.Error(t, err)
	assert.Equal(t, beforeTimeline, ed.Timeline())
	assert.Equal(t, beforeSnapshot, ed.Snapshot())
	assert.Equal(t, beforeChanges, ed.ChangeSet())
	assert.True(t, ed.CanUndo())
}

func TestTimelineService_Save_RetryAfterFailureSendsSameChangeSet(t *testing.T) {
	trip := tripFixture("Portugal")
	store := loadingStore(trip)
	svc, ed := openEditor(t, store, trip.ID)
	_, err := ed.Apply(timeline.Edit{Op: timeline.OpRename, Ref: ed.Timeline().Chapters()[0].Ref, Title: "Red-eye"}, timeline.ModeLocked)
	require.NoError(t, err)

	var sent []timeline.ChangeSet
	calls := 0
	store.commit = func(_ context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error) {
		sent = append(sent, cs)
		calls++
		if calls == 1 {
			return timeline.CommitResult{}, errors.New("timeout")
		}
		return timeline.CommitResult{}, nil
	}

	require.Error(t, svc.Save(context.Background(), ed))
	require.NoError(t, svc.Save(context.Background(), ed))

	require.Len(t, sent, 2)
	assert.Equal(t, sent[0], sent[1])
	assert.True(t, ed.ChangeSet().Empty())
}

func TestTimelineService_Save_UnmatchedInsertIsStale(t *testing.T) {
	trip := tripFixture("Portugal")
	store := loadingStore(trip)
	svc, ed := openEditor(t, store, trip.ID)
	_, err := ed.Apply(timeline.Edit{Op: timeline.OpSplit, Index: 1}, timeline.ModeLocked)
	require.NoError(t, err)

	store.commit = func(_ context.Context, _ timeline.ChangeSet) (timeline.CommitResult, error) {
		return timeline.CommitResult{}, nil
	}

	err = svc.Save(context.Background(), ed)

	var ce *domain.CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.FailureStale, ce.Kind)
}
