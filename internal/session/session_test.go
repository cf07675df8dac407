package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/session"
	"github.com/pkordes/tripline/internal/timeline"
)

// mockTimelines is a hand-written test double for session.Timelines.
type mockTimelines struct {
	open   func(ctx context.Context, tripID uuid.UUID) (*timeline.Editor, error)
	commit func(ctx context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error)
}

func (m *mockTimelines) Open(ctx context.Context, tripID uuid.UUID) (*timeline.Editor, error) {
	return m.open(ctx, tripID)
}
func (m *mockTimelines) Commit(ctx context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error) {
	return m.commit(ctx, cs)
}

var _ session.Timelines = (*mockTimelines)(nil)

// ---- helpers ---------------------------------------------------------------

func editorFixture(t *testing.T, tripID uuid.UUID, days ...int) *timeline.Editor {
	t.Helper()
	chapters := make([]timeline.Chapter, len(days))
	for i, d := range days {
		chapters[i] = timeline.Chapter{
			Ref:   timeline.Persisted{ID: uuid.New()},
			Title: "Chapter",
			Type:  domain.ChapterStay,
			Days:  d,
		}
	}
	tl, err := timeline.New(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), chapters)
	require.NoError(t, err)
	return timeline.NewEditor(timeline.Snapshot{TripID: tripID, Timeline: tl})
}

func openingTimelines(t *testing.T) *mockTimelines {
	return &mockTimelines{
		open: func(_ context.Context, tripID uuid.UUID) (*timeline.Editor, error) {
			return editorFixture(t, tripID, 3, 4, 2), nil
		},
		commit: func(_ context.Context, _ timeline.ChangeSet) (timeline.CommitResult, error) {
			return timeline.CommitResult{}, nil
		},
	}
}

func openSession(t *testing.T, r *session.Registry) uuid.UUID {
	t.Helper()
	id, v, err := r.Open(context.Background(), uuid.New(), timeline.ModeLocked)
	require.NoError(t, err)
	require.Len(t, v.Chapters, 3)
	return id
}

// ---- Open / View / Close ---------------------------------------------------

func TestRegistry_Open_UnknownTrip(t *testing.T) {
	r := session.NewRegistry(&mockTimelines{
		open: func(_ context.Context, _ uuid.UUID) (*timeline.Editor, error) {
			return nil, domain.ErrNotFound
		},
	}, time.Minute)

	_, _, err := r.Open(context.Background(), uuid.New(), timeline.ModeLocked)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, r.Len())
}

func TestRegistry_View_UnknownSession(t *testing.T) {
	r := session.NewRegistry(openingTimelines(t), time.Minute)

	_, err := r.View(uuid.New(), timeline.ModeLocked)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_Close(t *testing.T) {
	r := session.NewRegistry(openingTimelines(t), time.Minute)
	id := openSession(t, r)

	require.NoError(t, r.Close(id))

	assert.ErrorIs(t, r.Close(id), domain.ErrNotFound)
	_, err := r.View(id, timeline.ModeLocked)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- Apply / Undo ----------------------------------------------------------

func TestRegistry_ApplyAndUndo(t *testing.T) {
	r := session.NewRegistry(openingTimelines(t), time.Minute)
	id := openSession(t, r)

	applied, v, err := r.Apply(id, timeline.Edit{Op: timeline.OpResize, Index: 0, Delta: 1}, timeline.ModeLocked)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, v.Dirty)
	assert.Equal(t, 4, v.Chapters[0].Days)
	assert.Equal(t, 3, v.Chapters[1].Days)
	assert.Equal(t, 9, v.TotalDays)

	undone, v, err := r.Undo(id, timeline.ModeLocked)
	require.NoError(t, err)
	assert.True(t, undone)
	assert.False(t, v.Dirty)
	assert.Equal(t, 3, v.Chapters[0].Days)
}

func TestRegistry_Apply_InvariantViolationIsDropped(t *testing.T) {
	r := session.NewRegistry(openingTimelines(t), time.Minute)
	id := openSession(t, r)

	applied, v, err := r.Apply(id, timeline.Edit{Op: timeline.OpResize, Index: 2, Delta: -5}, timeline.ModeUnlocked)

	require.NoError(t, err)
	assert.False(t, applied)
	assert.False(t, v.Dirty)
}

func TestRegistry_Apply_BadIndex(t *testing.T) {
	r := session.NewRegistry(openingTimelines(t), time.Minute)
	id := openSession(t, r)

	_, _, err := r.Apply(id, timeline.Edit{Op: timeline.OpSplit, Index: 7}, timeline.ModeLocked)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- Save ------------------------------------------------------------------

func TestRegistry_Save_AdoptsOnSuccess(t *testing.T) {
	tl := openingTimelines(t)
	newID := uuid.New()
	tl.commit = func(_ context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error) {
		require.Len(t, cs.Inserts, 1)
		return timeline.CommitResult{Inserted: map[int]uuid.UUID{cs.Inserts[0].LocalID: newID}}, nil
	}
	r := session.NewRegistry(tl, time.Minute)
	id := openSession(t, r)
	_, _, err := r.Apply(id, timeline.Edit{Op: timeline.OpSplit, Index: 1}, timeline.ModeLocked)
	require.NoError(t, err)

	v, err := r.Save(context.Background(), id, timeline.ModeLocked)

	require.NoError(t, err)
	assert.False(t, v.Dirty)
	assert.False(t, v.CanUndo)
	require.Len(t, v.Chapters, 4)
	assert.Equal(t, newID.String(), v.Chapters[2].Ref)
	assert.True(t, v.Chapters[2].Persisted)
}

func TestRegistry_Save_FailureKeepsEdits(t *testing.T) {
	tl := openingTimelines(t)
	tl.commit = func(_ context.Context, _ timeline.ChangeSet) (timeline.CommitResult, error) {
		return timeline.CommitResult{}, &domain.CommitError{Kind: domain.FailureTransaction, Err: errors.New("deadlock")}
	}
	r := session.NewRegistry(tl, time.Minute)
	id := openSession(t, r)
	_, before, err := r.Apply(id, timeline.Edit{Op: timeline.OpResize, Index: 1, Delta: 2}, timeline.ModeUnlocked)
	require.NoError(t, err)

	_, err = r.Save(context.Background(), id, timeline.ModeUnlocked)

	var ce *domain.CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.FailureTransaction, ce.Kind)

	after, err := r.View(id, timeline.ModeUnlocked)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRegistry_Save_UnmatchedInsertDropsSession(t *testing.T) {
	tl := openingTimelines(t)
	tl.commit = func(_ context.Context, _ timeline.ChangeSet) (timeline.CommitResult, error) {
		return timeline.CommitResult{}, nil
	}
	r := session.NewRegistry(tl, time.Minute)
	id := openSession(t, r)
	_, _, err := r.Apply(id, timeline.Edit{Op: timeline.OpSplit, Index: 1}, timeline.ModeLocked)
	require.NoError(t, err)

	_, err = r.Save(context.Background(), id, timeline.ModeLocked)

	var ce *domain.CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.FailureStale, ce.Kind)
	_, err = r.View(id, timeline.ModeLocked)
	assert.ErrorIs(t, err, domain.ErrNotFound, "a stale session cannot be saved twice")
}

func TestRegistry_Save_SessionClosedWhileSaving(t *testing.T) {
	tests := []struct {
		name      string
		commitErr error
		want      error
	}{
		{"commit succeeded", nil, domain.ErrNotFound},
		{"commit failed", &domain.CommitError{Kind: domain.FailureTransaction, Err: errors.New("deadlock")}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tl := openingTimelines(t)
			var r *session.Registry
			var id uuid.UUID
			tl.commit = func(_ context.Context, _ timeline.ChangeSet) (timeline.CommitResult, error) {
				require.NoError(t, r.Close(id))
				return timeline.CommitResult{}, tc.commitErr
			}
			r = session.NewRegistry(tl, time.Minute)
			id = openSession(t, r)

			v, err := r.Save(context.Background(), id, timeline.ModeLocked)

			assert.Equal(t, timeline.View{}, v)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
				return
			}
			assert.Same(t, tc.commitErr, err)
		})
	}
}

func TestRegistry_Save_RejectsConcurrentSaveAndEdits(t *testing.T) {
	tl := openingTimelines(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	tl.commit = func(_ context.Context, _ timeline.ChangeSet) (timeline.CommitResult, error) {
		close(entered)
		<-release
		return timeline.CommitResult{}, nil
	}
	r := session.NewRegistry(tl, time.Minute)
	id := openSession(t, r)

	done := make(chan error, 1)
	go func() {
		_, err := r.Save(context.Background(), id, timeline.ModeLocked)
		done <- err
	}()
	<-entered

	_, err := r.Save(context.Background(), id, timeline.ModeLocked)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, _, err = r.Apply(id, timeline.Edit{Op: timeline.OpResize, Index: 0, Delta: 1}, timeline.ModeLocked)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = r.View(id, timeline.ModeLocked)
	assert.NoError(t, err, "viewing is allowed while saving")

	close(release)
	require.NoError(t, <-done)

	applied, _, err := r.Apply(id, timeline.Edit{Op: timeline.OpResize, Index: 0, Delta: 1}, timeline.ModeLocked)
	require.NoError(t, err)
	assert.True(t, applied)
}

// ---- Sweep -----------------------------------------------------------------

func TestRegistry_Sweep_DropsIdleSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := session.NewRegistry(openingTimelines(t), 30*time.Minute).
		WithClock(func() time.Time { return now })

	idle := openSession(t, r)
	now = now.Add(20 * time.Minute)
	active := openSession(t, r)
	now = now.Add(15 * time.Minute)

	assert.Equal(t, 1, r.Sweep())
	_, err := r.View(idle, timeline.ModeLocked)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.View(active, timeline.ModeLocked)
	assert.NoError(t, err)
}

func TestRegistry_Sweep_ZeroTTLKeepsEverything(t *testing.T) {
	r := session.NewRegistry(openingTimelines(t), 0)
	openSession(t, r)

	assert.Zero(t, r.Sweep())
	assert.Equal(t, 1, r.Len())
}
