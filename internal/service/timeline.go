package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/repo"
	"github.com/pkordes/tripline/internal/timeline"
)

// TimelineService loads trip timelines into editors and commits edited
// timelines back through the store.
type TimelineService struct {
	store repo.TimelineStore
	log   *slog.Logger
}

// NewTimelineService constructs a TimelineService. A nil logger uses slog.Default.
func NewTimelineService(store repo.TimelineStore, log *slog.Logger) *TimelineService {
	if log == nil {
		log = slog.Default()
	}
	return &TimelineService{store: store, log: log}
}

// Load reads the stored timeline of a trip.
// Returns domain.ErrNotFound if the trip does not exist and
// domain.ErrValidation if it has no chapters.
func (s *TimelineService) Load(ctx context.Context, tripID uuid.UUID) (domain.Trip, timeline.Snapshot, error) {
	trip, chapters, err := s.store.Load(ctx, tripID)
	if err != nil {
		return domain.Trip{}, timeline.Snapshot{}, fmt.Errorf("service.TimelineService.Load: %w", err)
	}
	snap, err := timeline.SnapshotFromChapters(tripID, chapters)
	if err != nil {
		return domain.Trip{}, timeline.Snapshot{}, fmt.Errorf("service.TimelineService.Load: %w", err)
	}
	return trip, snap, nil
}

// Open starts an editing session on a trip's stored timeline.
func (s *TimelineService) Open(ctx context.Context, tripID uuid.UUID) (*timeline.Editor, error) {
	_, snap, err := s.Load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return timeline.NewEditor(snap), nil
}

// Commit writes cs in one atomic call and returns the ids assigned to its
// inserted chapters. On failure nothing was written and the returned error
// is a *domain.CommitError classifying the failure. Commit never retries.
func (s *TimelineService) Commit(ctx context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error) {
	log := s.log.With(
		"trip_id", cs.TripID,
		"inserts", len(cs.Inserts),
		"updates", len(cs.Updates),
		"deletes", len(cs.Deletes),
	)

	res, err := s.store.Commit(ctx, cs)
	if err != nil {
		ce := domain.ClassifyCommitError(err)
		log.WarnContext(ctx, "timeline commit failed", "kind", ce.Kind, "error", err)
		return timeline.CommitResult{}, ce
	}
	log.InfoContext(ctx, "timeline committed",
		"start", cs.Range.Start.Format("2006-01-02"),
		"end", cs.Range.End.Format("2006-01-02"),
	)
	return res, nil
}

// Save commits the editor's change set.
//
// On success the editor adopts the committed timeline as its new baseline.
// On failure the editor is left exactly as it was so the save can be retried.
func (s *TimelineService) Save(ctx context.Context, ed *timeline.Editor) error {
	res, err := s.Commit(ctx, ed.ChangeSet())
	if err != nil {
		return err
	}
	return Adopt(ed, res)
}

// Adopt rebases ed onto a successful commit result.
// A result that does not cover every pending chapter means the write landed
// but the editor cannot follow it: FailureStale, and the editor must not be
// saved again.
func Adopt(ed *timeline.Editor, res timeline.CommitResult) error {
	if err := ed.Adopt(res); err != nil {
		return &domain.CommitError{Kind: domain.FailureStale, Err: fmt.Errorf("service.Adopt: %w", err)}
	}
	return nil
}

// View returns the projected stored timeline of a trip without opening a session.
func (s *TimelineService) View(ctx context.Context, tripID uuid.UUID, mode timeline.Mode) (timeline.View, error) {
	_, snap, err := s.Load(ctx, tripID)
	if err != nil {
		return timeline.View{}, err
	}
	return timeline.Describe(tripID, snap.Timeline, mode), nil
}
