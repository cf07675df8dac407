package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/geocode"
	"github.com/pkordes/tripline/internal/timeline"
)

// txDB is a db that can also open a transaction.
// Satisfied by *pgxpool.Pool and pgx.Tx (which nests as a savepoint).
type txDB interface {
	db
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TimelineStore is the atomic-commit collaborator for timeline edits.
type TimelineStore interface {
	// Load returns a trip and its chapters ordered by position.
	Load(ctx context.Context, tripID uuid.UUID) (domain.Trip, []domain.Chapter, error)

	// Commit applies every delete, update and insert of cs plus the trip
	// date-range update in one transaction. Either all of it lands or none.
	// Locations of inserted chapters are geocoded first; a location that does
	// not resolve fails the commit with domain.ErrGeocoding.
	// A referenced chapter or trip that no longer exists fails it with
	// domain.ErrNotFound.
	Commit(ctx context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error)
}

// pgTimelineStore is the Postgres implementation of TimelineStore.
type pgTimelineStore struct {
	db       txDB
	geocoder geocode.Geocoder
}

// NewTimelineStore constructs a TimelineStore. A nil geocoder leaves the
// coordinates of inserted chapters empty.
func NewTimelineStore(db txDB, g geocode.Geocoder) TimelineStore {
	return &pgTimelineStore{db: db, geocoder: g}
}

func (s *pgTimelineStore) Load(ctx context.Context, tripID uuid.UUID) (domain.Trip, []domain.Chapter, error) {
	trip, err := NewTripRepo(s.db).GetByID(ctx, tripID)
	if err != nil {
		return domain.Trip{}, nil, fmt.Errorf("repo.TimelineStore.Load: %w", err)
	}
	chapters, err := NewChapterRepo(s.db).ListByTripID(ctx, tripID)
	if err != nil {
		return domain.Trip{}, nil, fmt.Errorf("repo.TimelineStore.Load: %w", err)
	}
	return trip, chapters, nil
}

func (s *pgTimelineStore) Commit(ctx context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error) {
	// Geocode before opening the transaction so no locks are held while
	// waiting on the network.
	inserts, err := s.resolve(ctx, cs)
	if err != nil {
		return timeline.CommitResult{}, fmt.Errorf("repo.TimelineStore.Commit: %w", err)
	}

	res := timeline.CommitResult{Inserted: make(map[int]uuid.UUID, len(inserts))}
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		trips := NewTripRepo(tx)
		chapters := NewChapterRepo(tx)

		if _, err := trips.Lock(ctx, cs.TripID); err != nil {
			return err
		}
		for _, id := range cs.Deletes {
			if err := chapters.Delete(ctx, cs.TripID, id); err != nil {
				return err
			}
		}
		for _, w := range cs.Updates {
			if _, err := chapters.Update(ctx, chapterFromWrite(cs.TripID, w)); err != nil {
				return err
			}
		}
		for i, c := range inserts {
			created, err := chapters.Create(ctx, c)
			if err != nil {
				return err
			}
			res.Inserted[cs.Inserts[i].LocalID] = created.ID
		}
		return trips.UpdateDateRange(ctx, cs.TripID, cs.Range.Start, cs.Range.End)
	})
	if err != nil {
		return timeline.CommitResult{}, fmt.Errorf("repo.TimelineStore.Commit: %w", err)
	}
	return res, nil
}

// resolve converts the inserts of cs to chapters with geocoded endpoints.
func (s *pgTimelineStore) resolve(ctx context.Context, cs timeline.ChangeSet) ([]domain.Chapter, error) {
	out := make([]domain.Chapter, len(cs.Inserts))
	for i, w := range cs.Inserts {
		c := chapterFromWrite(cs.TripID, w)
		if s.geocoder != nil {
			var err error
			if c.StartPoint, err = s.locate(ctx, c.StartLocation); err != nil {
				return nil, err
			}
			if c.EndPoint, err = s.locate(ctx, c.EndLocation); err != nil {
				return nil, err
			}
		}
		out[i] = c
	}
	return out, nil
}

func (s *pgTimelineStore) locate(ctx context.Context, place string) (*domain.Point, error) {
	if strings.TrimSpace(place) == "" {
		return nil, nil
	}
	p, err := s.geocoder.Geocode(ctx, place)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func chapterFromWrite(tripID uuid.UUID, w timeline.ChapterWrite) domain.Chapter {
	return domain.Chapter{
		ID:            w.ID,
		TripID:        tripID,
		Title:         w.Title,
		Type:          w.Type,
		StartLocation: w.StartLocation,
		EndLocation:   w.EndLocation,
		StartDate:     w.StartDate,
		EndDate:       w.EndDate,
		Position:      w.Position,
	}
}
