package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/tripline/internal/domain"
)

// ChapterRepo defines the persistence operations for Chapters.
// All write operations are scoped by tripID to enforce ownership.
type ChapterRepo interface {
	// Create inserts a new chapter and returns the persisted record.
	Create(ctx context.Context, c domain.Chapter) (domain.Chapter, error)

	// ListByTripID returns all chapters of a trip ordered by position.
	ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.Chapter, error)

	// Update overwrites the fields a timeline edit can change (title, dates
	// and position) of a chapter scoped to c.TripID.
	// Returns domain.ErrNotFound if no such chapter exists under that trip.
	Update(ctx context.Context, c domain.Chapter) (domain.Chapter, error)

	// Delete removes a chapter by ID, scoped to the given tripID.
	// Returns domain.ErrNotFound if no such chapter exists under that trip.
	Delete(ctx context.Context, tripID, chapterID uuid.UUID) error
}

// pgChapterRepo is the Postgres implementation of ChapterRepo.
type pgChapterRepo struct {
	db db
}

// NewChapterRepo constructs a ChapterRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewChapterRepo(db db) ChapterRepo {
	return &pgChapterRepo{db: db}
}

const chapterColumns = `
	id, trip_id, title, chapter_type, start_location, end_location,
	start_date, end_date, position, start_lat, start_lng, end_lat, end_lng,
	created_at, updated_at`

func (r *pgChapterRepo) Create(ctx context.Context, c domain.Chapter) (domain.Chapter, error) {
	q := `
		INSERT INTO chapters (trip_id, title, chapter_type, start_location, end_location,
		                      start_date, end_date, position, start_lat, start_lng, end_lat, end_lng)
		VALUES (@trip_id, @title, @chapter_type, @start_location, @end_location,
		        @start_date, @end_date, @position, @start_lat, @start_lng, @end_lat, @end_lng)
		RETURNING ` + chapterColumns

	args := pgx.NamedArgs{
		"trip_id":        c.TripID,
		"title":          c.Title,
		"chapter_type":   string(c.Type),
		"start_location": c.StartLocation,
		"end_location":   c.EndLocation,
		"start_date":     c.StartDate,
		"end_date":       c.EndDate,
		"position":       c.Position,
	}
	setPoint(args, "start", c.StartPoint)
	setPoint(args, "end", c.EndPoint)

	result, err := scanChapter(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Chapter{}, fmt.Errorf("repo.ChapterRepo.Create: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgChapterRepo) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.Chapter, error) {
	q := `SELECT ` + chapterColumns + `
		FROM chapters
		WHERE trip_id = @trip_id
		ORDER BY position`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.ChapterRepo.ListByTripID: %w", err)
	}
	defer rows.Close()

	var chapters []domain.Chapter
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ChapterRepo.ListByTripID: scan: %w", err)
		}
		chapters = append(chapters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ChapterRepo.ListByTripID: rows: %w", err)
	}
	return chapters, nil
}

func (r *pgChapterRepo) Update(ctx context.Context, c domain.Chapter) (domain.Chapter, error) {
	q := `
		UPDATE chapters
		SET title      = @title,
		    start_date = @start_date,
		    end_date   = @end_date,
		    position   = @position,
		    updated_at = now()
		WHERE id = @id AND trip_id = @trip_id
		RETURNING ` + chapterColumns

	args := pgx.NamedArgs{
		"id":         c.ID,
		"trip_id":    c.TripID,
		"title":      c.Title,
		"start_date": c.StartDate,
		"end_date":   c.EndDate,
		"position":   c.Position,
	}

	result, err := scanChapter(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Chapter{}, fmt.Errorf("repo.ChapterRepo.Update: chapter %s: %w", c.ID, err)
		}
		return domain.Chapter{}, fmt.Errorf("repo.ChapterRepo.Update: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgChapterRepo) Delete(ctx context.Context, tripID, chapterID uuid.UUID) error {
	const q = `DELETE FROM chapters WHERE id = @id AND trip_id = @trip_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": chapterID, "trip_id": tripID})
	if err != nil {
		return fmt.Errorf("repo.ChapterRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ChapterRepo.Delete: chapter %s: %w", chapterID, domain.ErrNotFound)
	}
	return nil
}

// setPoint adds <prefix>_lat and <prefix>_lng to args; nil becomes NULL.
func setPoint(args pgx.NamedArgs, prefix string, p *domain.Point) {
	if p == nil {
		args[prefix+"_lat"] = nil
		args[prefix+"_lng"] = nil
		return
	}
	args[prefix+"_lat"] = p.Lat
	args[prefix+"_lng"] = p.Lng
}

// scanChapter maps a single database row into a domain.Chapter.
func scanChapter(s scanner) (domain.Chapter, error) {
	var (
		c                  domain.Chapter
		id, tripID         pgtype.UUID
		typ                string
		start, end         pgtype.Date
		startLat, startLng pgtype.Float8
		endLat, endLng     pgtype.Float8
	)

	err := s.Scan(&id, &tripID, &c.Title, &typ, &c.StartLocation, &c.EndLocation,
		&start, &end, &c.Position, &startLat, &startLng, &endLat, &endLng,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Chapter{}, domain.ErrNotFound
		}
		return domain.Chapter{}, err
	}

	c.ID = uuid.UUID(id.Bytes)
	c.TripID = uuid.UUID(tripID.Bytes)
	c.Type = domain.ChapterType(typ)
	c.StartDate = start.Time
	c.EndDate = end.Time
	if startLat.Valid && startLng.Valid {
		c.StartPoint = &domain.Point{Lat: startLat.Float64, Lng: startLng.Float64}
	}
	if endLat.Valid && endLng.Valid {
		c.EndPoint = &domain.Point{Lat: endLat.Float64, Lng: endLng.Float64}
	}
	return c, nil
}
