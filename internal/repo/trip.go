// Package repo holds the Postgres access code: one file per table plus the
// TimelineStore that commits a timeline change set in one transaction.
// Everything here is SQL and row mapping; rules live in timeline and service.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/tripline/internal/domain"
)

// db is the query surface shared by *pgxpool.Pool and pgx.Tx, so tests can
// hand repos a transaction that is rolled back afterwards.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo reads and writes trips.
type TripRepo interface {
	// Create inserts trip and returns it with id and timestamps filled in.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID returns domain.ErrNotFound for an unknown id.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// Lock is GetByID with a row lock held until the surrounding
	// transaction ends. Concurrent commits to one trip queue behind it.
	Lock(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// ListPaged returns one page of trips, latest start first, and the
	// total number of trips.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// UpdateDateRange stores the range a committed timeline spans.
	UpdateDateRange(ctx context.Context, id uuid.UUID, start, end time.Time) error
}

type pgTripRepo struct {
	db db
}

// NewTripRepo returns a TripRepo over a pool or a transaction.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, name, start_date, end_date, notes, created_at, updated_at`

func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		INSERT INTO trips (name, start_date, end_date, notes)
		VALUES (@name, @start_date, @end_date, @notes)
		RETURNING ` + tripColumns

	created, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"name":       trip.Name,
		"start_date": trip.StartDate,
		"end_date":   trip.EndDate,
		"notes":      trip.Notes,
	}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", mapPgError(err))
	}
	return created, nil
}

func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	t, err := scanTrip(r.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = @id`, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: trip %s: %w", id, err)
	}
	return t, nil
}

func (r *pgTripRepo) Lock(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	t, err := scanTrip(r.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = @id FOR UPDATE`, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Lock: trip %s: %w", id, err)
	}
	return t, nil
}

func (r *pgTripRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	q := `
		SELECT ` + tripColumns + `, count(*) OVER () AS total
		FROM trips
		ORDER BY start_date DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	var (
		trips []domain.Trip
		total int64
	)
	for rows.Next() {
		t, err := scanTrip(totalScanner{rows, &total})
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: rows: %w", err)
	}

	// A page past the end has no rows to carry the window count.
	if len(trips) == 0 && p.Offset() > 0 {
		if err := r.db.QueryRow(ctx, `SELECT count(*) FROM trips`).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: count: %w", err)
		}
	}
	return trips, total, nil
}

func (r *pgTripRepo) UpdateDateRange(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	const q = `
		UPDATE trips
		SET start_date = @start_date, end_date = @end_date, updated_at = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "start_date": start, "end_date": end})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.UpdateDateRange: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.UpdateDateRange: trip %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// scanner is implemented by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// totalScanner appends a trailing window-count column to every Scan.
type totalScanner struct {
	s     scanner
	total *int64
}

func (t totalScanner) Scan(dest ...any) error {
	return t.s.Scan(append(dest, t.total)...)
}

// scanTrip reads tripColumns, in order, into a domain.Trip.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t          domain.Trip
		id         pgtype.UUID
		start, end pgtype.Date
	)
	if err := s.Scan(&id, &t.Name, &start, &end, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = id.Bytes
	t.StartDate = start.Time
	if end.Valid {
		t.EndDate = &end.Time
	}
	return t, nil
}

// Postgres SQLSTATE codes the repos translate into domain errors.
const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapPgError turns constraint violations into domain sentinels so callers
// never inspect driver types.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
	case pgCheckViolation:
		return fmt.Errorf("%w: %s", domain.ErrValidation, pgErr.ConstraintName)
	}
	return err
}
