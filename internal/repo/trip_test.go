package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/repo"
	"github.com/pkordes/tripline/testutil"
)

func newTrip(name string, start time.Time, days int) domain.Trip {
	end := start.AddDate(0, 0, days-1)
	return domain.Trip{Name: name, StartDate: start, EndDate: &end, Notes: "camper van"}
}

func TestTripRepo_CreateAndGet(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))
	ctx := context.Background()

	in := newTrip("Pacific coast", day(1), 14)
	created, err := r.Create(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := r.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Notes, got.Notes)
	assert.True(t, got.StartDate.Equal(in.StartDate))
	require.NotNil(t, got.EndDate)
	assert.True(t, got.EndDate.Equal(*in.EndDate))
}

func TestTripRepo_Create_OpenEnded(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))

	created, err := r.Create(context.Background(), domain.Trip{Name: "Someday", StartDate: day(1)})

	require.NoError(t, err)
	assert.Nil(t, created.EndDate)
}

func TestTripRepo_Create_EndBeforeStart(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))
	end := day(1)

	_, err := r.Create(context.Background(), domain.Trip{Name: "Backwards", StartDate: day(5), EndDate: &end})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTripRepo_UnknownID(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))
	ctx := context.Background()
	ghost := uuid.New()

	_, err := r.GetByID(ctx, ghost)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = r.Lock(ctx, ghost)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = r.UpdateDateRange(ctx, ghost, day(1), day(2))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTripRepo_Lock(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))
	ctx := context.Background()

	created, err := r.Create(ctx, newTrip("Alps", day(3), 4))
	require.NoError(t, err)

	got, err := r.Lock(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestTripRepo_ListPaged(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))
	ctx := context.Background()

	for i, name := range []string{"Spring", "Summer", "Autumn"} {
		_, err := r.Create(ctx, newTrip(name, day(1).AddDate(0, 3*i, 0), 5))
		require.NoError(t, err)
	}

	page, total, err := r.ListPaged(ctx, domain.PaginationParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.GreaterOrEqual(t, total, int64(3))
	assert.False(t, page[0].StartDate.Before(page[1].StartDate), "latest start first")

	beyond, beyondTotal, err := r.ListPaged(ctx, domain.PaginationParams{Page: 1000, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)
	assert.Equal(t, total, beyondTotal, "total is reported past the last page")
}

func TestTripRepo_UpdateDateRange(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))
	ctx := context.Background()

	created, err := r.Create(ctx, newTrip("Lakes", day(1), 3))
	require.NoError(t, err)

	require.NoError(t, r.UpdateDateRange(ctx, created.ID, day(10), day(20)))

	got, err := r.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(day(10)))
	require.NotNil(t, got.EndDate)
	assert.True(t, got.EndDate.Equal(day(20)))
}
