package assignment

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"stable-scheduler/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Event)(nil),
		(*models.EventHorse)(nil),
		(*models.Registration)(nil),
		(*models.HorseAssignment)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}

	return &Store{Bun: bunDB}
}

func seedEvent(t *testing.T, s *Store, eventID string, horseIDs ...string) {
	t.Helper()
	ctx := context.Background()
	event := models.Event{
		ID:        eventID,
		Title:     "Morning Lesson",
		Start:     time.Now().Add(24 * time.Hour),
		End:       time.Now().Add(25 * time.Hour),
		CreatedAt: time.Now(),
	}
	_, err := s.Bun.NewInsert().Model(&event).Exec(ctx)
	require.NoError(t, err)

	for _, horseID := range horseIDs {
		eh := models.EventHorse{EventID: eventID, HorseID: horseID}
		_, err := s.Bun.NewInsert().Model(&eh).Exec(ctx)
		require.NoError(t, err)
	}
}

func seedRegistration(t *testing.T, s *Store, eventID, userID string) {
	t.Helper()
	reg := models.Registration{EventID: eventID, UserID: userID, Role: "sideWalkers", CreatedAt: time.Now()}
	_, err := s.Bun.NewInsert().Model(&reg).Exec(context.Background())
	require.NoError(t, err)
}

func TestAssignAndReplace(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	seedEvent(t, store, "ev1", "h1", "h2")
	seedRegistration(t, store, "ev1", "v1")

	require.NoError(t, svc.Assign(ctx, "ev1", "v1", "h1"))

	horse, err := svc.HorseOf(ctx, "ev1", "v1")
	require.NoError(t, err)
	assert.Equal(t, "h1", horse)

	// Picking another horse replaces, never appends.
	require.NoError(t, svc.Assign(ctx, "ev1", "v1", "h2"))

	horse, err = svc.HorseOf(ctx, "ev1", "v1")
	require.NoError(t, err)
	assert.Equal(t, "h2", horse)

	assignments, err := svc.ForEvent(ctx, "ev1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "h2", assignments[0].HorseID)
}

func TestAssignNoneClears(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	seedEvent(t, store, "ev1", "h1")
	seedRegistration(t, store, "ev1", "v1")

	require.NoError(t, svc.Assign(ctx, "ev1", "v1", "h1"))
	require.NoError(t, svc.Assign(ctx, "ev1", "v1", HorseNone))

	horse, err := svc.HorseOf(ctx, "ev1", "v1")
	require.NoError(t, err)
	assert.Empty(t, horse)
}

func TestAssignNoneWithoutAssignmentIsNoop(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	seedEvent(t, store, "ev1")

	// Clearing an assignment that never existed succeeds quietly.
	assert.NoError(t, svc.Assign(ctx, "ev1", "v1", HorseNone))
	assert.NoError(t, svc.Assign(ctx, "ev1", "v1", ""))
}

func TestAssignEventNotFound(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, nil)

	err := svc.Assign(context.Background(), "missing", "v1", "h1")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestAssignHorseNotInPool(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	seedEvent(t, store, "ev1", "h1")
	seedRegistration(t, store, "ev1", "v1")

	err := svc.Assign(ctx, "ev1", "v1", "h9")
	assert.ErrorIs(t, err, ErrHorseNotInPool)
}

func TestAssignVolunteerNotRegistered(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	seedEvent(t, store, "ev1", "h1")

	err := svc.Assign(ctx, "ev1", "v1", "h1")
	assert.ErrorIs(t, err, ErrVolunteerNotRegistered)
}

func TestHorseOfWithoutAssignment(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, nil)

	seedEvent(t, store, "ev1")

	horse, err := svc.HorseOf(context.Background(), "ev1", "v1")
	require.NoError(t, err)
	assert.Empty(t, horse)
}

func TestForEventMissingEvent(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, nil)

	_, err := svc.ForEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}
