package provisioning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stable-scheduler/internal/models"
	"stable-scheduler/internal/roles"
)

// MockStore is an in-memory implementation of the StoreLayer interface.
type MockStore struct {
	horses      map[string]models.Horse
	instructors map[string]bool

	createdEvents []models.Event
	createdRoles  []models.EventRole
	createdHorses []models.EventHorse

	shouldFailOn  string
	errorToReturn error
}

func NewMockStore() *MockStore {
	return &MockStore{
		horses:      make(map[string]models.Horse),
		instructors: make(map[string]bool),
	}
}

func (m *MockStore) HorsesByIDs(_ context.Context, ids []string) ([]models.Horse, error) {
	if m.shouldFailOn == "HorsesByIDs" {
		return nil, m.errorToReturn
	}
	seen := make(map[string]bool, len(ids))
	var out []models.Horse
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if h, exists := m.horses[id]; exists {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *MockStore) InstructorExists(_ context.Context, userID string) (bool, error) {
	return m.instructors[userID], nil
}

func (m *MockStore) CreateBatch(_ context.Context, events []models.Event, eventRoles []models.EventRole, eventHorses []models.EventHorse) error {
	if m.shouldFailOn == "CreateBatch" {
		return m.errorToReturn
	}
	m.createdEvents = append(m.createdEvents, events...)
	m.createdRoles = append(m.createdRoles, eventRoles...)
	m.createdHorses = append(m.createdHorses, eventHorses...)
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func validInput() Input {
	return Input{
		Title:           "Spring Lesson",
		Dates:           []time.Time{date(2026, time.June, 1), date(2026, time.June, 8)},
		StartHour:       9,
		StartMinute:     30,
		DurationMinutes: 60,
		HorseIDs:        []string{"h1", "h2"},
		Required:        map[string]int{roles.SideWalkers: 2, roles.HorseLeaders: 1},
	}
}

func TestCreateEventsMultiDate(t *testing.T) {
	store := NewMockStore()
	store.horses["h1"] = models.Horse{ID: "h1", Name: "Bella"}
	store.horses["h2"] = models.Horse{ID: "h2", Name: "Comet"}

	svc := NewService(store, roles.Default(), nil)

	events, err := svc.CreateEvents(context.Background(), validInput())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Spring Lesson", events[0].Title)
	assert.Equal(t, 9, events[0].Start.Hour())
	assert.Equal(t, 30, events[0].Start.Minute())
	assert.Equal(t, events[0].Start.Add(60*time.Minute), events[0].End)
	assert.NotEqual(t, events[0].ID, events[1].ID)

	// Every catalog role gets a requirement row per event, absent keys as 0.
	assert.Len(t, store.createdRoles, 2*len(roles.Default().List()))
	required := make(map[string]int)
	for _, er := range store.createdRoles {
		if er.EventID == events[0].ID {
			required[er.Role] = er.Required
		}
	}
	assert.Equal(t, 2, required[roles.SideWalkers])
	assert.Equal(t, 1, required[roles.HorseLeaders])
	assert.Equal(t, 0, required[roles.CleaningCrew])

	// Horse pool linked to each occurrence.
	assert.Len(t, store.createdHorses, 4)
}

func TestCreateEventsCooldownConflictCreatesNothing(t *testing.T) {
	// Bella is on cooldown covering the second date only; the whole batch
	// must be rejected with zero events created.
	store := NewMockStore()
	store.horses["h1"] = models.Horse{
		ID:            "h1",
		Name:          "Bella",
		Cooldown:      true,
		CooldownStart: ptr(date(2026, time.June, 7)),
		CooldownEnd:   ptr(date(2026, time.June, 9)),
	}
	store.horses["h2"] = models.Horse{ID: "h2", Name: "Comet"}

	svc := NewService(store, roles.Default(), nil)

	_, err := svc.CreateEvents(context.Background(), validInput())

	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, "Bella", conflictErr.Conflicts[0].HorseName)
	require.Len(t, conflictErr.Conflicts[0].Dates, 1)
	assert.Equal(t, date(2026, time.June, 8), conflictErr.Conflicts[0].Dates[0].Truncate(24*time.Hour))
	assert.Contains(t, conflictErr.Summary, "Bella (Jun 8, 2026)")

	assert.Empty(t, store.createdEvents)
	assert.Empty(t, store.createdRoles)
	assert.Empty(t, store.createdHorses)
}

func TestCreateEventsUnknownHorse(t *testing.T) {
	store := NewMockStore()
	store.horses["h1"] = models.Horse{ID: "h1", Name: "Bella"}

	svc := NewService(store, roles.Default(), nil)

	_, err := svc.CreateEvents(context.Background(), validInput())

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "horseIds")
	assert.Empty(t, store.createdEvents)
}

func TestCreateEventsUnknownInstructor(t *testing.T) {
	store := NewMockStore()
	store.horses["h1"] = models.Horse{ID: "h1", Name: "Bella"}
	store.horses["h2"] = models.Horse{ID: "h2", Name: "Comet"}

	svc := NewService(store, roles.Default(), nil)

	in := validInput()
	in.InstructorID = "ghost"
	_, err := svc.CreateEvents(context.Background(), in)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "instructorId")
}

func TestCreateEventsValidation(t *testing.T) {
	svc := NewService(NewMockStore(), roles.Default(), nil)

	in := Input{
		Title:           "   ",
		Dates:           nil,
		StartHour:       24,
		StartMinute:     -1,
		DurationMinutes: 0,
		Required:        map[string]int{"barnCrew": 1, roles.SideWalkers: -2},
	}
	_, err := svc.CreateEvents(context.Background(), in)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "title")
	assert.Contains(t, validationErr.Fields, "dates")
	assert.Contains(t, validationErr.Fields, "startHour")
	assert.Contains(t, validationErr.Fields, "startMinute")
	assert.Contains(t, validationErr.Fields, "durationMinutes")
	assert.Contains(t, validationErr.Fields, "required.barnCrew")
	assert.Contains(t, validationErr.Fields, "required."+roles.SideWalkers)
}

func TestCreateEventsDeduplicatesDatesAndHorses(t *testing.T) {
	store := NewMockStore()
	store.horses["h1"] = models.Horse{ID: "h1", Name: "Bella"}

	svc := NewService(store, roles.Default(), nil)

	in := validInput()
	in.Dates = []time.Time{date(2026, time.June, 1), date(2026, time.June, 1)}
	in.HorseIDs = []string{"h1", "h1"}
	events, err := svc.CreateEvents(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Len(t, store.createdHorses, 1)
}

func TestCreateEventsBatchFailureSurfaces(t *testing.T) {
	store := NewMockStore()
	store.horses["h1"] = models.Horse{ID: "h1", Name: "Bella"}
	store.horses["h2"] = models.Horse{ID: "h2", Name: "Comet"}
	store.shouldFailOn = "CreateBatch"
	store.errorToReturn = errors.New("tx aborted")

	svc := NewService(store, roles.Default(), nil)

	_, err := svc.CreateEvents(context.Background(), validInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create event batch")
}
