package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"stable-scheduler/internal/assignment"
	"stable-scheduler/internal/horses"
	"stable-scheduler/internal/models"
	"stable-scheduler/internal/notify"
	"stable-scheduler/internal/provisioning"
	"stable-scheduler/internal/registration"
	regdb "stable-scheduler/internal/registration/db"
	"stable-scheduler/internal/roles"
	"stable-scheduler/internal/utils"
)

func setupHandler(t *testing.T) (*Handler, *bun.DB) {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Event)(nil),
		(*models.EventRole)(nil),
		(*models.EventHorse)(nil),
		(*models.Registration)(nil),
		(*models.User)(nil),
		(*models.Horse)(nil),
		(*models.HorseAssignment)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}

	catalog := roles.Default()
	eventStore := &provisioning.Store{Bun: bunDB}

	h := &Handler{
		Registration: registration.NewService(&regdb.DB{Bun: bunDB}, catalog, notify.NopNotifier{}, nil, nil, nil, nil),
		Assignment:   assignment.NewService(&assignment.Store{Bun: bunDB}, nil),
		Provisioning: provisioning.NewService(eventStore, catalog, nil),
		Horses:       horses.NewService(&horses.Store{Bun: bunDB}, nil),
		Events:       eventStore,
	}
	return h, bunDB
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func seedUser(t *testing.T, bunDB *bun.DB, id string) {
	t.Helper()
	user := models.User{ID: id, Email: id + "@example.org", CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(&user).Exec(context.Background())
	require.NoError(t, err)
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	h, bunDB := setupHandler(t)
	router := h.Routes()
	seedUser(t, bunDB, "v1")

	// Create a horse first so the event can reference it.
	rec := doJSON(t, router, http.MethodPost, "/horses", map[string]string{"name": "Bella"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var horse models.Horse
	resp := decodeResponse(t, rec)
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &horse))

	// Provision a two-date series.
	rec = doJSON(t, router, http.MethodPost, "/events", map[string]interface{}{
		"title":           "Morning Lesson",
		"dates":           []string{"2099-06-01", "2099-06-08"},
		"startTime":       "09:30",
		"durationMinutes": 60,
		"horseIds":        []string{horse.ID},
		"required":        map[string]int{roles.SideWalkers: 1},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var events []models.Event
	resp = decodeResponse(t, rec)
	raw, err = json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &events))
	require.Len(t, events, 2)
	eventID := events[0].ID

	// Volunteer takes a side walker slot.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/events/%s/registrations", eventID),
		map[string]string{"userId": "v1", "role": roles.SideWalkers})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The slot is full now.
	seedUser(t, bunDB, "v2")
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/events/%s/registrations", eventID),
		map[string]string{"userId": "v2", "role": roles.SideWalkers})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Status reflects the registration.
	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/events/%s/registrations/v1", eventID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"registered":true`)

	// Assign the horse, then clear it.
	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/events/%s/assignments/v1", eventID),
		map[string]string{"horseId": horse.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/events/%s/assignments", eventID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), horse.ID)

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/events/%s/assignments/v1", eventID),
		map[string]string{"horseId": "none"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Leave the event again.
	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/events/%s/registrations/v1", eventID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/events/%s/registrations/v1", eventID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateEventsCooldownConflictStatus(t *testing.T) {
	h, bunDB := setupHandler(t)
	router := h.Routes()

	start := time.Date(2099, time.June, 7, 0, 0, 0, 0, time.UTC)
	end := time.Date(2099, time.June, 9, 0, 0, 0, 0, time.UTC)
	horse := models.Horse{
		ID:            "h1",
		Name:          "Bella",
		Cooldown:      true,
		CooldownStart: &start,
		CooldownEnd:   &end,
		CreatedAt:     time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&horse).Exec(context.Background())
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/events", map[string]interface{}{
		"title":           "Morning Lesson",
		"dates":           []string{"2099-06-08"},
		"startTime":       "09:30",
		"durationMinutes": 60,
		"horseIds":        []string{"h1"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bella")

	// Nothing was created.
	count, err := bunDB.NewSelect().Model((*models.Event)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestErrorStatusMapping(t *testing.T) {
	h, bunDB := setupHandler(t)
	router := h.Routes()
	ctx := context.Background()

	rec := doJSON(t, router, http.MethodPost, "/events/missing/registrations",
		map[string]string{"userId": "v1", "role": roles.SideWalkers})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/horses/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/events", map[string]interface{}{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Ineligible role request on a real event.
	seedUser(t, bunDB, "v1")
	event := models.Event{
		ID:        "ev1",
		Title:     "Lesson",
		Start:     time.Now().Add(24 * time.Hour),
		End:       time.Now().Add(25 * time.Hour),
		CreatedAt: time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&event).Exec(ctx)
	require.NoError(t, err)

	rec = doJSON(t, router, http.MethodPost, "/events/ev1/registrations",
		map[string]string{"userId": "v1", "role": roles.HorseLeaders})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/events/ev1/registrations",
		map[string]string{"userId": "v1", "role": "barnCrew"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Past event is read-only.
	past := models.Event{
		ID:        "ev-past",
		Title:     "Old Lesson",
		Start:     time.Now().Add(-25 * time.Hour),
		End:       time.Now().Add(-24 * time.Hour),
		CreatedAt: time.Now(),
	}
	_, err = bunDB.NewInsert().Model(&past).Exec(ctx)
	require.NoError(t, err)

	rec = doJSON(t, router, http.MethodPost, "/events/ev-past/registrations",
		map[string]string{"userId": "v1", "role": roles.SideWalkers})
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestBroadcastOverHTTP(t *testing.T) {
	h, _ := setupHandler(t)
	router := h.Routes()

	rec := doJSON(t, router, http.MethodPost, "/broadcasts", map[string]string{"message": "barn closed Friday"})
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/broadcasts", map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetCooldownOverHTTP(t *testing.T) {
	h, bunDB := setupHandler(t)
	router := h.Routes()

	horse := models.Horse{ID: "h1", Name: "Bella", CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(&horse).Exec(context.Background())
	require.NoError(t, err)

	start, end := "2099-06-09", "2099-06-12"
	rec := doJSON(t, router, http.MethodPut, "/horses/h1/cooldown",
		map[string]*string{"start": &start, "end": &end})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"cooldown":true`)

	// End before start is rejected.
	rec = doJSON(t, router, http.MethodPut, "/horses/h1/cooldown",
		map[string]*string{"start": &end, "end": &start})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
