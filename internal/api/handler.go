// Package api exposes the scheduling core over HTTP. Handlers stay thin:
// decode, call the service, map domain errors to status codes. The web UI
// owning sessions, auth, and rendering sits in front of this API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"stable-scheduler/internal/assignment"
	"stable-scheduler/internal/horses"
	"stable-scheduler/internal/logger"
	"stable-scheduler/internal/provisioning"
	"stable-scheduler/internal/registration"
	regdb "stable-scheduler/internal/registration/db"
	"stable-scheduler/internal/utils"
)

type Handler struct {
	Registration *registration.Service
	Assignment   *assignment.Service
	Provisioning *provisioning.Service
	Horses       *horses.Service
	Events       *provisioning.Store
	Logger       *logger.Logger
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvents)
		r.Get("/", h.ListEvents)
		r.Route("/{eventID}", func(r chi.Router) {
			r.Post("/registrations", h.Register)
			r.Delete("/registrations/{userID}", h.Unregister)
			r.Get("/registrations/{userID}", h.RegistrationStatus)
			r.Put("/assignments/{userID}", h.AssignHorse)
			r.Get("/assignments", h.ListAssignments)
		})
	})

	r.Post("/broadcasts", h.Broadcast)

	r.Route("/horses", func(r chi.Router) {
		r.Post("/", h.CreateHorse)
		r.Get("/", h.ListHorses)
		r.Get("/{horseID}", h.GetHorse)
		r.Delete("/{horseID}", h.DeleteHorse)
		r.Put("/{horseID}/cooldown", h.SetCooldown)
	})

	return r
}

type createEventsRequest struct {
	Title           string         `json:"title"`
	Dates           []string       `json:"dates"`     // "2006-01-02"
	StartTime       string         `json:"startTime"` // "15:04"
	DurationMinutes int            `json:"durationMinutes"`
	HorseIDs        []string       `json:"horseIds"`
	InstructorID    string         `json:"instructorId"`
	Required        map[string]int `json:"required"`
	IsPrivate       bool           `json:"isPrivate"`
}

func (h *Handler) CreateEvents(w http.ResponseWriter, r *http.Request) {
	var req createEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	dates := make([]time.Time, 0, len(req.Dates))
	for _, d := range req.Dates {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid date", d))
			return
		}
		dates = append(dates, parsed)
	}

	startHour, startMinute := 0, 0
	if req.StartTime != "" {
		parsed, err := time.Parse("15:04", req.StartTime)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid start time", req.StartTime))
			return
		}
		startHour, startMinute = parsed.Hour(), parsed.Minute()
	}

	events, err := h.Provisioning.CreateEvents(r.Context(), provisioning.Input{
		Title:           req.Title,
		Dates:           dates,
		StartHour:       startHour,
		StartMinute:     startMinute,
		DurationMinutes: req.DurationMinutes,
		HorseIDs:        req.HorseIDs,
		InstructorID:    req.InstructorID,
		Required:        req.Required,
		IsPrivate:       req.IsPrivate,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, utils.SuccessResponse("events created", events))
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid range", err.Error()))
		return
	}
	events, err := h.Events.EventsForRange(r.Context(), from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("events", events))
}

type registerRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	outcome, err := h.Registration.Register(r.Context(), eventID, req.UserID, req.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponseWithWarnings("registered", outcome, outcome.Warnings))
}

func (h *Handler) Unregister(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	userID := chi.URLParam(r, "userID")

	outcome, err := h.Registration.Unregister(r.Context(), eventID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponseWithWarnings("unregistered", outcome, outcome.Warnings))
}

type broadcastRequest struct {
	Message string `json:"message"`
}

func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	if err := h.Registration.Broadcast(r.Context(), req.Message); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, utils.SuccessResponse("broadcast queued", nil))
}

func (h *Handler) RegistrationStatus(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	userID := chi.URLParam(r, "userID")

	status, err := h.Registration.StatusOf(r.Context(), eventID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("registration status", status))
}

type assignHorseRequest struct {
	HorseID string `json:"horseId"` // "none" or "" clears the assignment
}

func (h *Handler) AssignHorse(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	userID := chi.URLParam(r, "userID")
	var req assignHorseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	if err := h.Assignment.Assign(r.Context(), eventID, userID, req.HorseID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("horse assignment updated", nil))
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	assignments, err := h.Assignment.ForEvent(r.Context(), eventID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("assignments", assignments))
}

type createHorseRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

func (h *Handler) CreateHorse(w http.ResponseWriter, r *http.Request) {
	var req createHorseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	horse, err := h.Horses.Create(r.Context(), req.Name, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, utils.SuccessResponse("horse created", horse))
}

func (h *Handler) ListHorses(w http.ResponseWriter, r *http.Request) {
	list, err := h.Horses.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("horses", list))
}

func (h *Handler) GetHorse(w http.ResponseWriter, r *http.Request) {
	horse, err := h.Horses.Get(r.Context(), chi.URLParam(r, "horseID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("horse", horse))
}

func (h *Handler) DeleteHorse(w http.ResponseWriter, r *http.Request) {
	if err := h.Horses.Delete(r.Context(), chi.URLParam(r, "horseID")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("horse deleted", nil))
}

type cooldownRequest struct {
	Start *string `json:"start"` // "2006-01-02", null clears
	End   *string `json:"end"`
}

func (h *Handler) SetCooldown(w http.ResponseWriter, r *http.Request) {
	horseID := chi.URLParam(r, "horseID")
	var req cooldownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	var in horses.CooldownInput
	if req.Start != nil {
		parsed, err := time.Parse("2006-01-02", *req.Start)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid start date", *req.Start))
			return
		}
		in.Start = &parsed
	}
	if req.End != nil {
		parsed, err := time.Parse("2006-01-02", *req.End)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid end date", *req.End))
			return
		}
		in.End = &parsed
	}

	result, err := h.Horses.SetCooldown(r.Context(), horseID, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("cooldown updated", result))
}

// writeError maps domain errors onto HTTP status codes. Anything unmapped is
// a storage or programming failure and comes back as a 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var validationErr *provisioning.ValidationError
	var conflictErr *provisioning.ConflictError
	var horseValidationErr *horses.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("validation failed", validationErr.Error()))
	case errors.As(err, &horseValidationErr):
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("validation failed", horseValidationErr.Error()))
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("cooldown conflict", conflictErr.Summary))
	case errors.Is(err, regdb.ErrRoleFull):
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("role full", err.Error()))
	case errors.Is(err, regdb.ErrAlreadyRegistered):
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("already registered", err.Error()))
	case errors.Is(err, regdb.ErrNotRegistered):
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("not registered", err.Error()))
	case errors.Is(err, registration.ErrNotEligible):
		writeJSON(w, http.StatusForbidden, utils.ErrorResponse("not eligible", err.Error()))
	case errors.Is(err, registration.ErrEventPassed):
		writeJSON(w, http.StatusGone, utils.ErrorResponse("event passed", err.Error()))
	case errors.Is(err, registration.ErrUnknownRole):
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("unknown role", err.Error()))
	case errors.Is(err, registration.ErrEmptyBroadcast):
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("empty broadcast", err.Error()))
	case errors.Is(err, registration.ErrDispatchDisabled):
		writeJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("dispatch disabled", err.Error()))
	case errors.Is(err, regdb.ErrEventNotFound),
		errors.Is(err, regdb.ErrUserNotFound),
		errors.Is(err, assignment.ErrEventNotFound),
		errors.Is(err, horses.ErrHorseNotFound):
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("not found", err.Error()))
	case errors.Is(err, assignment.ErrHorseNotInPool),
		errors.Is(err, assignment.ErrVolunteerNotRegistered):
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("invalid assignment", err.Error()))
	default:
		if h.Logger != nil {
			h.Logger.Error("API", err.Error())
		}
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("internal error", err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func parseRange(r *http.Request) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, nil, err
		}
		from = &parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, nil, err
		}
		to = &parsed
	}
	return from, to, nil
}
