// Package provisioning creates calendar events, one occurrence per requested
// date, after validating every selected horse against every occurrence date.
package provisioning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"stable-scheduler/internal/cooldown"
	"stable-scheduler/internal/logger"
	"stable-scheduler/internal/models"
	"stable-scheduler/internal/roles"
)

// Input describes a single- or multi-date event series sharing one title,
// time of day, duration, horse pool, instructor, and role requirements.
type Input struct {
	Title           string         `json:"title"`
	Dates           []time.Time    `json:"dates"`
	StartHour       int            `json:"startHour"`
	StartMinute     int            `json:"startMinute"`
	DurationMinutes int            `json:"durationMinutes"`
	HorseIDs        []string       `json:"horseIds"`
	InstructorID    string         `json:"instructorId"`
	Required        map[string]int `json:"required"`
	IsPrivate       bool           `json:"isPrivate"`
}

type StoreLayer interface {
	HorsesByIDs(ctx context.Context, ids []string) ([]models.Horse, error)
	InstructorExists(ctx context.Context, userID string) (bool, error)
	CreateBatch(ctx context.Context, events []models.Event, eventRoles []models.EventRole, eventHorses []models.EventHorse) error
}

type Service struct {
	Store   StoreLayer
	Catalog *roles.Catalog
	Logger  *logger.Logger
	Now     func() time.Time
}

func NewService(store StoreLayer, catalog *roles.Catalog, log *logger.Logger) *Service {
	return &Service{Store: store, Catalog: catalog, Logger: log, Now: time.Now}
}

// CreateEvents provisions one event per requested date. The whole batch is
// validated against horse cooldowns first and commits in one transaction:
// a conflict on any date means zero events are created.
func (s *Service) CreateEvents(ctx context.Context, in Input) ([]models.Event, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	starts := make([]time.Time, 0, len(in.Dates))
	for _, d := range dedupeDates(in.Dates) {
		starts = append(starts, time.Date(d.Year(), d.Month(), d.Day(), in.StartHour, in.StartMinute, 0, 0, d.Location()))
	}

	horses, err := s.Store.HorsesByIDs(ctx, in.HorseIDs)
	if err != nil {
		return nil, err
	}
	if len(horses) != len(dedupe(in.HorseIDs)) {
		return nil, &ValidationError{Fields: map[string]string{"horseIds": "one or more horses do not exist"}}
	}

	windows := make([]cooldown.Window, 0, len(horses))
	for _, h := range horses {
		if !h.Cooldown {
			continue
		}
		windows = append(windows, cooldown.Window{Name: h.Name, Start: h.CooldownStart, End: h.CooldownEnd})
	}
	if conflicts := cooldown.ConflictsForSet(windows, starts); len(conflicts) > 0 {
		summary := cooldown.Summary(conflicts)
		s.logProvision("REJECT", fmt.Sprintf("cooldown conflicts: %s", summary))
		return nil, &ConflictError{Conflicts: conflicts, Summary: summary}
	}

	if in.InstructorID != "" {
		ok, err := s.Store.InstructorExists(ctx, in.InstructorID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ValidationError{Fields: map[string]string{"instructorId": "instructor does not exist"}}
		}
	}

	now := s.now()
	duration := time.Duration(in.DurationMinutes) * time.Minute

	events := make([]models.Event, 0, len(starts))
	var eventRoles []models.EventRole
	var eventHorses []models.EventHorse
	for _, start := range starts {
		event := models.Event{
			ID:           uuid.NewString(),
			Title:        strings.TrimSpace(in.Title),
			Start:        start,
			End:          start.Add(duration),
			IsPrivate:    in.IsPrivate,
			InstructorID: in.InstructorID,
			CreatedAt:    now,
		}
		events = append(events, event)

		// Every catalog role gets a requirement row, defaulting to zero, so
		// registration capacity checks never depend on a missing row.
		for _, role := range s.Catalog.List() {
			eventRoles = append(eventRoles, models.EventRole{
				EventID:  event.ID,
				Role:     role.Key,
				Required: in.Required[role.Key],
			})
		}
		for _, horseID := range dedupe(in.HorseIDs) {
			eventHorses = append(eventHorses, models.EventHorse{
				EventID: event.ID,
				HorseID: horseID,
			})
		}
	}

	if err := s.Store.CreateBatch(ctx, events, eventRoles, eventHorses); err != nil {
		return nil, fmt.Errorf("create event batch: %w", err)
	}

	s.logProvision("CREATE", fmt.Sprintf("created %d occurrence(s) of %q", len(events), in.Title))
	return events, nil
}

func (s *Service) validate(in Input) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if len(in.Dates) == 0 {
		fields["dates"] = "at least one date is required"
	}
	if in.DurationMinutes <= 0 {
		fields["durationMinutes"] = "duration must be positive"
	}
	if in.StartHour < 0 || in.StartHour > 23 {
		fields["startHour"] = "start hour must be between 0 and 23"
	}
	if in.StartMinute < 0 || in.StartMinute > 59 {
		fields["startMinute"] = "start minute must be between 0 and 59"
	}
	for key, count := range in.Required {
		if _, ok := s.Catalog.Lookup(key); !ok {
			fields["required."+key] = "unknown volunteer role"
			continue
		}
		if count < 0 {
			fields["required."+key] = "required count cannot be negative"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logProvision(action, message string) {
	if s.Logger != nil {
		s.Logger.LogProvision(action, message)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func dedupeDates(dates []time.Time) []time.Time {
	seen := make(map[string]bool, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		key := d.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}
