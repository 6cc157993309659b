// Package horses owns the horse records and their cooldown windows. Editing
// a window also repairs future events that now conflict: the horse is
// disconnected from them (the events stay), best effort.
package horses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"stable-scheduler/internal/cooldown"
	"stable-scheduler/internal/logger"
	"stable-scheduler/internal/models"
)

type StoreLayer interface {
	Get(ctx context.Context, id string) (*models.Horse, error)
	List(ctx context.Context) ([]models.Horse, error)
	Create(ctx context.Context, horse models.Horse) error
	Delete(ctx context.Context, id string) error
	UpdateCooldown(ctx context.Context, horse *models.Horse) error
	FutureEventsFor(ctx context.Context, horseID string, after time.Time) ([]models.Event, error)
	Disconnect(ctx context.Context, eventID, horseID string) error
}

type Service struct {
	Store  StoreLayer
	Logger *logger.Logger
	Now    func() time.Time
}

func NewService(store StoreLayer, log *logger.Logger) *Service {
	return &Service{Store: store, Logger: log, Now: time.Now}
}

// CooldownInput sets or clears a horse's cooldown window. Both dates set
// means a window; both nil clears it.
type CooldownInput struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// CooldownResult reports the updated horse and the future events the horse
// was evicted from because their start falls inside the new window.
type CooldownResult struct {
	Horse         *models.Horse  `json:"horse"`
	EvictedEvents []models.Event `json:"evictedEvents"`
}

// ValidationError is returned for an inconsistent window or malformed input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// SetCooldown updates the horse's cooldown window, then evicts the horse
// from future events whose start now conflicts. Eviction is a consistency
// repair, not a gate: repair failures are logged and never fail the update.
func (s *Service) SetCooldown(ctx context.Context, horseID string, in CooldownInput) (*CooldownResult, error) {
	if (in.Start == nil) != (in.End == nil) {
		return nil, &ValidationError{Message: "cooldown start and end must be set together"}
	}
	if in.Start != nil && in.End.Before(*in.Start) {
		return nil, &ValidationError{Message: "cooldown end date must not precede start date"}
	}

	horse, err := s.Store.Get(ctx, horseID)
	if err != nil {
		return nil, err
	}

	horse.Cooldown = in.Start != nil
	horse.CooldownStart = in.Start
	horse.CooldownEnd = in.End
	if err := s.Store.UpdateCooldown(ctx, horse); err != nil {
		return nil, err
	}

	result := &CooldownResult{Horse: horse, EvictedEvents: []models.Event{}}
	if !horse.Cooldown {
		return result, nil
	}

	window := cooldown.Window{Name: horse.Name, Start: horse.CooldownStart, End: horse.CooldownEnd}
	future, err := s.Store.FutureEventsFor(ctx, horseID, s.now())
	if err != nil {
		s.warn(fmt.Sprintf("cooldown repair scan failed for horse %s: %v", horseID, err))
		return result, nil
	}

	for _, event := range future {
		if !cooldown.Conflicts(window, event.Start) {
			continue
		}
		if err := s.Store.Disconnect(ctx, event.ID, horseID); err != nil {
			s.warn(fmt.Sprintf("failed to evict horse %s from event %s: %v", horseID, event.ID, err))
			continue
		}
		result.EvictedEvents = append(result.EvictedEvents, event)
	}

	if len(result.EvictedEvents) > 0 && s.Logger != nil {
		s.Logger.LogProvision("EVICT", fmt.Sprintf("horse %s removed from %d future event(s) after cooldown edit", horse.Name, len(result.EvictedEvents)))
	}
	return result, nil
}

// Create adds a horse record.
func (s *Service) Create(ctx context.Context, name, notes string) (*models.Horse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Message: "horse name is required"}
	}
	horse := models.Horse{
		ID:        uuid.NewString(),
		Name:      name,
		Notes:     notes,
		CreatedAt: s.now(),
	}
	if err := s.Store.Create(ctx, horse); err != nil {
		return nil, err
	}
	return &horse, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Horse, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Horse, error) {
	return s.Store.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.Delete(ctx, id)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) warn(message string) {
	if s.Logger != nil {
		s.Logger.Warn("HORSES", message)
	}
}
