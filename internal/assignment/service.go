// Package assignment pairs registered volunteers with horses per event.
// Cooldown is NOT re-checked here: cooldown gating happens at event
// creation, and admins assigning horses see the pool the event already
// carries.
package assignment

import (
	"context"
	"errors"

	"stable-scheduler/internal/logger"
	"stable-scheduler/internal/models"
)

// HorseNone is the sentinel horse selection meaning "no horse".
const HorseNone = "none"

var ErrEventNotFound = errors.New("event not found")
var ErrHorseNotInPool = errors.New("horse is not part of this event")
var ErrVolunteerNotRegistered = errors.New("volunteer holds no role on this event")

type StoreLayer interface {
	Upsert(ctx context.Context, eventID, userID, horseID string) error
	Delete(ctx context.Context, eventID, userID string) error
	HorseFor(ctx context.Context, eventID, userID string) (string, error)
	ForEvent(ctx context.Context, eventID string) ([]models.HorseAssignment, error)
	EventExists(ctx context.Context, eventID string) (bool, error)
	HorseInPool(ctx context.Context, eventID, horseID string) (bool, error)
	VolunteerRegistered(ctx context.Context, eventID, userID string) (bool, error)
}

type Service struct {
	Store  StoreLayer
	Logger *logger.Logger
}

func NewService(store StoreLayer, log *logger.Logger) *Service {
	return &Service{Store: store, Logger: log}
}

// Assign sets or replaces the volunteer's horse for the event. Passing
// HorseNone (or "") clears the assignment and is a no-op success when no
// assignment exists.
func (s *Service) Assign(ctx context.Context, eventID, userID, horseID string) error {
	exists, err := s.Store.EventExists(ctx, eventID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrEventNotFound
	}

	if horseID == "" || horseID == HorseNone {
		if err := s.Store.Delete(ctx, eventID, userID); err != nil {
			return err
		}
		s.log("UNASSIGN", eventID, userID, "cleared horse assignment")
		return nil
	}

	inPool, err := s.Store.HorseInPool(ctx, eventID, horseID)
	if err != nil {
		return err
	}
	if !inPool {
		return ErrHorseNotInPool
	}

	registered, err := s.Store.VolunteerRegistered(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !registered {
		return ErrVolunteerNotRegistered
	}

	if err := s.Store.Upsert(ctx, eventID, userID, horseID); err != nil {
		return err
	}
	s.log("ASSIGN", eventID, userID, "assigned horse "+horseID)
	return nil
}

// HorseOf returns the volunteer's assigned horse id, "" when none.
func (s *Service) HorseOf(ctx context.Context, eventID, userID string) (string, error) {
	return s.Store.HorseFor(ctx, eventID, userID)
}

// ForEvent lists the event's assignments for the admin detail screen.
func (s *Service) ForEvent(ctx context.Context, eventID string) ([]models.HorseAssignment, error) {
	exists, err := s.Store.EventExists(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrEventNotFound
	}
	return s.Store.ForEvent(ctx, eventID)
}

func (s *Service) log(action, eventID, userID, message string) {
	if s.Logger != nil {
		s.Logger.LogRegistration(action, eventID, userID, message)
	}
}
