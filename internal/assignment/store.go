package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"stable-scheduler/internal/models"
)

// Store is the per-(event, volunteer) single-horse ledger.
type Store struct {
	Bun *bun.DB
}

// Upsert sets or replaces the volunteer's assigned horse for the event.
func (s *Store) Upsert(ctx context.Context, eventID, userID, horseID string) error {
	assignment := models.HorseAssignment{
		EventID:   eventID,
		UserID:    userID,
		HorseID:   horseID,
		UpdatedAt: time.Now(),
	}
	_, err := s.Bun.NewInsert().
		Model(&assignment).
		On("CONFLICT (event_id, user_id) DO UPDATE").
		Set("horse_id = EXCLUDED.horse_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert horse assignment: %w", err)
	}
	return nil
}

// Delete removes the volunteer's assignment. Missing rows are fine: the
// "None" selection in the UI must stay idempotent.
func (s *Store) Delete(ctx context.Context, eventID, userID string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.HorseAssignment)(nil)).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete horse assignment: %w", err)
	}
	return nil
}

// HorseFor returns the assigned horse id, or "" when the volunteer has none.
func (s *Store) HorseFor(ctx context.Context, eventID, userID string) (string, error) {
	var assignment models.HorseAssignment
	err := s.Bun.NewSelect().
		Model(&assignment).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get horse assignment: %w", err)
	}
	return assignment.HorseID, nil
}

// ForEvent lists all assignments on the event.
func (s *Store) ForEvent(ctx context.Context, eventID string) ([]models.HorseAssignment, error) {
	var assignments []models.HorseAssignment
	err := s.Bun.NewSelect().
		Model(&assignments).
		Where("event_id = ?", eventID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list horse assignments: %w", err)
	}
	return assignments, nil
}

// EventExists reports whether the event row is present.
func (s *Store) EventExists(ctx context.Context, eventID string) (bool, error) {
	return s.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("id = ?", eventID).
		Exists(ctx)
}

// HorseInPool reports whether the horse is linked to the event.
func (s *Store) HorseInPool(ctx context.Context, eventID, horseID string) (bool, error) {
	return s.Bun.NewSelect().
		Model((*models.EventHorse)(nil)).
		Where("event_id = ?", eventID).
		Where("horse_id = ?", horseID).
		Exists(ctx)
}

// VolunteerRegistered reports whether the user holds a role on the event.
func (s *Store) VolunteerRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	return s.Bun.NewSelect().
		Model((*models.Registration)(nil)).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Exists(ctx)
}
