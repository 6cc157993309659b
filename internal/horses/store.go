package horses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"stable-scheduler/internal/models"
)

var ErrHorseNotFound = errors.New("horse not found")

type Store struct {
	Bun *bun.DB
}

func (s *Store) Get(ctx context.Context, id string) (*models.Horse, error) {
	var horse models.Horse
	err := s.Bun.NewSelect().
		Model(&horse).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHorseNotFound
		}
		return nil, fmt.Errorf("get horse: %w", err)
	}
	return &horse, nil
}

func (s *Store) List(ctx context.Context) ([]models.Horse, error) {
	var horses []models.Horse
	err := s.Bun.NewSelect().
		Model(&horses).
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list horses: %w", err)
	}
	return horses, nil
}

func (s *Store) Create(ctx context.Context, horse models.Horse) error {
	_, err := s.Bun.NewInsert().Model(&horse).Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert horse: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.Bun.NewDelete().
		Model((*models.Horse)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete horse: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrHorseNotFound
	}
	return nil
}

// UpdateCooldown persists the horse's cooldown window.
func (s *Store) UpdateCooldown(ctx context.Context, horse *models.Horse) error {
	_, err := s.Bun.NewUpdate().
		Model(horse).
		Column("cooldown", "cooldown_start", "cooldown_end").
		Where("id = ?", horse.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update horse cooldown: %w", err)
	}
	return nil
}

// FutureEventsFor returns events the horse is linked to that start at or
// after the given instant.
func (s *Store) FutureEventsFor(ctx context.Context, horseID string, after time.Time) ([]models.Event, error) {
	var events []models.Event
	err := s.Bun.NewSelect().
		Model(&events).
		Join("JOIN event_horses AS eh ON eh.event_id = event.id").
		Where("eh.horse_id = ?", horseID).
		Where("event.start >= ?", after).
		Order("event.start").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("future events for horse: %w", err)
	}
	return events, nil
}

// Disconnect removes the horse from an event's pool.
func (s *Store) Disconnect(ctx context.Context, eventID, horseID string) error {
	_, err := s.Bun.NewDelete().
		Model((*models.EventHorse)(nil)).
		Where("event_id = ?", eventID).
		Where("horse_id = ?", horseID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("disconnect horse from event: %w", err)
	}
	return nil
}
