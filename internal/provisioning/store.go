package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"stable-scheduler/internal/models"
)

type Store struct {
	Bun *bun.DB
}

// HorsesByIDs loads the selected horses, preserving no particular order.
func (s *Store) HorsesByIDs(ctx context.Context, ids []string) ([]models.Horse, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var horses []models.Horse
	err := s.Bun.NewSelect().
		Model(&horses).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load horses: %w", err)
	}
	return horses, nil
}

// InstructorExists reports whether the user exists and is an instructor.
func (s *Store) InstructorExists(ctx context.Context, userID string) (bool, error) {
	return s.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("id = ?", userID).
		Where("instructor = ?", true).
		Exists(ctx)
}

// CreateBatch inserts the whole occurrence series in one transaction: the
// event rows, their role requirements, and their horse links commit together
// or not at all. A client disconnect mid-request rolls everything back.
func (s *Store) CreateBatch(ctx context.Context, events []models.Event, eventRoles []models.EventRole, eventHorses []models.EventHorse) error {
	return s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&events).Exec(ctx); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
		if len(eventRoles) > 0 {
			if _, err := tx.NewInsert().Model(&eventRoles).Exec(ctx); err != nil {
				return fmt.Errorf("insert event roles: %w", err)
			}
		}
		if len(eventHorses) > 0 {
			if _, err := tx.NewInsert().Model(&eventHorses).Exec(ctx); err != nil {
				return fmt.Errorf("insert event horses: %w", err)
			}
		}
		return nil
	})
}

// EventsForRange lists events between two timestamps for the calendar view.
func (s *Store) EventsForRange(ctx context.Context, from, to *time.Time) ([]models.Event, error) {
	var events []models.Event
	q := s.Bun.NewSelect().Model(&events).Order("start")
	if from != nil {
		q = q.Where("start >= ?", *from)
	}
	if to != nil {
		q = q.Where("start < ?", *to)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
