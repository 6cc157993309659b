package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"stable-scheduler/internal/models"
)

// ErrEventNotFound is returned when the referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrUserNotFound is returned when the referenced volunteer does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrRoleFull is returned when a role already has its required headcount.
var ErrRoleFull = errors.New("role is full")

// ErrAlreadyRegistered is returned when the volunteer already holds a role
// on the event.
var ErrAlreadyRegistered = errors.New("volunteer already registered for this event")

// ErrNotRegistered is returned when unregistering a volunteer who holds no
// role on the event.
var ErrNotRegistered = errors.New("volunteer is not registered for this event")

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Register adds the volunteer to the role's set, but only while the set is
// below the role's required headcount.
//
// The capacity check and the insert run as one conditional statement inside
// a transaction that first locks the event row. Under Postgres READ
// COMMITTED each statement reads its own snapshot, so without the lock two
// concurrent registrations by different volunteers could both see the set
// one below the requirement and both insert. The row lock serializes the
// check-and-insert per event; the waiting writer re-reads after the first
// commits and sees the slot taken. sqlite permits a single writer and does
// not accept FOR UPDATE, so the lock is Postgres-only. The unique
// (event_id, user_id) index additionally backstops the duplicate pre-check
// done by the caller.
func (d *DB) Register(ctx context.Context, eventID, userID, role string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if d.Bun.Dialect().Name() == dialect.PG {
			if _, err := tx.NewSelect().
				Model((*models.Event)(nil)).
				Column("id").
				Where("id = ?", eventID).
				For("UPDATE").
				Exec(ctx); err != nil {
				return fmt.Errorf("lock event row: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO registrations (event_id, user_id, role, created_at)
			SELECT ?, ?, ?, ?
			WHERE (
				SELECT COUNT(*) FROM registrations WHERE event_id = ? AND role = ?
			) < (
				SELECT COALESCE(MAX(required), 0) FROM event_roles WHERE event_id = ? AND role = ?
			)`,
			eventID, userID, role, time.Now(),
			eventID, role,
			eventID, role,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("insert registration: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
		if rows == 0 {
			return ErrRoleFull
		}
		return nil
	})
}

// isUniqueViolation matches the engine's duplicate-key error: pq code 23505
// on Postgres, the constraint message on sqlite.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Unregister removes the volunteer's role membership and returns the role
// that was held. No capacity check: capacity only gates additions.
func (d *DB) Unregister(ctx context.Context, eventID, userID string) (string, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotRegistered
		}
		return "", fmt.Errorf("find registration: %w", err)
	}

	_, err = d.Bun.NewDelete().
		Model((*models.Registration)(nil)).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("delete registration: %w", err)
	}
	return reg.Role, nil
}

// RegistrationsFor returns the volunteer's role memberships on the event.
// The unique key keeps this to at most one row, but callers resolve role
// precedence via the catalog order regardless.
func (d *DB) RegistrationsFor(ctx context.Context, eventID, userID string) ([]models.Registration, error) {
	var regs []models.Registration
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("registrations for volunteer: %w", err)
	}
	return regs, nil
}

// CountForRole returns the current size of a role's assigned-volunteer set.
func (d *DB) CountForRole(ctx context.Context, eventID, role string) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Registration)(nil)).
		Where("event_id = ?", eventID).
		Where("role = ?", role).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count role registrations: %w", err)
	}
	return count, nil
}

// RequiredForRole returns the required headcount for a role on an event,
// zero when the event has no row for the role.
func (d *DB) RequiredForRole(ctx context.Context, eventID, role string) (int, error) {
	var er models.EventRole
	err := d.Bun.NewSelect().
		Model(&er).
		Where("event_id = ?", eventID).
		Where("role = ?", role).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("required for role: %w", err)
	}
	return er.Required, nil
}

// AdminEmails returns the addresses registration notifications are copied to.
func (d *DB) AdminEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Column("email").
		Where("admin = ?", true).
		Scan(ctx, &emails)
	if err != nil {
		return nil, fmt.Errorf("admin emails: %w", err)
	}
	return emails, nil
}
