package models

import (
	"time"

	"github.com/uptrace/bun"
)

// HorseAssignment pairs one registered volunteer with one horse for one
// event. Keyed by (event_id, user_id): a volunteer has at most one horse.
type HorseAssignment struct {
	bun.BaseModel `bun:"table:horse_assignments"`

	ID        int64     `bun:"id,pk,autoincrement" json:"-"`
	EventID   string    `bun:"event_id,notnull,unique:uq_horse_assignments_event_user" json:"eventId"`
	UserID    string    `bun:"user_id,notnull,unique:uq_horse_assignments_event_user" json:"userId"`
	HorseID   string    `bun:"horse_id,notnull" json:"horseId"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}
