package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Registration records one volunteer holding one role slot on one event.
// The unique key on (event_id, user_id) means a volunteer can hold at most
// one role per event.
type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	ID        int64     `bun:"id,pk,autoincrement" json:"-"`
	EventID   string    `bun:"event_id,notnull,unique:uq_registrations_event_user" json:"eventId"`
	UserID    string    `bun:"user_id,notnull,unique:uq_registrations_event_user" json:"userId"`
	Role      string    `bun:"role,notnull" json:"role"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}
