package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID           string    `bun:"id,pk" json:"id"`
	Title        string    `bun:"title,notnull" json:"title"`
	Start        time.Time `bun:"start,notnull" json:"start"`
	End          time.Time `bun:"end,notnull" json:"end"`
	IsPrivate    bool      `bun:"is_private" json:"isPrivate"`
	InstructorID string    `bun:"instructor_id,nullzero" json:"instructorId,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// EventRole holds the required volunteer headcount for one role on one event.
type EventRole struct {
	bun.BaseModel `bun:"table:event_roles"`

	ID       int64  `bun:"id,pk,autoincrement"`
	EventID  string `bun:"event_id,notnull,unique:uq_event_roles_event_role" json:"eventId"`
	Role     string `bun:"role,notnull,unique:uq_event_roles_event_role" json:"role"`
	Required int    `bun:"required,notnull" json:"required"`
}

// EventHorse links a horse into an event's resource pool.
type EventHorse struct {
	bun.BaseModel `bun:"table:event_horses"`

	ID      int64  `bun:"id,pk,autoincrement"`
	EventID string `bun:"event_id,notnull,unique:uq_event_horses_event_horse" json:"eventId"`
	HorseID string `bun:"horse_id,notnull,unique:uq_event_horses_event_horse" json:"horseId"`
}
