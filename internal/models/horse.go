package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Horse with an optional cooldown window. When Cooldown is set both dates are
// present and CooldownStart <= CooldownEnd; the range is inclusive by day.
type Horse struct {
	bun.BaseModel `bun:"table:horses"`

	ID            string     `bun:"id,pk" json:"id"`
	Name          string     `bun:"name,notnull" json:"name"`
	Notes         string     `bun:"notes" json:"notes,omitempty"`
	Cooldown      bool       `bun:"cooldown" json:"cooldown"`
	CooldownStart *time.Time `bun:"cooldown_start,nullzero" json:"cooldownStart,omitempty"`
	CooldownEnd   *time.Time `bun:"cooldown_end,nullzero" json:"cooldownEnd,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"createdAt"`
}
