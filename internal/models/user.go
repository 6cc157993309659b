package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID              string    `bun:"id,pk" json:"id"`
	Email           string    `bun:"email,unique,notnull" json:"email"`
	Name            string    `bun:"name" json:"name"`
	Admin           bool      `bun:"admin" json:"admin"`
	Instructor      bool      `bun:"instructor" json:"instructor"`
	LessonAssistant bool      `bun:"lesson_assistant" json:"lessonAssistant"`
	HorseLeader     bool      `bun:"horse_leader" json:"horseLeader"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
}
