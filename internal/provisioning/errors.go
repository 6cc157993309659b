package provisioning

import (
	"fmt"
	"strings"

	"stable-scheduler/internal/cooldown"
)

// ValidationError carries field-level messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid event spec: " + strings.Join(parts, "; ")
}

// ConflictError aborts batch creation when any selected horse is in cooldown
// on any requested date. No events are created.
type ConflictError struct {
	Conflicts []cooldown.HorseConflict
	Summary   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("horses on cooldown: %s", e.Summary)
}
