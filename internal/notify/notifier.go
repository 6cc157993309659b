// Package notify is the boundary to the delivery side of the system. The
// core emits notification requests and artifacts (calendar invite, check-in
// pass); rendering templates and SMTP transport live with the consumer.
package notify

import (
	"context"
	"time"
)

// Actions carried in notification payloads.
const (
	ActionRegistered   = "registered"
	ActionUnregistered = "unregistered"
	ActionBroadcast    = "broadcast"
)

// Payload describes one registration outcome for the notifier.
type Payload struct {
	Action      string    `json:"action"`
	EventID     string    `json:"event_id"`
	EventTitle  string    `json:"event_title"`
	EventStart  time.Time `json:"event_start"`
	EventEnd    time.Time `json:"event_end"`
	UserID      string    `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	Role        string    `json:"role"`
	RoleDisplay string    `json:"role_display"`
	AdminEmails []string  `json:"admin_emails,omitempty"`
	Message     string    `json:"message,omitempty"`
	Invite      []byte    `json:"invite,omitempty"`
	Pass        []byte    `json:"pass,omitempty"`
}

// Notifier delivers notification requests. Implementations must not be
// relied on for correctness: a failed delivery is logged and surfaced as a
// warning, never unwound into the committed mutation.
type Notifier interface {
	NotifyRegistration(ctx context.Context, p Payload) error
	NotifyUnregistration(ctx context.Context, p Payload) error
	NotifyAdmins(ctx context.Context, p Payload) error
}

// NopNotifier is used when the dispatch bus is disabled.
type NopNotifier struct{}

func (NopNotifier) NotifyRegistration(context.Context, Payload) error   { return nil }
func (NopNotifier) NotifyUnregistration(context.Context, Payload) error { return nil }
func (NopNotifier) NotifyAdmins(context.Context, Payload) error         { return nil }
