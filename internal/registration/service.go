// Package registration is the state machine governing a volunteer's role
// membership on an event: Unregistered or RegisteredAs(role), nothing else.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stable-scheduler/internal/logger"
	"stable-scheduler/internal/models"
	"stable-scheduler/internal/notify"
	"stable-scheduler/internal/registration/db"
	"stable-scheduler/internal/roles"
)

// ErrEventPassed is returned for self-service against an event whose end
// timestamp is in the past. Past events are read-only for volunteers.
var ErrEventPassed = errors.New("event has already taken place")

// ErrNotEligible is returned when the volunteer lacks the permission a role
// requires. The UI disables ineligible roles, but that is not a correctness
// boundary, so the engine re-checks.
var ErrNotEligible = errors.New("volunteer is not eligible for this role")

// ErrUnknownRole is returned for role keys not in the catalog.
var ErrUnknownRole = errors.New("unknown volunteer role")

// ErrEmptyBroadcast is returned for an admin broadcast with no message body.
var ErrEmptyBroadcast = errors.New("broadcast message is required")

// ErrDispatchDisabled is returned when a broadcast is requested while the
// dispatch bus is not configured.
var ErrDispatchDisabled = errors.New("notification dispatch is disabled")

type DBLayer interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	Register(ctx context.Context, eventID, userID, role string) error
	Unregister(ctx context.Context, eventID, userID string) (string, error)
	RegistrationsFor(ctx context.Context, eventID, userID string) ([]models.Registration, error)
	AdminEmails(ctx context.Context) ([]string, error)
}

type SlotLock interface {
	LockSlot(ctx context.Context, eventID, role string) (bool, error)
	UnlockSlot(ctx context.Context, eventID, role string) error
}

type Service struct {
	DB       DBLayer
	Catalog  *roles.Catalog
	Notifier notify.Notifier
	Invites  notify.InviteGenerator
	Passes   *notify.PassGenerator
	Lock     SlotLock // optional
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewService(dbl DBLayer, catalog *roles.Catalog, notifier notify.Notifier, invites notify.InviteGenerator, passes *notify.PassGenerator, lock SlotLock, log *logger.Logger) *Service {
	return &Service{
		DB:       dbl,
		Catalog:  catalog,
		Notifier: notifier,
		Invites:  invites,
		Passes:   passes,
		Lock:     lock,
		Logger:   log,
		Now:      time.Now,
	}
}

// Outcome is the result of a committed registration. Warnings carry
// side-effect failures (invite, pass, notification) that happened after the
// mutation committed; they never turn the outcome into an error.
type Outcome struct {
	Event    *models.Event `json:"event"`
	Role     string        `json:"role"`
	Invite   []byte        `json:"invite,omitempty"`
	Pass     []byte        `json:"pass,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Status is the observable registration state for one (event, volunteer).
type Status struct {
	Registered bool       `json:"registered"`
	Role       roles.Role `json:"-"`
	RoleKey    string     `json:"role,omitempty"`
}

// Register puts the volunteer into the role's slot on the event.
func (s *Service) Register(ctx context.Context, eventID, userID, roleKey string) (*Outcome, error) {
	event, err := s.DB.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.End.Before(s.now()) {
		return nil, ErrEventPassed
	}

	user, err := s.DB.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	role, ok := s.Catalog.Lookup(roleKey)
	if !ok {
		return nil, ErrUnknownRole
	}
	if !s.Catalog.Eligible(*user, roleKey) {
		return nil, ErrNotEligible
	}

	existing, err := s.DB.RegistrationsFor(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, db.ErrAlreadyRegistered
	}

	s.lockSlot(ctx, eventID, roleKey)
	defer s.unlockSlot(ctx, eventID, roleKey)

	if err := s.DB.Register(ctx, eventID, userID, roleKey); err != nil {
		return nil, err
	}
	s.logRegistration("REGISTER", eventID, userID, "registered as "+roleKey)

	// The mutation is committed. Everything below is side effects: failures
	// are collected as warnings on the successful outcome.
	outcome := &Outcome{Event: event, Role: roleKey}

	if s.Invites != nil {
		invite, err := s.Invites.BuildInvite(*event)
		if err != nil {
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("invite generation failed: %v", err))
			s.warn(fmt.Sprintf("invite generation failed for event %s: %v", eventID, err))
		} else {
			outcome.Invite = invite
		}
	}

	if s.Passes != nil {
		pass, err := s.Passes.BuildPass(eventID, userID, roleKey)
		if err != nil {
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("check-in pass generation failed: %v", err))
			s.warn(fmt.Sprintf("pass generation failed for event %s: %v", eventID, err))
		} else {
			outcome.Pass = pass
		}
	}

	s.dispatch(ctx, outcome, notify.Payload{
		Action:      notify.ActionRegistered,
		EventID:     event.ID,
		EventTitle:  event.Title,
		EventStart:  event.Start,
		EventEnd:    event.End,
		UserID:      user.ID,
		UserEmail:   user.Email,
		Role:        role.Key,
		RoleDisplay: role.DisplayName,
		Invite:      outcome.Invite,
		Pass:        outcome.Pass,
	})

	return outcome, nil
}

// Unregister removes the volunteer's role membership on the event.
func (s *Service) Unregister(ctx context.Context, eventID, userID string) (*Outcome, error) {
	event, err := s.DB.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.End.Before(s.now()) {
		return nil, ErrEventPassed
	}

	user, err := s.DB.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	roleKey, err := s.DB.Unregister(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	s.logRegistration("UNREGISTER", eventID, userID, "left role "+roleKey)

	outcome := &Outcome{Event: event, Role: roleKey}
	role, _ := s.Catalog.Lookup(roleKey)

	s.dispatch(ctx, outcome, notify.Payload{
		Action:      notify.ActionUnregistered,
		EventID:     event.ID,
		EventTitle:  event.Title,
		EventStart:  event.Start,
		EventEnd:    event.End,
		UserID:      user.ID,
		UserEmail:   user.Email,
		Role:        roleKey,
		RoleDisplay: role.DisplayName,
	})

	return outcome, nil
}

// StatusOf reports the volunteer's registration state for the event. Roles
// are resolved in catalog order: if membership were ever found under more
// than one role, the first catalog role wins.
func (s *Service) StatusOf(ctx context.Context, eventID, userID string) (*Status, error) {
	regs, err := s.DB.RegistrationsFor(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return &Status{}, nil
	}

	held := make(map[string]bool, len(regs))
	for _, r := range regs {
		held[r.Role] = true
	}
	for _, role := range s.Catalog.List() {
		if held[role.Key] {
			return &Status{Registered: true, Role: role, RoleKey: role.Key}, nil
		}
	}
	return &Status{}, nil
}

// Broadcast pushes an admin-authored announcement onto the admin topic.
// Unlike the per-registration side effects, delivery is the whole point of
// this operation, so a publish failure is an error rather than a warning.
func (s *Service) Broadcast(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyBroadcast
	}
	if s.Notifier == nil {
		return ErrDispatchDisabled
	}

	admins, err := s.DB.AdminEmails(ctx)
	if err != nil {
		return fmt.Errorf("admin lookup: %w", err)
	}

	if err := s.Notifier.NotifyAdmins(ctx, notify.Payload{
		Action:      notify.ActionBroadcast,
		Message:     message,
		AdminEmails: admins,
	}); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Info("BROADCAST", "admin broadcast published")
	}
	return nil
}

// dispatch fans the payload out to the volunteer-facing topic and the admin
// broadcast. Fire-and-forget relative to the core mutation: failures become
// warnings on the outcome.
func (s *Service) dispatch(ctx context.Context, outcome *Outcome, p notify.Payload) {
	if s.Notifier == nil {
		return
	}

	admins, err := s.DB.AdminEmails(ctx)
	if err != nil {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("admin lookup failed: %v", err))
		s.warn(fmt.Sprintf("admin lookup failed: %v", err))
	}
	p.AdminEmails = admins

	var notifyErr error
	switch p.Action {
	case notify.ActionRegistered:
		notifyErr = s.Notifier.NotifyRegistration(ctx, p)
	case notify.ActionUnregistered:
		notifyErr = s.Notifier.NotifyUnregistration(ctx, p)
	}
	if notifyErr != nil {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("notification failed: %v", notifyErr))
		s.warn(fmt.Sprintf("notification failed for event %s: %v", p.EventID, notifyErr))
	}

	if err := s.Notifier.NotifyAdmins(ctx, p); err != nil {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("admin notification failed: %v", err))
		s.warn(fmt.Sprintf("admin notification failed for event %s: %v", p.EventID, err))
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) lockSlot(ctx context.Context, eventID, role string) {
	if s.Lock == nil {
		return
	}
	ok, err := s.Lock.LockSlot(ctx, eventID, role)
	if err != nil {
		s.warn(fmt.Sprintf("slot lock unavailable for event %s role %s: %v", eventID, role, err))
		return
	}
	if !ok {
		s.warn(fmt.Sprintf("slot lock contended for event %s role %s", eventID, role))
	}
}

func (s *Service) unlockSlot(ctx context.Context, eventID, role string) {
	if s.Lock == nil {
		return
	}
	if err := s.Lock.UnlockSlot(ctx, eventID, role); err != nil {
		s.warn(fmt.Sprintf("slot unlock failed for event %s role %s: %v", eventID, role, err))
	}
}

func (s *Service) logRegistration(action, eventID, userID, message string) {
	if s.Logger != nil {
		s.Logger.LogRegistration(action, eventID, userID, message)
	}
}

func (s *Service) warn(message string) {
	if s.Logger != nil {
		s.Logger.Warn("REGISTRATION", message)
	}
}
