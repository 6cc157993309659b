package roles

import (
	"stable-scheduler/internal/models"
)

// Role keys as stored in registration and event_roles rows.
const (
	CleaningCrew     = "cleaningCrew"
	LessonAssistants = "lessonAssistants"
	HorseLeaders     = "horseLeaders"
	SideWalkers      = "sideWalkers"
)

// Role describes one volunteer role kind. Permission is nil for roles any
// volunteer may take.
type Role struct {
	Key         string
	DisplayName string
	Permission  func(models.User) bool
}

// Catalog is an ordered list of role descriptors. The order matters: it is
// the scan order used by StatusOf to resolve which role a volunteer is
// considered registered under.
type Catalog struct {
	roles []Role
}

// NewCatalog builds a catalog from an ordered role list.
func NewCatalog(rs []Role) *Catalog {
	return &Catalog{roles: rs}
}

// Default returns the program's current role catalog. Earlier schema
// variants carried barnCrew/pastureCrew; the catalog is a plain slice so
// retired or added roles are a one-line change.
func Default() *Catalog {
	return NewCatalog([]Role{
		{Key: CleaningCrew, DisplayName: "cleaning crew"},
		{Key: LessonAssistants, DisplayName: "lesson assistants", Permission: func(u models.User) bool { return u.LessonAssistant }},
		{Key: HorseLeaders, DisplayName: "horse leaders", Permission: func(u models.User) bool { return u.HorseLeader }},
		{Key: SideWalkers, DisplayName: "side walkers"},
	})
}

// List returns the catalog in its defined order.
func (c *Catalog) List() []Role {
	out := make([]Role, len(c.roles))
	copy(out, c.roles)
	return out
}

// Lookup returns the role for key, or false if the key is not in the catalog.
func (c *Catalog) Lookup(key string) (Role, bool) {
	for _, r := range c.roles {
		if r.Key == key {
			return r, true
		}
	}
	return Role{}, false
}

// Eligible reports whether user may register under the given role key. Roles
// without a permission predicate are open to everyone; unknown keys are never
// eligible.
func (c *Catalog) Eligible(user models.User, key string) bool {
	role, ok := c.Lookup(key)
	if !ok {
		return false
	}
	if role.Permission == nil {
		return true
	}
	return role.Permission(user)
}
