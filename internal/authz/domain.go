package authz

import "time"

// GlobalScope is the cache scope marker for contexts resolved without a tour.
const GlobalScope = "global"

// RoleAssignment links a user to a role, optionally scoped to one tour.
// A nil TourID means the assignment is global and applies across all tours.
// Assignments are soft-deleted by flipping IsActive; only active assignments
// participate in permission resolution.
type RoleAssignment struct {
	ID          string
	UserID      string
	RoleID      string
	RoleName    string
	DisplayName string
	TourID      *string
	IsActive    bool
	AssignedAt  time.Time
	AssignedBy  *string
}

// ContextRole is the assignment view carried inside a PermissionContext.
type ContextRole struct {
	RoleID      string
	RoleName    string
	DisplayName string
	TourID      *string
	IsActive    bool
}

// PermissionSet holds resolved permission names for membership checks.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from a slice of permission names.
func NewPermissionSet(perms []string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether the permission is present.
func (s PermissionSet) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// Names returns the members as a slice in unspecified order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for p := range s {
		names = append(names, p)
	}
	return names
}

// PermissionContext is the resolved authorization state for one user in one
// scope: the global scope (TourID nil) or a single tour. It is derived data,
// rebuilt from the store on demand and cached.
type PermissionContext struct {
	UserID      string
	TourID      *string
	Permissions PermissionSet
	Roles       []ContextRole
	ResolvedAt  time.Time
}

// DataIsolationContext aggregates a user's reach across every tour: the tours
// with at least one active assignment, the globally granted permissions, and
// the per-tour permission sets.
type DataIsolationContext struct {
	UserID            string
	AccessibleTours   []string
	GlobalPermissions PermissionSet
	TourPermissions   map[string]PermissionSet
	ResolvedAt        time.Time
}

// CanAccessTour reports whether the user holds any active assignment that
// reaches the tour, either globally or scoped to it.
func (c *DataIsolationContext) CanAccessTour(tourID string) bool {
	if len(c.GlobalPermissions) > 0 {
		return true
	}
	for _, id := range c.AccessibleTours {
		if id == tourID {
			return true
		}
	}
	return false
}

// HasPermission reports whether the permission is granted globally or within
// any single tour scope.
func (c *DataIsolationContext) HasPermission(perm string) bool {
	if c.GlobalPermissions.Has(perm) {
		return true
	}
	for _, set := range c.TourPermissions {
		if set.Has(perm) {
			return true
		}
	}
	return false
}

// HasTourPermission reports whether the permission is granted for a specific
// tour, either globally or through that tour's own scope.
func (c *DataIsolationContext) HasTourPermission(tourID, perm string) bool {
	if c.GlobalPermissions.Has(perm) {
		return true
	}
	if set, ok := c.TourPermissions[tourID]; ok {
		return set.Has(perm)
	}
	return false
}

// AuditRecord captures one access decision. Records are append-only and never
// mutated after insert.
type AuditRecord struct {
	ID           string
	UserID       string
	ResourceType string
	ResourceID   string
	Action       string
	Success      bool
	Metadata     map[string]any
	OccurredAt   time.Time
}

// Operation enumerates the mutation kinds understood by the modification
// validator.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ModificationResult is the structured outcome of ValidateModification.
// Denials carry a reason; they are values, never errors.
type ModificationResult struct {
	Allowed bool
	Reason  string
}

// Tour is the minimal tour projection the engine lists for a caller.
type Tour struct {
	ID     string
	Name   string
	Status string
}

// Event is the minimal event projection the engine lists for a caller.
type Event struct {
	ID     string
	TourID string
	Name   string
	Date   time.Time
}
