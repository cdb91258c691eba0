package authz

import "context"

// Store is the persistence collaborator the engine depends on. It exposes
// filtered reads and mutation primitives; how permission resolution is
// computed (joins, materialized view, procedure) is the store's business —
// the engine only requires consistency with the role assignment model.
type Store interface {
	// ResolvePermissions returns the distinct permission names granted to
	// the user for the scope: global assignments only when tourID is nil,
	// global plus tour-scoped assignments otherwise. An empty result means
	// no permissions, not an error.
	ResolvePermissions(ctx context.Context, userID string, tourID *string) ([]string, error)

	// SelectRoleAssignments returns every assignment for the user, active
	// and inactive, joined with role identity.
	SelectRoleAssignments(ctx context.Context, userID string) ([]RoleAssignment, error)

	// InsertRoleAssignment persists a new active assignment.
	InsertRoleAssignment(ctx context.Context, assignment RoleAssignment) (RoleAssignment, error)

	// DeactivateRoleAssignment flips matching assignments inactive and
	// reports how many rows changed. Assignments are never hard-deleted.
	DeactivateRoleAssignment(ctx context.Context, userID, roleID string, tourID *string) (int64, error)

	// InsertAuditRecord appends one decision record.
	InsertAuditRecord(ctx context.Context, record AuditRecord) error

	// ListTours returns tours filtered to the given ids, or every tour when
	// ids is nil.
	ListTours(ctx context.Context, tourIDs []string) ([]Tour, error)

	// ListEvents returns events belonging to the given tours, or every
	// event when tourIDs is nil.
	ListEvents(ctx context.Context, tourIDs []string) ([]Event, error)

	// EventTour returns the owning tour id for an event, or ErrNotFound.
	EventTour(ctx context.Context, eventID string) (string, error)
}
