package authz

import (
	"context"
	"time"
)

// Resolver builds permission and isolation contexts from the store. It is
// stateless; callers normally reach it through the ContextCache.
type Resolver struct {
	store Store
}

// NewResolver constructs a Resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// PermissionContext resolves the context for one scope. A user with no
// assignments resolves to an empty permission set, not an error; store
// failures propagate so enforcement can distinguish outage from absence.
func (r *Resolver) PermissionContext(ctx context.Context, userID string, tourID *string) (*PermissionContext, error) {
	perms, err := r.store.ResolvePermissions(ctx, userID, tourID)
	if err != nil {
		return nil, storeErr("resolve permissions", err)
	}
	assignments, err := r.store.SelectRoleAssignments(ctx, userID)
	if err != nil {
		return nil, storeErr("select assignments", err)
	}
	roles := make([]ContextRole, 0, len(assignments))
	for _, a := range assignments {
		if !a.IsActive {
			continue
		}
		if !scopeMatches(a.TourID, tourID) {
			continue
		}
		roles = append(roles, ContextRole{
			RoleID:      a.RoleID,
			RoleName:    a.RoleName,
			DisplayName: a.DisplayName,
			TourID:      a.TourID,
			IsActive:    a.IsActive,
		})
	}
	return &PermissionContext{
		UserID:      userID,
		TourID:      tourID,
		Permissions: NewPermissionSet(perms),
		Roles:       roles,
		ResolvedAt:  time.Now().UTC(),
	}, nil
}

// IsolationContext aggregates the user's reach across every tour with an
// active assignment, plus the globally granted permission set.
func (r *Resolver) IsolationContext(ctx context.Context, userID string) (*DataIsolationContext, error) {
	assignments, err := r.store.SelectRoleAssignments(ctx, userID)
	if err != nil {
		return nil, storeErr("select assignments", err)
	}
	globalPerms, err := r.store.ResolvePermissions(ctx, userID, nil)
	if err != nil {
		return nil, storeErr("resolve permissions", err)
	}

	seen := make(map[string]struct{})
	var tourIDs []string
	for _, a := range assignments {
		if !a.IsActive || a.TourID == nil {
			continue
		}
		if _, ok := seen[*a.TourID]; ok {
			continue
		}
		seen[*a.TourID] = struct{}{}
		tourIDs = append(tourIDs, *a.TourID)
	}

	tourPerms := make(map[string]PermissionSet, len(tourIDs))
	for _, tourID := range tourIDs {
		id := tourID
		perms, err := r.store.ResolvePermissions(ctx, userID, &id)
		if err != nil {
			return nil, storeErr("resolve permissions", err)
		}
		tourPerms[tourID] = NewPermissionSet(perms)
	}

	return &DataIsolationContext{
		UserID:            userID,
		AccessibleTours:   tourIDs,
		GlobalPermissions: NewPermissionSet(globalPerms),
		TourPermissions:   tourPerms,
		ResolvedAt:        time.Now().UTC(),
	}, nil
}

// scopeMatches reports whether an assignment scope applies to the requested
// scope. Global assignments apply everywhere; scoped assignments apply only
// when the requested scope names the same tour.
func scopeMatches(assignmentTour, requested *string) bool {
	if assignmentTour == nil {
		return true
	}
	return requested != nil && *assignmentTour == *requested
}
