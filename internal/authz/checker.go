package authz

import (
	"context"
	"log/slog"
	"strings"
)

// Checker is a stateless predicate facade over resolved contexts for one
// user. An optional default tour scope is fixed at construction; individual
// checks may override it. All predicates fail closed: a store error yields
// false and an error-level log, never a grant.
type Checker struct {
	cache  *ContextCache
	logger *slog.Logger

	userID string
	tourID *string
}

// NewChecker builds a checker for a user with an optional default tour.
func NewChecker(cache *ContextCache, logger *slog.Logger, userID string, tourID *string) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{cache: cache, logger: logger, userID: userID, tourID: tourID}
}

// HasPermission reports whether the permission is granted for the scope.
// A global grant always satisfies a tour-scoped check: the resolved set for
// a tour scope is the union of global and tour-scoped assignments.
func (c *Checker) HasPermission(ctx context.Context, perm string, tourID ...string) bool {
	pc, ok := c.resolve(ctx, tourID)
	if !ok {
		return false
	}
	return pc.Permissions.Has(perm)
}

// HasAnyPermission reports whether at least one permission is granted.
func (c *Checker) HasAnyPermission(ctx context.Context, perms []string, tourID ...string) bool {
	pc, ok := c.resolve(ctx, tourID)
	if !ok {
		return false
	}
	for _, perm := range perms {
		if pc.Permissions.Has(perm) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every permission is granted.
func (c *Checker) HasAllPermissions(ctx context.Context, perms []string, tourID ...string) bool {
	pc, ok := c.resolve(ctx, tourID)
	if !ok {
		return false
	}
	for _, perm := range perms {
		if !pc.Permissions.Has(perm) {
			return false
		}
	}
	return len(perms) > 0
}

// HasRole reports whether the user holds an active role by name in the
// scope. Role names compare case-insensitively.
func (c *Checker) HasRole(ctx context.Context, roleName string, tourID ...string) bool {
	pc, ok := c.resolve(ctx, tourID)
	if !ok {
		return false
	}
	for _, role := range pc.Roles {
		if strings.EqualFold(role.RoleName, roleName) {
			return true
		}
	}
	return false
}

// CanAccessTour reports whether any active assignment, global or scoped to
// the tour, reaches it.
func (c *Checker) CanAccessTour(ctx context.Context, tourID string) bool {
	pc, err := c.cache.PermissionContext(ctx, c.userID, &tourID)
	if err != nil {
		c.logger.Error("checker resolve context", slog.String("user_id", c.userID), slog.Any("error", err))
		return false
	}
	return len(pc.Roles) > 0
}

func (c *Checker) resolve(ctx context.Context, override []string) (*PermissionContext, bool) {
	scope := c.tourID
	if len(override) > 0 && override[0] != "" {
		scope = &override[0]
	}
	pc, err := c.cache.PermissionContext(ctx, c.userID, scope)
	if err != nil {
		c.logger.Error("checker resolve context", slog.String("user_id", c.userID), slog.Any("error", err))
		return nil, false
	}
	return pc, true
}
