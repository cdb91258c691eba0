package authz

import (
	"context"
	"fmt"

	"github.com/KyleQD/Flow-sub006/internal/shared"
)

// AccessDecider answers resource-scoped access questions. Satisfied by the
// Service facade; tests supply their own.
type AccessDecider interface {
	CanAccessResource(ctx context.Context, userID, resourceType, resourceID, requiredPerm string) bool
}

// modificationPermissions fixes the single required permission for each
// (resource type, operation) pair. Unlisted pairs are rejected without
// touching the store.
var modificationPermissions = map[string]map[Operation]string{
	ResourceTour: {
		OpCreate: shared.PermToursCreate,
		OpUpdate: shared.PermToursEdit,
		OpDelete: shared.PermToursDelete,
	},
	ResourceEvent: {
		OpCreate: shared.PermEventsCreate,
		OpUpdate: shared.PermEventsEdit,
		OpDelete: shared.PermEventsDelete,
	},
	ResourceStaff: {
		OpCreate: shared.PermStaffInvite,
		OpUpdate: shared.PermStaffManage,
		OpDelete: shared.PermStaffRemove,
	},
	ResourceFinancial: {
		OpCreate: shared.PermFinancesEdit,
		OpUpdate: shared.PermFinancesEdit,
		OpDelete: shared.PermFinancesDelete,
	},
	ResourceLogistics: {
		OpCreate: shared.PermLogisticsEdit,
		OpUpdate: shared.PermLogisticsEdit,
		OpDelete: shared.PermLogisticsDelete,
	},
}

// Validator approves or rejects create/update/delete attempts by mapping the
// operation to its required permission and delegating the scoped check.
type Validator struct {
	decider AccessDecider
}

// NewValidator constructs a Validator.
func NewValidator(decider AccessDecider) *Validator {
	return &Validator{decider: decider}
}

// ValidateModification returns a structured allow/deny result. Denials are
// values, never errors.
func (v *Validator) ValidateModification(ctx context.Context, userID, resourceType, resourceID string, op Operation) ModificationResult {
	ops, ok := modificationPermissions[resourceType]
	if !ok {
		return ModificationResult{Reason: "Unknown resource type"}
	}
	requiredPerm, ok := ops[op]
	if !ok {
		return ModificationResult{Reason: fmt.Sprintf("Unsupported operation %s on %s", op, resourceType)}
	}
	if !v.decider.CanAccessResource(ctx, userID, resourceType, resourceID, requiredPerm) {
		return ModificationResult{Reason: fmt.Sprintf("Insufficient permissions for %s on %s", op, resourceType)}
	}
	return ModificationResult{Allowed: true}
}

// RequiredPermission exposes the mapping for callers that want to show the
// permission a modification would need.
func RequiredPermission(resourceType string, op Operation) (string, bool) {
	ops, ok := modificationPermissions[resourceType]
	if !ok {
		return "", false
	}
	perm, ok := ops[op]
	return perm, ok
}
