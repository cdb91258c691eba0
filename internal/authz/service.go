package authz

import (
	"context"
	"log/slog"

	"github.com/KyleQD/Flow-sub006/internal/shared"
)

// Service composes the resolver, cache, rule engine, validator, and auditor
// into the enforcement entry points request handlers consume. It is
// constructed once at startup with its collaborators injected; there is no
// process-global instance.
type Service struct {
	store       Store
	cache       *ContextCache
	rules       *RuleEngine
	validator   *Validator
	auditor     *Auditor
	broadcaster *Broadcaster
	logger      *slog.Logger
}

// NewService wires the engine. broadcaster may be nil when running without
// Redis fan-out (single instance, tests).
func NewService(store Store, cache *ContextCache, rules *RuleEngine, auditor *Auditor, broadcaster *Broadcaster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:       store,
		cache:       cache,
		rules:       rules,
		auditor:     auditor,
		broadcaster: broadcaster,
		logger:      logger,
	}
	s.validator = NewValidator(s)
	return s
}

// GetPermissionContext resolves (cached) the context for one user and scope.
func (s *Service) GetPermissionContext(ctx context.Context, userID string, tourID *string) (*PermissionContext, error) {
	return s.cache.PermissionContext(ctx, userID, tourID)
}

// GetIsolationContext resolves (cached) the cross-tour isolation context.
func (s *Service) GetIsolationContext(ctx context.Context, userID string) (*DataIsolationContext, error) {
	return s.cache.IsolationContext(ctx, userID)
}

// NewChecker builds a predicate facade bound to a user and default scope.
func (s *Service) NewChecker(userID string, tourID *string) *Checker {
	return NewChecker(s.cache, s.logger, userID, tourID)
}

// AssignRole creates an active role assignment and invalidates every cached
// scope for the user before returning. Peer processes are notified best
// effort.
func (s *Service) AssignRole(ctx context.Context, userID, roleID string, tourID, assignedBy *string) (RoleAssignment, error) {
	assignment, err := s.store.InsertRoleAssignment(ctx, RoleAssignment{
		UserID:     userID,
		RoleID:     roleID,
		TourID:     tourID,
		AssignedBy: assignedBy,
	})
	if err != nil {
		return RoleAssignment{}, storeErr("insert assignment", err)
	}
	s.cache.InvalidateUser(userID)
	s.broadcaster.PublishUser(ctx, userID)
	s.auditor.Record(ctx, userID, "role_assignment", roleID, "assign", true, assignmentMeta(tourID, assignedBy))
	return assignment, nil
}

// RemoveRole deactivates matching assignments. Assignments are soft-deleted
// so audit history stays intact; ErrNotFound means nothing was active.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID string, tourID *string) error {
	affected, err := s.store.DeactivateRoleAssignment(ctx, userID, roleID, tourID)
	if err != nil {
		return storeErr("deactivate assignment", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.cache.InvalidateUser(userID)
	s.broadcaster.PublishUser(ctx, userID)
	s.auditor.Record(ctx, userID, "role_assignment", roleID, "remove", true, assignmentMeta(tourID, nil))
	return nil
}

// ValidatePermission is the fail-closed boolean permission check. Store
// errors yield false and an error log so an outage never reads as a grant
// and never as a quiet no-op either.
func (s *Service) ValidatePermission(ctx context.Context, userID, perm string, tourID *string) bool {
	pc, err := s.cache.PermissionContext(ctx, userID, tourID)
	if err != nil {
		s.logger.Error("validate permission: resolve failed",
			slog.String("user_id", userID),
			slog.String("permission", perm),
			slog.Any("error", err))
		return false
	}
	granted := pc.Permissions.Has(perm)
	if !granted {
		s.logger.Info("permission denied",
			slog.String("user_id", userID),
			slog.String("permission", perm))
	}
	return granted
}

// CanAccessResource applies the isolation rule table to one resource access
// and audits the outcome. Every branch fails closed.
func (s *Service) CanAccessResource(ctx context.Context, userID, resourceType, resourceID, requiredPerm string) bool {
	ictx, err := s.cache.IsolationContext(ctx, userID)
	if err != nil {
		s.logger.Error("resource access: resolve failed",
			slog.String("user_id", userID),
			slog.String("resource_type", resourceType),
			slog.Any("error", err))
		s.auditor.Record(ctx, userID, resourceType, resourceID, "access", false, map[string]any{
			"permission": requiredPerm,
			"reason":     ReasonStoreError,
		})
		return false
	}
	decision := s.rules.Evaluate(ctx, ictx, resourceType, resourceID, requiredPerm)
	meta := map[string]any{"permission": requiredPerm}
	if !decision.Allowed {
		meta["reason"] = decision.Reason
	}
	s.auditor.Record(ctx, userID, resourceType, resourceID, "access", decision.Allowed, meta)
	return decision.Allowed
}

// ValidateModification approves or rejects a create/update/delete attempt.
// Unknown resource types are rejected without any store interaction,
// including the audit write.
func (s *Service) ValidateModification(ctx context.Context, userID, resourceType, resourceID string, op Operation) ModificationResult {
	result := s.validator.ValidateModification(ctx, userID, resourceType, resourceID, op)
	if _, known := RequiredPermission(resourceType, op); known {
		s.auditor.Record(ctx, userID, resourceType, resourceID, string(op), result.Allowed, map[string]any{
			"reason": result.Reason,
		})
	}
	return result
}

// GetAccessibleTours lists the tours the user may see: every tour for a
// global viewer, otherwise the tours carrying an active assignment.
func (s *Service) GetAccessibleTours(ctx context.Context, userID string) ([]Tour, error) {
	ictx, err := s.cache.IsolationContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ictx.GlobalPermissions.Has(shared.PermToursView) {
		tours, err := s.store.ListTours(ctx, nil)
		if err != nil {
			return nil, storeErr("list tours", err)
		}
		return tours, nil
	}
	if len(ictx.AccessibleTours) == 0 {
		return []Tour{}, nil
	}
	tours, err := s.store.ListTours(ctx, ictx.AccessibleTours)
	if err != nil {
		return nil, storeErr("list tours", err)
	}
	return tours, nil
}

// GetAccessibleEvents lists events within the user's reach, mirroring
// GetAccessibleTours.
func (s *Service) GetAccessibleEvents(ctx context.Context, userID string) ([]Event, error) {
	ictx, err := s.cache.IsolationContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ictx.GlobalPermissions.Has(shared.PermEventsView) {
		events, err := s.store.ListEvents(ctx, nil)
		if err != nil {
			return nil, storeErr("list events", err)
		}
		return events, nil
	}
	if len(ictx.AccessibleTours) == 0 {
		return []Event{}, nil
	}
	events, err := s.store.ListEvents(ctx, ictx.AccessibleTours)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	return events, nil
}

// Audit appends an access record directly. Exposed for callers enforcing
// out-of-band decisions that still need the trail.
func (s *Service) Audit(ctx context.Context, userID, resourceType, resourceID, action string, success bool, metadata map[string]any) {
	s.auditor.Record(ctx, userID, resourceType, resourceID, action, success, metadata)
}

// AddIsolationRule registers a rule for a resource type at runtime.
func (s *Service) AddIsolationRule(rule IsolationRule) error {
	return s.rules.AddRule(rule)
}

// RemoveIsolationRule removes a rule by name.
func (s *Service) RemoveIsolationRule(name string) error {
	return s.rules.RemoveRule(name)
}

// InvalidateUser drops the user's cached contexts and notifies peers.
func (s *Service) InvalidateUser(ctx context.Context, userID string) {
	s.cache.InvalidateUser(userID)
	s.broadcaster.PublishUser(ctx, userID)
}

// InvalidateAll flushes both caches and notifies peers. Role permission set
// changes route through here since they can affect every holder of the role.
func (s *Service) InvalidateAll(ctx context.Context) {
	s.cache.InvalidateAll()
	s.broadcaster.PublishAll(ctx)
}

func assignmentMeta(tourID, assignedBy *string) map[string]any {
	meta := map[string]any{}
	if tourID != nil {
		meta["tour_id"] = *tourID
	}
	if assignedBy != nil {
		meta["assigned_by"] = *assignedBy
	}
	return meta
}
