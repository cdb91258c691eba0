package authz

import (
	"context"
	"log/slog"
	"sync"
)

// Resource types covered by the default isolation rule set.
const (
	ResourceTour      = "tour"
	ResourceEvent     = "event"
	ResourceStaff     = "staff"
	ResourceFinancial = "financial"
	ResourceLogistics = "logistics"
)

// Denial reasons, kept distinguishable for logs and audit metadata even
// though callers only see a boolean.
const (
	ReasonNoRule            = "no isolation rule for resource type"
	ReasonPermissionMissing = "required permission not granted"
	ReasonRuleDenied        = "isolation rule denied access"
	ReasonStoreError        = "store error during rule evaluation"
)

// RulePredicate decides resource-scoped access for a caller that already
// holds the required permission somewhere. It is a scoping filter on top of
// permission possession, not a substitute for it.
type RulePredicate func(ctx context.Context, ictx *DataIsolationContext, resourceID, requiredPerm string) (bool, error)

// IsolationRule names a predicate for one resource type.
type IsolationRule struct {
	Name         string
	ResourceType string
	Predicate    RulePredicate
}

// Decision is the outcome of a rule evaluation with its denial reason.
type Decision struct {
	Allowed bool
	Reason  string
}

// RuleEngine holds the mutable isolation rule table, one rule per resource
// type. Rules can be registered and removed at runtime so new resource types
// ship without redeploying the engine. An unregistered resource type is
// always denied, never open.
type RuleEngine struct {
	mu     sync.RWMutex
	rules  map[string]IsolationRule
	logger *slog.Logger
}

// NewRuleEngine constructs an engine preloaded with the default rule set.
// The event rule derives the owning tour through the store before applying
// tour scoping, so event access is enforced rather than passed through.
func NewRuleEngine(store Store, logger *slog.Logger) *RuleEngine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &RuleEngine{rules: make(map[string]IsolationRule), logger: logger}
	tourScoped := func(ctx context.Context, ictx *DataIsolationContext, resourceID, requiredPerm string) (bool, error) {
		return ictx.HasTourPermission(resourceID, requiredPerm), nil
	}
	defaults := []IsolationRule{
		{Name: "tour-scope", ResourceType: ResourceTour, Predicate: tourScoped},
		{Name: "staff-scope", ResourceType: ResourceStaff, Predicate: tourScoped},
		{Name: "financial-scope", ResourceType: ResourceFinancial, Predicate: tourScoped},
		{Name: "logistics-scope", ResourceType: ResourceLogistics, Predicate: tourScoped},
		{Name: "event-scope", ResourceType: ResourceEvent, Predicate: func(ctx context.Context, ictx *DataIsolationContext, resourceID, requiredPerm string) (bool, error) {
			if ictx.GlobalPermissions.Has(requiredPerm) {
				return true, nil
			}
			tourID, err := store.EventTour(ctx, resourceID)
			if err != nil {
				if err == ErrNotFound {
					return false, nil
				}
				return false, err
			}
			return ictx.HasTourPermission(tourID, requiredPerm), nil
		}},
	}
	for _, rule := range defaults {
		e.rules[rule.ResourceType] = rule
	}
	return e
}

// AddRule registers a rule for its resource type, replacing any existing
// rule for that type. Returns ErrRuleExists on a name collision with a rule
// covering a different type.
func (e *RuleEngine) AddRule(rule IsolationRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for resourceType, existing := range e.rules {
		if existing.Name == rule.Name && resourceType != rule.ResourceType {
			return ErrRuleExists
		}
	}
	e.rules[rule.ResourceType] = rule
	return nil
}

// RemoveRule deletes a rule by name. Returns ErrNoSuchRule when absent.
func (e *RuleEngine) RemoveRule(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for resourceType, rule := range e.rules {
		if rule.Name == name {
			delete(e.rules, resourceType)
			return nil
		}
	}
	return ErrNoSuchRule
}

// Rule returns the rule registered for a resource type.
func (e *RuleEngine) Rule(resourceType string) (IsolationRule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rule, ok := e.rules[resourceType]
	return rule, ok
}

// Evaluate applies the rule table to one access request. The caller resolves
// the isolation context; this method checks rule presence, permission
// possession, and the rule predicate, in that order, failing closed on every
// branch.
func (e *RuleEngine) Evaluate(ctx context.Context, ictx *DataIsolationContext, resourceType, resourceID, requiredPerm string) Decision {
	rule, ok := e.Rule(resourceType)
	if !ok {
		e.logger.Warn("access denied: unregistered resource type",
			slog.String("resource_type", resourceType),
			slog.String("resource_id", resourceID),
			slog.String("user_id", ictx.UserID))
		return Decision{Reason: ReasonNoRule}
	}
	if !ictx.HasPermission(requiredPerm) {
		e.logger.Info("access denied: permission missing",
			slog.String("permission", requiredPerm),
			slog.String("resource_type", resourceType),
			slog.String("user_id", ictx.UserID))
		return Decision{Reason: ReasonPermissionMissing}
	}
	allowed, err := rule.Predicate(ctx, ictx, resourceID, requiredPerm)
	if err != nil {
		e.logger.Error("access denied: rule evaluation failed",
			slog.String("rule", rule.Name),
			slog.String("resource_id", resourceID),
			slog.Any("error", err))
		return Decision{Reason: ReasonStoreError}
	}
	if !allowed {
		e.logger.Info("access denied: rule rejected resource",
			slog.String("rule", rule.Name),
			slog.String("resource_type", resourceType),
			slog.String("resource_id", resourceID),
			slog.String("user_id", ictx.UserID))
		return Decision{Reason: ReasonRuleDenied}
	}
	return Decision{Allowed: true}
}
