package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolationCtx(global []string, tourPerms map[string][]string) *DataIsolationContext {
	tours := make([]string, 0, len(tourPerms))
	sets := make(map[string]PermissionSet, len(tourPerms))
	for tourID, perms := range tourPerms {
		tours = append(tours, tourID)
		sets[tourID] = NewPermissionSet(perms)
	}
	return &DataIsolationContext{
		UserID:            "user-1",
		AccessibleTours:   tours,
		GlobalPermissions: NewPermissionSet(global),
		TourPermissions:   sets,
	}
}

func TestEvaluateUnregisteredTypeDenied(t *testing.T) {
	engine := NewRuleEngine(newMockStore(), testLogger())
	ictx := isolationCtx([]string{"TOURS_VIEW"}, nil)

	decision := engine.Evaluate(context.Background(), ictx, "merchandise", "m-1", "TOURS_VIEW")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoRule, decision.Reason)
}

func TestEvaluatePermissionMissing(t *testing.T) {
	engine := NewRuleEngine(newMockStore(), testLogger())
	ictx := isolationCtx(nil, map[string][]string{"tour-1": {"TOURS_VIEW"}})

	decision := engine.Evaluate(context.Background(), ictx, ResourceTour, "tour-1", "TOURS_EDIT")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonPermissionMissing, decision.Reason)
}

func TestEvaluateRuleDeniesOtherTour(t *testing.T) {
	engine := NewRuleEngine(newMockStore(), testLogger())
	ictx := isolationCtx(nil, map[string][]string{"tour-1": {"TOURS_VIEW"}})

	allowed := engine.Evaluate(context.Background(), ictx, ResourceTour, "tour-1", "TOURS_VIEW")
	assert.True(t, allowed.Allowed)

	denied := engine.Evaluate(context.Background(), ictx, ResourceTour, "tour-2", "TOURS_VIEW")
	assert.False(t, denied.Allowed)
	assert.Equal(t, ReasonRuleDenied, denied.Reason)
}

func TestEvaluateGlobalGrantReachesEveryTour(t *testing.T) {
	engine := NewRuleEngine(newMockStore(), testLogger())
	ictx := isolationCtx([]string{"FINANCES_VIEW"}, nil)

	decision := engine.Evaluate(context.Background(), ictx, ResourceFinancial, "tour-42", "FINANCES_VIEW")
	assert.True(t, decision.Allowed)
}

func TestEventRuleDerivesOwningTour(t *testing.T) {
	store := newMockStore()
	store.addEvent("event-1", "tour-1", "Opening Night")
	engine := NewRuleEngine(store, testLogger())
	ictx := isolationCtx(nil, map[string][]string{"tour-1": {"EVENTS_VIEW"}})

	decision := engine.Evaluate(context.Background(), ictx, ResourceEvent, "event-1", "EVENTS_VIEW")
	assert.True(t, decision.Allowed)

	// An event on a tour outside the caller's reach is denied.
	store.addEvent("event-2", "tour-9", "Closing Night")
	decision = engine.Evaluate(context.Background(), ictx, ResourceEvent, "event-2", "EVENTS_VIEW")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRuleDenied, decision.Reason)
}

func TestEventRuleUnknownEventDenied(t *testing.T) {
	store := newMockStore()
	engine := NewRuleEngine(store, testLogger())
	ictx := isolationCtx(nil, map[string][]string{"tour-1": {"EVENTS_VIEW"}})

	decision := engine.Evaluate(context.Background(), ictx, ResourceEvent, "event-missing", "EVENTS_VIEW")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRuleDenied, decision.Reason)
}

func TestEventRuleStoreErrorFailsClosed(t *testing.T) {
	store := newMockStore()
	store.addEvent("event-1", "tour-1", "Opening Night")
	store.eventTourErr = assert.AnError
	engine := NewRuleEngine(store, testLogger())
	ictx := isolationCtx(nil, map[string][]string{"tour-1": {"EVENTS_VIEW"}})

	decision := engine.Evaluate(context.Background(), ictx, ResourceEvent, "event-1", "EVENTS_VIEW")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonStoreError, decision.Reason)
}

func TestAddRuleReplacesByType(t *testing.T) {
	engine := NewRuleEngine(newMockStore(), testLogger())
	denyAll := func(context.Context, *DataIsolationContext, string, string) (bool, error) {
		return false, nil
	}

	err := engine.AddRule(IsolationRule{Name: "tour-lockdown", ResourceType: ResourceTour, Predicate: denyAll})
	require.NoError(t, err)

	rule, ok := engine.Rule(ResourceTour)
	require.True(t, ok)
	assert.Equal(t, "tour-lockdown", rule.Name)

	ictx := isolationCtx([]string{"TOURS_VIEW"}, nil)
	decision := engine.Evaluate(context.Background(), ictx, ResourceTour, "tour-1", "TOURS_VIEW")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRuleDenied, decision.Reason)
}

func TestAddRuleNameCollision(t *testing.T) {
	engine := NewRuleEngine(newMockStore(), testLogger())
	allow := func(context.Context, *DataIsolationContext, string, string) (bool, error) {
		return true, nil
	}

	err := engine.AddRule(IsolationRule{Name: "tour-scope", ResourceType: "merchandise", Predicate: allow})
	require.ErrorIs(t, err, ErrRuleExists)
}

func TestRemoveRule(t *testing.T) {
	engine := NewRuleEngine(newMockStore(), testLogger())

	require.NoError(t, engine.RemoveRule("tour-scope"))
	_, ok := engine.Rule(ResourceTour)
	assert.False(t, ok)

	ictx := isolationCtx([]string{"TOURS_VIEW"}, nil)
	decision := engine.Evaluate(context.Background(), ictx, ResourceTour, "tour-1", "TOURS_VIEW")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoRule, decision.Reason)

	require.ErrorIs(t, engine.RemoveRule("tour-scope"), ErrNoSuchRule)
}

func TestNewRuleEngineRegistersDefaults(t *testing.T) {
	engine := NewRuleEngine(newMockStore(), testLogger())
	for _, resourceType := range []string{ResourceTour, ResourceEvent, ResourceStaff, ResourceFinancial, ResourceLogistics} {
		_, ok := engine.Rule(resourceType)
		assert.True(t, ok, resourceType)
	}
}
