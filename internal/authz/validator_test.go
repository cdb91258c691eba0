package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KyleQD/Flow-sub006/internal/shared"
)

// stubDecider records the permission it was asked about and answers with a
// fixed verdict.
type stubDecider struct {
	allow     bool
	calls     int
	lastPerm  string
	lastRType string
}

func (d *stubDecider) CanAccessResource(_ context.Context, _, resourceType, _, requiredPerm string) bool {
	d.calls++
	d.lastPerm = requiredPerm
	d.lastRType = resourceType
	return d.allow
}

func TestValidateModificationPermissionMapping(t *testing.T) {
	cases := []struct {
		resourceType string
		op           Operation
		wantPerm     string
	}{
		{ResourceTour, OpCreate, shared.PermToursCreate},
		{ResourceTour, OpUpdate, shared.PermToursEdit},
		{ResourceTour, OpDelete, shared.PermToursDelete},
		{ResourceEvent, OpCreate, shared.PermEventsCreate},
		{ResourceEvent, OpUpdate, shared.PermEventsEdit},
		{ResourceEvent, OpDelete, shared.PermEventsDelete},
		{ResourceStaff, OpCreate, shared.PermStaffInvite},
		{ResourceStaff, OpUpdate, shared.PermStaffManage},
		{ResourceStaff, OpDelete, shared.PermStaffRemove},
		{ResourceFinancial, OpCreate, shared.PermFinancesEdit},
		{ResourceFinancial, OpUpdate, shared.PermFinancesEdit},
		{ResourceFinancial, OpDelete, shared.PermFinancesDelete},
		{ResourceLogistics, OpCreate, shared.PermLogisticsEdit},
		{ResourceLogistics, OpUpdate, shared.PermLogisticsEdit},
		{ResourceLogistics, OpDelete, shared.PermLogisticsDelete},
	}
	for _, tc := range cases {
		decider := &stubDecider{allow: true}
		validator := NewValidator(decider)

		result := validator.ValidateModification(context.Background(), "user-1", tc.resourceType, "res-1", tc.op)
		assert.True(t, result.Allowed, "%s %s", tc.resourceType, tc.op)
		assert.Equal(t, tc.wantPerm, decider.lastPerm, "%s %s", tc.resourceType, tc.op)

		perm, ok := RequiredPermission(tc.resourceType, tc.op)
		assert.True(t, ok)
		assert.Equal(t, tc.wantPerm, perm)
	}
}

func TestValidateModificationUnknownResourceType(t *testing.T) {
	decider := &stubDecider{allow: true}
	validator := NewValidator(decider)

	result := validator.ValidateModification(context.Background(), "user-1", "merchandise", "m-1", OpCreate)
	assert.False(t, result.Allowed)
	assert.Equal(t, "Unknown resource type", result.Reason)
	assert.Zero(t, decider.calls)

	_, ok := RequiredPermission("merchandise", OpCreate)
	assert.False(t, ok)
}

func TestValidateModificationUnsupportedOperation(t *testing.T) {
	decider := &stubDecider{allow: true}
	validator := NewValidator(decider)

	result := validator.ValidateModification(context.Background(), "user-1", ResourceTour, "tour-1", Operation("archive"))
	assert.False(t, result.Allowed)
	assert.Equal(t, "Unsupported operation archive on tour", result.Reason)
	assert.Zero(t, decider.calls)
}

func TestValidateModificationInsufficientPermissions(t *testing.T) {
	decider := &stubDecider{allow: false}
	validator := NewValidator(decider)

	result := validator.ValidateModification(context.Background(), "user-1", ResourceTour, "tour-1", OpDelete)
	assert.False(t, result.Allowed)
	assert.Equal(t, "Insufficient permissions for delete on tour", result.Reason)
	assert.Equal(t, 1, decider.calls)
}
