package shared

// Permission identifiers for the tour management platform. The catalog is
// closed: checks are exact set membership against these names, never prefix
// or pattern matching.
const (
	PermToursView   = "TOURS_VIEW"
	PermToursCreate = "TOURS_CREATE"
	PermToursEdit   = "TOURS_EDIT"
	PermToursDelete = "TOURS_DELETE"

	PermEventsView   = "EVENTS_VIEW"
	PermEventsCreate = "EVENTS_CREATE"
	PermEventsEdit   = "EVENTS_EDIT"
	PermEventsDelete = "EVENTS_DELETE"

	PermStaffView   = "STAFF_VIEW"
	PermStaffInvite = "STAFF_INVITE"
	PermStaffManage = "STAFF_MANAGE"
	PermStaffRemove = "STAFF_REMOVE"

	PermFinancesView   = "FINANCES_VIEW"
	PermFinancesEdit   = "FINANCES_EDIT"
	PermFinancesDelete = "FINANCES_DELETE"

	PermLogisticsView   = "LOGISTICS_VIEW"
	PermLogisticsEdit   = "LOGISTICS_EDIT"
	PermLogisticsDelete = "LOGISTICS_DELETE"

	PermRolesManage = "ROLES_MANAGE"
	PermUsersManage = "USERS_MANAGE"
	PermAuditView   = "AUDIT_VIEW"
)

// Permission categories, used for display grouping only.
const (
	CategoryTours     = "tours"
	CategoryEvents    = "events"
	CategoryStaff     = "staff"
	CategoryFinances  = "finances"
	CategoryLogistics = "logistics"
	CategoryPlatform  = "platform"
)

// CatalogPermissions lists every permission in the closed catalog, keyed by
// category. Seeding and admin listings iterate this; enforcement never does.
func CatalogPermissions() map[string][]string {
	return map[string][]string{
		CategoryTours:     {PermToursView, PermToursCreate, PermToursEdit, PermToursDelete},
		CategoryEvents:    {PermEventsView, PermEventsCreate, PermEventsEdit, PermEventsDelete},
		CategoryStaff:     {PermStaffView, PermStaffInvite, PermStaffManage, PermStaffRemove},
		CategoryFinances:  {PermFinancesView, PermFinancesEdit, PermFinancesDelete},
		CategoryLogistics: {PermLogisticsView, PermLogisticsEdit, PermLogisticsDelete},
		CategoryPlatform:  {PermRolesManage, PermUsersManage, PermAuditView},
	}
}
