package identity

// Permission is a capability key checked before every mutation
type Permission string

const (
	PermProductsView   Permission = "PRODUCTS_VIEW"
	PermProductsCreate Permission = "PRODUCTS_CREATE"
	PermProductsUpdate Permission = "PRODUCTS_UPDATE"
	PermProductsDelete Permission = "PRODUCTS_DELETE"

	PermSalesView   Permission = "SALES_VIEW"
	PermSalesCreate Permission = "SALES_CREATE"
	PermSalesUpdate Permission = "SALES_UPDATE"
	PermSalesDelete Permission = "SALES_DELETE"

	PermStockView   Permission = "STOCK_VIEW"
	PermStockAdjust Permission = "STOCK_ADJUST"
	PermStockReset  Permission = "STOCK_RESET"

	PermArrivagesView   Permission = "ARRIVAGES_VIEW"
	PermArrivagesCreate Permission = "ARRIVAGES_CREATE"
	PermArrivagesUpdate Permission = "ARRIVAGES_UPDATE"
	PermArrivagesDelete Permission = "ARRIVAGES_DELETE"

	PermExpensesView   Permission = "EXPENSES_VIEW"
	PermExpensesCreate Permission = "EXPENSES_CREATE"
	PermExpensesUpdate Permission = "EXPENSES_UPDATE"
	PermExpensesDelete Permission = "EXPENSES_DELETE"

	PermDashboardView Permission = "DASHBOARD_VIEW"

	PermSettingsView   Permission = "SETTINGS_VIEW"
	PermSettingsUpdate Permission = "SETTINGS_UPDATE"

	PermUsersView        Permission = "USERS_VIEW"
	PermUsersManageRoles Permission = "USERS_MANAGE_ROLES"
)

var (
	staffUp      = roleSet(RoleStaff, RoleAdmin, RoleSuperAdmin)
	adminUp      = roleSet(RoleAdmin, RoleSuperAdmin)
	superOnly    = roleSet(RoleSuperAdmin)
	permissionOf = map[Permission]map[Role]struct{}{
		PermProductsView:   staffUp,
		PermProductsCreate: adminUp,
		PermProductsUpdate: adminUp,
		PermProductsDelete: adminUp,

		PermSalesView:   staffUp,
		PermSalesCreate: staffUp,
		PermSalesUpdate: adminUp,
		PermSalesDelete: adminUp,

		PermStockView:   staffUp,
		PermStockAdjust: staffUp,
		PermStockReset:  superOnly,

		PermArrivagesView:   staffUp,
		PermArrivagesCreate: adminUp,
		PermArrivagesUpdate: adminUp,
		PermArrivagesDelete: adminUp,

		PermExpensesView:   adminUp,
		PermExpensesCreate: adminUp,
		PermExpensesUpdate: adminUp,
		PermExpensesDelete: adminUp,

		PermDashboardView: staffUp,

		PermSettingsView:   adminUp,
		PermSettingsUpdate: adminUp,

		PermUsersView:        adminUp,
		PermUsersManageRoles: superOnly,
	}
)

func roleSet(roles ...Role) map[Role]struct{} {
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// AllPermissions lists every permission key in declaration order
func AllPermissions() []Permission {
	return []Permission{
		PermProductsView, PermProductsCreate, PermProductsUpdate, PermProductsDelete,
		PermSalesView, PermSalesCreate, PermSalesUpdate, PermSalesDelete,
		PermStockView, PermStockAdjust, PermStockReset,
		PermArrivagesView, PermArrivagesCreate, PermArrivagesUpdate, PermArrivagesDelete,
		PermExpensesView, PermExpensesCreate, PermExpensesUpdate, PermExpensesDelete,
		PermDashboardView,
		PermSettingsView, PermSettingsUpdate,
		PermUsersView, PermUsersManageRoles,
	}
}

// AllowedRoles returns the roles holding p, lowest rank first
func AllowedRoles(p Permission) []Role {
	set := permissionOf[p]
	roles := make([]Role, 0, len(set))
	for _, r := range AllRoles() {
		if _, ok := set[r]; ok {
			roles = append(roles, r)
		}
	}
	return roles
}

// HasPermission is a pure membership test; unknown roles and keys are denied
func HasPermission(r Role, p Permission) bool {
	_, ok := permissionOf[p][r]
	return ok
}

// PermissionsFor lists the keys r holds
func PermissionsFor(r Role) []Permission {
	perms := make([]Permission, 0)
	for _, p := range AllPermissions() {
		if HasPermission(r, p) {
			perms = append(perms, p)
		}
	}
	return perms
}

// ParsePermission resolves a key string
func ParsePermission(s string) (Permission, bool) {
	p := Permission(s)
	_, ok := permissionOf[p]
	return p, ok
}

func (p Permission) String() string {
	return string(p)
}
