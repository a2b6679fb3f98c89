package rbac

import "github.com/paras-verma7454/DriveDeck/internal/auth"

// Permission keys known to the service. Routes gate on these; the seeder
// inserts them.
const (
	PermCarsCreate      = "cars.create"
	PermCarsEdit        = "cars.edit"
	PermCarsDelete      = "cars.delete"
	PermCarsView        = "cars.view"
	PermUsersDelete     = "users.delete"
	PermUsersView       = "users.view"
	PermRolesView       = "roles.view"
	PermRolesManage     = "roles.manage"
	PermPermissionsView = "permissions.view"
)

const (
	RoleAdmin  = auth.AdminRoleName
	RoleVendor = auth.RoleVendor
	RoleUser   = auth.RoleUser
)

// Catalogue is the seeded permission set, in insertion order.
var Catalogue = []string{
	PermCarsCreate,
	PermCarsEdit,
	PermCarsDelete,
	PermCarsView,
	PermUsersDelete,
	PermUsersView,
	PermRolesView,
	PermRolesManage,
	PermPermissionsView,
}

// DefaultGrants are the permissions each seeded role starts with. Admin gets
// none; it passes every gate regardless of grants.
var DefaultGrants = map[string][]string{
	RoleAdmin:  {},
	RoleVendor: {PermCarsCreate, PermCarsEdit, PermCarsDelete, PermCarsView},
	RoleUser:   {PermCarsView},
}
