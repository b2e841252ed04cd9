package shared

// Core platform permissions.
const (
	PermUsersRead   = "users:read"
	PermUsersManage = "users:manage"

	PermRolesRead   = "roles:read"
	PermRolesManage = "roles:manage"

	PermPermissionsRead = "permissions:read"

	PermAuditRead = "audit:read"
)

// Dealership permissions.
const (
	PermVehiclesRead    = "vehicles:read"
	PermVehiclesCreate  = "vehicles:create"
	PermVehiclesUpdate  = "vehicles:update"
	PermVehiclesDelete  = "vehicles:delete"
	PermVehiclesPublish = "vehicles:publish"

	PermCustomersRead   = "customers:read"
	PermCustomersCreate = "customers:create"
	PermCustomersUpdate = "customers:update"
	PermCustomersDelete = "customers:delete"

	PermLeadsRead    = "leads:read"
	PermLeadsCreate  = "leads:create"
	PermLeadsUpdate  = "leads:update"
	PermLeadsAssign  = "leads:assign"
	PermLeadsConvert = "leads:convert"

	PermInvoicesRead   = "invoices:read"
	PermInvoicesCreate = "invoices:create"
	PermInvoicesUpdate = "invoices:update"
	PermInvoicesVoid   = "invoices:void"

	PermMarketplaceRead    = "marketplace:read"
	PermMarketplacePublish = "marketplace:publish"
	PermMarketplaceSync    = "marketplace:sync"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersRead,
		PermUsersManage,
		PermRolesRead,
		PermRolesManage,
		PermPermissionsRead,
		PermAuditRead,
	}
}

// DealershipScopes lists all permissions covering dealership operations.
func DealershipScopes() []string {
	return []string{
		PermVehiclesRead,
		PermVehiclesCreate,
		PermVehiclesUpdate,
		PermVehiclesDelete,
		PermVehiclesPublish,
		PermCustomersRead,
		PermCustomersCreate,
		PermCustomersUpdate,
		PermCustomersDelete,
		PermLeadsRead,
		PermLeadsCreate,
		PermLeadsUpdate,
		PermLeadsAssign,
		PermLeadsConvert,
		PermInvoicesRead,
		PermInvoicesCreate,
		PermInvoicesUpdate,
		PermInvoicesVoid,
		PermMarketplaceRead,
		PermMarketplacePublish,
		PermMarketplaceSync,
	}
}
