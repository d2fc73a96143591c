package authorization

const (
	RoleAdmin                = "admin"
	RoleProductionManager    = "production_manager"
	RoleSales                = "sales"
	RoleAccountant           = "accountant"
	RoleCashier              = "cashier"
	RoleWarehouseKeeper      = "Warehouse_Keeper"
	RoleWarehouseProducts    = "Warehouse_Products"
	RoleDissectionTechnician = "Dissection_Technician"
	RoleCuttingTechnician    = "Cutting_Technician"
	RoleGluingTechnician     = "Gluing_Technician"
)

const (
	ObjectOrder           = "order"
	ObjectInvoice         = "invoice"
	ObjectDiscount        = "discount"
	ObjectCustomer        = "customer"
	ObjectProductionOrder = "production_order"
	ObjectProductionItem  = "production_item"
	ObjectProcess         = "process"
	ObjectSlite           = "slite"

	// ObjectProductionType policies carry the production type as action.
	ObjectProductionType = "production_type"
)

const (
	ActionView         = "view"
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionUpdateStatus = "update_status"
	ActionPay          = "pay"
)

// ProductionTypes lists every manufacturing stage in routing order.
var ProductionTypes = []string{"warehouse", "slitting", "cutting", "gluing"}

// Grant allows Roles to perform Action on Object.
type Grant struct {
	Object string
	Action string
	Roles  []string
}

var (
	sellers         = []string{RoleAdmin, RoleSales, RoleCashier}
	salesReaders    = []string{RoleAdmin, RoleSales, RoleAccountant, RoleCashier}
	billing         = []string{RoleAdmin, RoleSales, RoleAccountant}
	managers        = []string{RoleAdmin, RoleProductionManager}
	productionDesk  = []string{RoleAdmin, RoleProductionManager, RoleSales, RoleAccountant}
	floorOperators  = []string{RoleAdmin, RoleProductionManager, RoleWarehouseKeeper, RoleDissectionTechnician, RoleCuttingTechnician, RoleGluingTechnician}
	itemOperators   = []string{RoleAdmin, RoleProductionManager, RoleWarehouseKeeper, RoleWarehouseProducts, RoleDissectionTechnician, RoleCuttingTechnician, RoleGluingTechnician}
	everyStaffRole  = []string{RoleAdmin, RoleProductionManager, RoleSales, RoleAccountant, RoleCashier}
	itemVisibleRole = append(append([]string{}, itemOperators...), RoleSales, RoleAccountant)
)

// ResourceGrants is the role table behind every route guard.
var ResourceGrants = []Grant{
	{ObjectOrder, ActionView, salesReaders},
	{ObjectOrder, ActionCreate, sellers},
	{ObjectOrder, ActionUpdate, sellers},
	{ObjectOrder, ActionUpdateStatus, sellers},
	{ObjectOrder, ActionDelete, []string{RoleAdmin, RoleSales}},

	{ObjectInvoice, ActionView, salesReaders},
	{ObjectInvoice, ActionCreate, billing},
	{ObjectInvoice, ActionUpdate, billing},
	{ObjectInvoice, ActionDelete, billing},
	{ObjectInvoice, ActionPay, billing},

	{ObjectDiscount, ActionView, everyStaffRole},
	{ObjectDiscount, ActionCreate, []string{RoleAdmin}},
	{ObjectDiscount, ActionUpdate, []string{RoleAdmin}},
	{ObjectDiscount, ActionDelete, []string{RoleAdmin}},

	{ObjectCustomer, ActionView, salesReaders},

	{ObjectProductionOrder, ActionView, productionDesk},
	{ObjectProductionOrder, ActionCreate, managers},
	{ObjectProductionOrder, ActionUpdate, managers},
	{ObjectProductionOrder, ActionDelete, managers},

	{ObjectProductionItem, ActionView, itemVisibleRole},
	{ObjectProductionItem, ActionCreate, managers},
	{ObjectProductionItem, ActionUpdate, managers},
	{ObjectProductionItem, ActionUpdateStatus, itemOperators},
	{ObjectProductionItem, ActionDelete, managers},

	{ObjectProcess, ActionView, floorOperators},
	{ObjectProcess, ActionCreate, floorOperators},
	{ObjectProcess, ActionUpdate, floorOperators},
	{ObjectProcess, ActionDelete, managers},

	{ObjectSlite, ActionView, floorOperators},
	{ObjectSlite, ActionCreate, floorOperators},
	{ObjectSlite, ActionUpdate, floorOperators},
	{ObjectSlite, ActionDelete, managers},
}

// ProductionTypeGrants maps each floor role to the stages it may touch.
var ProductionTypeGrants = map[string][]string{
	RoleAdmin:                ProductionTypes,
	RoleProductionManager:    ProductionTypes,
	RoleWarehouseKeeper:      {"warehouse"},
	RoleWarehouseProducts:    {"warehouse"},
	RoleDissectionTechnician: {"slitting"},
	RoleCuttingTechnician:    {"cutting"},
	RoleGluingTechnician:     {"gluing"},
}

func subject(role string) string {
	return "role:" + role
}

// rules expands the tables into casbin policy lines.
func rules() [][]string {
	out := make([][]string, 0, len(ResourceGrants)*4)
	for _, g := range ResourceGrants {
		for _, role := range g.Roles {
			out = append(out, []string{subject(role), g.Object, g.Action})
		}
	}
	for role, types := range ProductionTypeGrants {
		for _, t := range types {
			out = append(out, []string{subject(role), ObjectProductionType, t})
		}
	}
	return out
}
