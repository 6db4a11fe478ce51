package services

// Capability strings checked through the gate.
const (
	PermOrderCreate = "order.create"
	PermOrderUpdate = "order.update"
	PermTableReset  = "table.reset"
	PermMenuUpdate  = "menu.update"
)

// Principal identifies the acting party: a staff user (Subject = user id) or a
// guest device (Subject = session key, Role = "guest").
type Principal struct {
	Subject      string
	Role         string
	RestaurantID uint
}

// CapabilityGate answers "may this principal perform this action against this
// restaurant". It is consumed strictly as a boolean predicate.
type CapabilityGate interface {
	HasPermission(p Principal, restaurantID uint, action string) bool
}

var rolePermissions = map[string]map[string]bool{
	"admin": {
		PermOrderCreate: true,
		PermOrderUpdate: true,
		PermTableReset:  true,
		PermMenuUpdate:  true,
	},
	"staff": {
		PermOrderCreate: true,
		PermOrderUpdate: true,
		PermTableReset:  true,
	},
	"chef": {
		PermOrderUpdate: true,
	},
	"guest": {
		PermOrderCreate: true,
	},
}

// RoleGate grants capabilities from the principal's role, scoped to the
// principal's own restaurant.
type RoleGate struct{}

func (RoleGate) HasPermission(p Principal, restaurantID uint, action string) bool {
	if p.RestaurantID != restaurantID {
		return false
	}
	return rolePermissions[p.Role][action]
}
