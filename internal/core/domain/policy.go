package domain

// Action is a capability checked against the caller's role.
type Action string

const (
	ActionCreateOrder       Action = "create_order"
	ActionViewOwnOrders     Action = "view_own_orders"
	ActionViewAnyOrder      Action = "view_any_order"
	ActionViewAllOrders     Action = "view_all_orders"
	ActionViewOrderStats    Action = "view_order_stats"
	ActionUpdateOrderStatus Action = "update_order_status"
	ActionCancelOwnOrder    Action = "cancel_own_order"
	ActionCancelAnyOrder    Action = "cancel_any_order"
	ActionManageProducts    Action = "manage_products"
	ActionListUsers         Action = "list_users"
)

// policy is the static capability table. Pairs missing from it are denied.
var policy = map[Action]map[Role]bool{
	ActionCreateOrder:       {RoleClient: true},
	ActionViewOwnOrders:     {RoleClient: true},
	ActionViewAnyOrder:      {RoleAdmin: true},
	ActionViewAllOrders:     {RoleAdmin: true},
	ActionViewOrderStats:    {RoleAdmin: true},
	ActionUpdateOrderStatus: {RoleAdmin: true},
	ActionCancelOwnOrder:    {RoleClient: true},
	ActionCancelAnyOrder:    {RoleAdmin: true},
	ActionManageProducts:    {RoleAdmin: true},
	ActionListUsers:         {RoleAdmin: true},
}

// Actions lists every action known to the policy table.
func Actions() []Action {
	return []Action{
		ActionCreateOrder,
		ActionViewOwnOrders,
		ActionViewAnyOrder,
		ActionViewAllOrders,
		ActionViewOrderStats,
		ActionUpdateOrderStatus,
		ActionCancelOwnOrder,
		ActionCancelAnyOrder,
		ActionManageProducts,
		ActionListUsers,
	}
}

// Allows reports whether role may perform action.
func Allows(action Action, role Role) bool {
	return policy[action][role]
}

// AuthorizeOwned checks access to a resource owned by ownerID. anyAction
// grants access regardless of owner; ownAction grants it only to the owner.
func AuthorizeOwned(caller Caller, anyAction, ownAction Action, ownerID string) error {
	if Allows(anyAction, caller.Role) {
		return nil
	}
	if Allows(ownAction, caller.Role) && ownerID != "" && ownerID == caller.UserID {
		return nil
	}
	return ErrForbidden
}

// Authorize returns ErrForbidden unless caller's role allows action.
func Authorize(caller Caller, action Action) error {
	if !Allows(action, caller.Role) {
		return ErrForbidden
	}
	return nil
}
