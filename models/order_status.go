package models

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderCancelled OrderStatus = "cancelled"
)

// orderEdges is the single authoritative table of permitted status transitions.
// Cancellation stops being possible once the kitchen has the food ready.
var orderEdges = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderServed},
	OrderServed:    {},
	OrderCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderEdges[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return len(orderEdges[s]) == 0 && s.Valid()
}

// CanTransitionTo reports whether the edge s -> target is permitted.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderEdges[s] {
		if next == target {
			return true
		}
	}
	return false
}
