package orders

import "modestblooming-backend/models"

var transitions = map[string][]string{
	models.OrderPending: {models.OrderPaid, models.OrderCancelled},
	models.OrderPaid:    {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped: {models.OrderDelivered},
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case models.OrderPending, models.OrderPaid, models.OrderShipped, models.OrderDelivered, models.OrderCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
