package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusPending            OrderStatus = "pending"
	OrderStatusAccepted           OrderStatus = "accepted"
	OrderStatusInPreparation      OrderStatus = "in_preparation"
	OrderStatusReadyForCollection OrderStatus = "ready_for_collection"
	OrderStatusOutForDelivery     OrderStatus = "out_for_delivery"
	OrderStatusCompleted          OrderStatus = "completed"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusInPreparation,
	OrderStatusReadyForCollection,
	OrderStatusOutForDelivery,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// IsValid reports whether the value matches the canonical order status enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
