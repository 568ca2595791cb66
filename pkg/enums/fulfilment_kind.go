package enums

import "fmt"

// FulfilmentKind maps to the fulfilment_kind enum in Postgres.
type FulfilmentKind string

const (
	FulfilmentKindCollection FulfilmentKind = "collection"
	FulfilmentKindDelivery   FulfilmentKind = "delivery"
)

var validFulfilmentKinds = []FulfilmentKind{
	FulfilmentKindCollection,
	FulfilmentKindDelivery,
}

// IsValid reports whether the value matches the canonical fulfilment kind enum.
func (k FulfilmentKind) IsValid() bool {
	for _, candidate := range validFulfilmentKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ReadyStatus returns the order status an in-preparation order moves to when
// the kitchen is done, given the order's fulfilment kind.
func (k FulfilmentKind) ReadyStatus() OrderStatus {
	if k == FulfilmentKindDelivery {
		return OrderStatusOutForDelivery
	}
	return OrderStatusReadyForCollection
}

// ParseFulfilmentKind converts raw input into FulfilmentKind.
func ParseFulfilmentKind(value string) (FulfilmentKind, error) {
	for _, candidate := range validFulfilmentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfilment kind %q", value)
}
