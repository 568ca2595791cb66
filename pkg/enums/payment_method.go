package enums

import "fmt"

// PaymentMethod maps to the payment_method enum in Postgres.
type PaymentMethod string

const (
	PaymentMethodCash            PaymentMethod = "cash"
	PaymentMethodCardOnHandover  PaymentMethod = "card_on_handover"
	PaymentMethodEFT             PaymentMethod = "eft"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodCardOnHandover,
	PaymentMethodEFT,
}

// IsValid reports whether the value matches the canonical payment method enum.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
