package enums

import "fmt"

// OrderProvenance records who entered the order.
type OrderProvenance string

const (
	OrderProvenanceCustomer OrderProvenance = "customer"
	OrderProvenanceManual   OrderProvenance = "manual"
)

var validOrderProvenances = []OrderProvenance{
	OrderProvenanceCustomer,
	OrderProvenanceManual,
}

// IsValid reports whether the value matches the canonical provenance enum.
func (p OrderProvenance) IsValid() bool {
	for _, candidate := range validOrderProvenances {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseOrderProvenance converts raw input into OrderProvenance.
func ParseOrderProvenance(value string) (OrderProvenance, error) {
	for _, candidate := range validOrderProvenances {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order provenance %q", value)
}
