package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type enum in Postgres.
type LedgerEntryType string

const (
	LedgerEntryTypeTopup      LedgerEntryType = "topup"
	LedgerEntryTypeRefund     LedgerEntryType = "refund"
	LedgerEntryTypeFeeDebit   LedgerEntryType = "fee_debit"
	LedgerEntryTypeFeeReserve LedgerEntryType = "fee_reserve"
	LedgerEntryTypePayout     LedgerEntryType = "payout"
	LedgerEntryTypeAdjustment LedgerEntryType = "adjustment"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeTopup,
	LedgerEntryTypeRefund,
	LedgerEntryTypeFeeDebit,
	LedgerEntryTypeFeeReserve,
	LedgerEntryTypePayout,
	LedgerEntryTypeAdjustment,
}

// IsValid reports whether the value matches the canonical ledger entry type enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// BalanceMultiplier returns the sign the entry type applies to a store balance:
// +1 credits, -1 debits, 0 informational only.
func (t LedgerEntryType) BalanceMultiplier() int {
	switch t {
	case LedgerEntryTypeTopup, LedgerEntryTypeRefund:
		return 1
	case LedgerEntryTypeFeeDebit, LedgerEntryTypePayout:
		return -1
	default:
		return 0
	}
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
