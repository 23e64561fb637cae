package enums

import (
	"fmt"
	"strings"
)

// TransactionType is the direction of a credit ledger entry.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// ParseTransactionType converts raw input into a TransactionType. The
// dashboard's older "purchase" and "deduction" filters are accepted too.
func ParseTransactionType(value string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "credit", "purchase":
		return TransactionTypeCredit, nil
	case "debit", "deduction":
		return TransactionTypeDebit, nil
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

// TransactionStatus is always completed; no asynchronous settlement exists.
type TransactionStatus string

const TransactionStatusCompleted TransactionStatus = "completed"

// TransactionReferenceType identifies what caused a ledger entry.
type TransactionReferenceType string

const (
	TransactionReferenceLeadUnlock     TransactionReferenceType = "lead_unlock"
	TransactionReferenceCreditPurchase TransactionReferenceType = "credit_purchase"
)

// TransactionPeriod is a relative window accepted by the transactions listing.
type TransactionPeriod string

const (
	TransactionPeriodLast30Days  TransactionPeriod = "last_30_days"
	TransactionPeriodLast3Months TransactionPeriod = "last_3_months"
	TransactionPeriodLast6Months TransactionPeriod = "last_6_months"
)

// ParseTransactionPeriod converts raw input into a TransactionPeriod.
func ParseTransactionPeriod(value string) (TransactionPeriod, error) {
	switch TransactionPeriod(value) {
	case TransactionPeriodLast30Days, TransactionPeriodLast3Months, TransactionPeriodLast6Months:
		return TransactionPeriod(value), nil
	}
	return "", fmt.Errorf("invalid transaction period %q", value)
}

// CategoryStatus gates whether a service category is offered.
type CategoryStatus string

const (
	CategoryStatusActive   CategoryStatus = "ACTIVE"
	CategoryStatusInactive CategoryStatus = "INACTIVE"
)
