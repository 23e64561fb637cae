package enums

import (
	"fmt"
	"slices"
)

// QuoteStatus maps to the vendor_quote_status enum in Postgres.
type QuoteStatus string

const (
	QuoteStatusSent     QuoteStatus = "SENT"
	QuoteStatusIgnored  QuoteStatus = "IGNORED"
	QuoteStatusAccepted QuoteStatus = "ACCEPTED"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusSent,
	QuoteStatusIgnored,
	QuoteStatusAccepted,
}

// String implements fmt.Stringer.
func (s QuoteStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical enum.
func (s QuoteStatus) IsValid() bool {
	return slices.Contains(validQuoteStatuses, s)
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	return parseEnum(validQuoteStatuses, value, "quote status")
}

// QuoteSort enumerates the listing orders offered to customers.
type QuoteSort string

const (
	QuoteSortNewest    QuoteSort = "newest"
	QuoteSortPriceAsc  QuoteSort = "price_asc"
	QuoteSortPriceDesc QuoteSort = "price_desc"
)

// ParseQuoteSort defaults to newest when value is empty.
func ParseQuoteSort(value string) (QuoteSort, error) {
	switch QuoteSort(value) {
	case "":
		return QuoteSortNewest, nil
	case QuoteSortNewest, QuoteSortPriceAsc, QuoteSortPriceDesc:
		return QuoteSort(value), nil
	}
	return "", fmt.Errorf("invalid quote sort %q", value)
}
