package enums

import (
	"fmt"
	"slices"
	"strings"
)

// ServiceRequestStatus maps to the service_request_status enum in Postgres.
type ServiceRequestStatus string

const (
	ServiceRequestStatusPendingVerification ServiceRequestStatus = "PENDING_VERIFICATION"
	ServiceRequestStatusActive              ServiceRequestStatus = "ACTIVE"
	ServiceRequestStatusCancelled           ServiceRequestStatus = "CANCELLED"
	ServiceRequestStatusClosed              ServiceRequestStatus = "CLOSED"
	ServiceRequestStatusExpired             ServiceRequestStatus = "EXPIRED"
)

var validServiceRequestStatuses = []ServiceRequestStatus{
	ServiceRequestStatusPendingVerification,
	ServiceRequestStatusActive,
	ServiceRequestStatusCancelled,
	ServiceRequestStatusClosed,
	ServiceRequestStatusExpired,
}

// legacyServiceRequestStatuses maps spellings older clients still send.
var legacyServiceRequestStatuses = map[string]ServiceRequestStatus{
	"SUBMITTED": ServiceRequestStatusActive,
	"OPEN":      ServiceRequestStatusActive,
	"CANCELED":  ServiceRequestStatusCancelled,
}

// String implements fmt.Stringer.
func (s ServiceRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical enum.
func (s ServiceRequestStatus) IsValid() bool {
	return slices.Contains(validServiceRequestStatuses, s)
}

// IsTerminal reports whether no further transition is allowed.
func (s ServiceRequestStatus) IsTerminal() bool {
	switch s {
	case ServiceRequestStatusCancelled, ServiceRequestStatusClosed, ServiceRequestStatusExpired:
		return true
	}
	return false
}

// ParseServiceRequestStatus converts raw input, including legacy spellings such
// as "SUBMITTED" or "Active", into a canonical status.
func ParseServiceRequestStatus(value string) (ServiceRequestStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validServiceRequestStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if mapped, ok := legacyServiceRequestStatuses[normalized]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("invalid service request status %q", value)
}

// CloseReason is the fixed reason list offered when a customer closes or
// cancels a request.
type CloseReason string

const (
	CloseReasonFoundAnotherProvider CloseReason = "FOUND_ANOTHER_PROVIDER"
	CloseReasonNoLongerNeeded       CloseReason = "NO_LONGER_NEEDED"
	CloseReasonTooExpensive         CloseReason = "TOO_EXPENSIVE"
	CloseReasonPoorQuotes           CloseReason = "POOR_QUOTES"
	CloseReasonOther                CloseReason = "OTHER"
)

var validCloseReasons = []CloseReason{
	CloseReasonFoundAnotherProvider,
	CloseReasonNoLongerNeeded,
	CloseReasonTooExpensive,
	CloseReasonPoorQuotes,
	CloseReasonOther,
}

// ParseCloseReason converts raw input into a CloseReason.
func ParseCloseReason(value string) (CloseReason, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validCloseReasons {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid close reason %q", value)
}

// Frequency describes how often the requested service recurs.
type Frequency string

const (
	FrequencyOneTime  Frequency = "One-time service"
	FrequencyDaily    Frequency = "Daily"
	FrequencyWeekly   Frequency = "Weekly"
	FrequencyBiWeekly Frequency = "Bi-weekly"
	FrequencyMonthly  Frequency = "Monthly"
)

var validFrequencies = []Frequency{
	FrequencyOneTime,
	FrequencyDaily,
	FrequencyWeekly,
	FrequencyBiWeekly,
	FrequencyMonthly,
}

// ParseFrequency converts raw input into a Frequency.
func ParseFrequency(value string) (Frequency, error) {
	for _, candidate := range validFrequencies {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid frequency %q", value)
}

type ClientType string

const (
	ClientTypeIndividual ClientType = "Individual"
	ClientTypeCompany    ClientType = "Company"
)

// ParseClientType converts raw input into a ClientType.
func ParseClientType(value string) (ClientType, error) {
	switch {
	case strings.EqualFold(value, string(ClientTypeIndividual)):
		return ClientTypeIndividual, nil
	case strings.EqualFold(value, string(ClientTypeCompany)):
		return ClientTypeCompany, nil
	}
	return "", fmt.Errorf("invalid client type %q", value)
}
