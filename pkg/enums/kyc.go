package enums

import "slices"

// KYCStatus captures the vendor verification workflow.
type KYCStatus string

const (
	KYCStatusPendingVerification KYCStatus = "pending_verification"
	KYCStatusVerified            KYCStatus = "verified"
	KYCStatusRejected            KYCStatus = "rejected"
	KYCStatusExpired             KYCStatus = "expired"
	KYCStatusSuspended           KYCStatus = "suspended"
)

var validKYCStatuses = []KYCStatus{
	KYCStatusPendingVerification,
	KYCStatusVerified,
	KYCStatusRejected,
	KYCStatusExpired,
	KYCStatusSuspended,
}

// String implements fmt.Stringer.
func (s KYCStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the enum.
func (s KYCStatus) IsValid() bool {
	return slices.Contains(validKYCStatuses, s)
}

// IsApproved reports whether the vendor may purchase or unlock leads.
func (s KYCStatus) IsApproved() bool {
	return s == KYCStatusVerified
}

// ParseKYCStatus converts raw input into a KYCStatus.
func ParseKYCStatus(value string) (KYCStatus, error) {
	return parseEnum(validKYCStatuses, value, "KYC status")
}
