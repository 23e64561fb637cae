package auth

import (
	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/enums"
)

// Identity is the caller as asserted by the identity provider. Domain
// services trust it as given.
type Identity struct {
	UserID            uuid.UUID
	Role              enums.Role
	KYCStatus         enums.KYCStatus
	ServiceCategoryID *uuid.UUID
}

// CanTrade reports whether a vendor identity may buy credits or unlock leads.
func (i Identity) CanTrade() bool {
	return i.Role == enums.RoleVendor && i.KYCStatus.IsApproved()
}
