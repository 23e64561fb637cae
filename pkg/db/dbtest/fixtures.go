package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/types"
)

// SeedCategory inserts an active parent category. A zero cost leaves it unpriced.
func SeedCategory(t *testing.T, conn *gorm.DB, cost int) models.ServiceCategory {
	t.Helper()
	category := models.ServiceCategory{
		Title:  "Category " + uuid.NewString()[:8],
		Status: enums.CategoryStatusActive,
	}
	if cost > 0 {
		category.CreditCost = &cost
	}
	require.NoError(t, conn.Create(&category).Error)
	return category
}

// RequestOption mutates a seeded request before insert.
type RequestOption func(*models.ServiceRequest)

// WithStatus overrides the seeded status.
func WithStatus(status enums.ServiceRequestStatus) RequestOption {
	return func(r *models.ServiceRequest) { r.Status = status }
}

// WithCity overrides the location fields.
func WithCity(city, state, country string) RequestOption {
	return func(r *models.ServiceRequest) {
		r.City, r.State, r.Country = city, state, country
	}
}

// WithCreatedAt backdates the request.
func WithCreatedAt(at time.Time) RequestOption {
	return func(r *models.ServiceRequest) { r.CreatedAt = at }
}

// SeedRequest inserts an ACTIVE request owned by customerID in categoryID.
func SeedRequest(t *testing.T, conn *gorm.DB, categoryID, customerID uuid.UUID, opts ...RequestOption) models.ServiceRequest {
	t.Helper()
	owner := customerID
	request := models.ServiceRequest{
		ID:           uuid.New(),
		ReferenceNo:  fmt.Sprintf("REQ-%s", uuid.NewString()[:6]),
		CustomerID:   &owner,
		CategoryID:   categoryID,
		Frequency:    enums.FrequencyOneTime,
		AddressLine1: "12 Harbour Road",
		City:         "Lisbon",
		State:        "Lisboa",
		Country:      "Portugal",
		Pincode:      "1100-001",
		Contact: types.ContactSnapshot{
			FirstName:  "Maria",
			LastName:   "Silva",
			ClientType: string(enums.ClientTypeIndividual),
			Phone:      "+351912345678",
			Email:      "maria.silva@example.com",
		},
		Status: enums.ServiceRequestStatusActive,
	}
	for _, opt := range opts {
		opt(&request)
	}
	require.NoError(t, conn.Create(&request).Error)
	return request
}

// SeedWallet sets the vendor balance and records a matching opening credit.
func SeedWallet(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, balance int) {
	t.Helper()
	require.NoError(t, conn.Create(&models.CreditWallet{VendorID: vendorID, Balance: balance}).Error)
	if balance == 0 {
		return
	}
	require.NoError(t, conn.Create(&models.CreditTransaction{
		VendorID:          vendorID,
		TransactionNumber: "TXN-SEED-" + uuid.NewString()[:8],
		Type:              enums.TransactionTypeCredit,
		Amount:            balance,
		BalanceAfter:      balance,
		Status:            enums.TransactionStatusCompleted,
		ReferenceType:     enums.TransactionReferenceCreditPurchase,
		Description:       "opening balance",
	}).Error)
}

// SeedUnlock records an unlock without touching the ledger.
func SeedUnlock(t *testing.T, conn *gorm.DB, vendorID, requestID uuid.UUID, spent int) models.LeadUnlock {
	t.Helper()
	unlock := models.LeadUnlock{
		VendorID:         vendorID,
		ServiceRequestID: requestID,
		CreditsSpent:     spent,
		TransactionID:    uuid.New(),
	}
	require.NoError(t, conn.Create(&unlock).Error)
	return unlock
}
