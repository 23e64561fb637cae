package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadUnlock records that a vendor paid to see a request's contact details.
// Unique per (vendor_id, service_request_id).
type LeadUnlock struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID         uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	ServiceRequestID uuid.UUID `gorm:"column:service_request_id;type:uuid;not null"`
	CreditsSpent     int       `gorm:"column:credits_spent;not null"`
	TransactionID    uuid.UUID `gorm:"column:transaction_id;type:uuid;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (u *LeadUnlock) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
