package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/enums"
)

// VendorQuote is a vendor's priced offer against an unlocked request.
type VendorQuote struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID          uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null"`
	ServiceRequestID  uuid.UUID         `gorm:"column:service_request_id;type:uuid;not null"`
	Price             decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	Currency          enums.Currency    `gorm:"column:currency;not null"`
	Description       string            `gorm:"column:description;not null"`
	ProposedStartDate time.Time         `gorm:"column:proposed_start_date;type:date;not null"`
	ValidDays         int               `gorm:"column:valid_days;not null"`
	AttachmentURL     *string           `gorm:"column:attachment_url"`
	Status            enums.QuoteStatus `gorm:"column:status;type:vendor_quote_status;not null"`
	DecidedAt         *time.Time        `gorm:"column:decided_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (q *VendorQuote) BeforeCreate(*gorm.DB) error {
	ensureID(&q.ID)
	return nil
}
