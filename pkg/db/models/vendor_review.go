package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorReview is owned by the reviews surface; this service only aggregates it.
type VendorReview struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	VendorID         uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null"`
	CustomerID       uuid.UUID  `gorm:"column:customer_id;type:uuid;not null"`
	ServiceRequestID *uuid.UUID `gorm:"column:service_request_id;type:uuid"`
	Rating           int        `gorm:"column:rating;not null"`
	Comment          *string    `gorm:"column:comment"`
	Status           string     `gorm:"column:status;not null"`
	DeletedAt        *time.Time `gorm:"column:deleted_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
}
