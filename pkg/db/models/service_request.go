package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/types"
)

// ServiceRequest is a customer's need, exposed to vendors as a lead.
type ServiceRequest struct {
	ID                  uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReferenceNo         string                     `gorm:"column:reference_no;not null;uniqueIndex"`
	CustomerID          *uuid.UUID                 `gorm:"column:customer_id;type:uuid"`
	CategoryID          uuid.UUID                  `gorm:"column:category_id;type:uuid;not null"`
	ChildCategoryID     *uuid.UUID                 `gorm:"column:child_category_id;type:uuid"`
	ManualChildCategory *string                    `gorm:"column:manual_child_category"`
	Frequency           enums.Frequency            `gorm:"column:frequency;not null"`
	SelectedOptions     pq.StringArray             `gorm:"column:selected_options;type:text[]"`
	PreferredStartDate  *time.Time                 `gorm:"column:preferred_start_date"`
	PreferredTimeOfDay  *string                    `gorm:"column:preferred_time_of_day"`
	Note                *string                    `gorm:"column:note"`
	AddressLine1        string                     `gorm:"column:address_line1;not null"`
	AddressLine2        *string                    `gorm:"column:address_line2"`
	City                string                     `gorm:"column:city;not null"`
	State               string                     `gorm:"column:state;not null"`
	Country             string                     `gorm:"column:country;not null"`
	Pincode             string                     `gorm:"column:pincode;not null"`
	Contact             types.ContactSnapshot      `gorm:"column:contact;type:jsonb;not null"`
	Status              enums.ServiceRequestStatus `gorm:"column:status;type:service_request_status;not null"`
	CloseReason         *enums.CloseReason         `gorm:"column:close_reason"`
	CloseComment        *string                    `gorm:"column:close_comment"`
	ClosedAt            *time.Time                 `gorm:"column:closed_at"`
	VerifiedAt          *time.Time                 `gorm:"column:verified_at"`
	ExpiredAt           *time.Time                 `gorm:"column:expired_at"`
	DeletedAt           *time.Time                 `gorm:"column:deleted_at"`
	CreatedAt           time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ServiceRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
