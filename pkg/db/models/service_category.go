package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/enums"
)

// ServiceCategory is a marketplace category. Parent categories carry the lead
// unlock price; child categories refine the request.
type ServiceCategory struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentID    *uuid.UUID           `gorm:"column:parent_id;type:uuid"`
	Title       string               `gorm:"column:title;not null"`
	Description *string              `gorm:"column:description"`
	CreditCost  *int                 `gorm:"column:credit_cost"`
	Status      enums.CategoryStatus `gorm:"column:status;not null;default:'ACTIVE'"`
	DeletedAt   *time.Time           `gorm:"column:deleted_at"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *ServiceCategory) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// UnlockCost returns the configured credit price or fallback when unset.
func (c ServiceCategory) UnlockCost(fallback int) int {
	if c.CreditCost != nil && *c.CreditCost > 0 {
		return *c.CreditCost
	}
	return fallback
}
