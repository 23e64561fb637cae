package unlocks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
)

// UniqueConstraint guards one unlock per (vendor, request).
const UniqueConstraint = "ux_lead_unlocks_vendor_request"

// Repository persists lead unlocks. Every read used during an unlock must go
// through the transaction handle passed to WithTx.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error)
	FindCategory(ctx context.Context, categoryID uuid.UUID) (*models.ServiceCategory, error)
	FindUnlock(ctx context.Context, vendorID, requestID uuid.UUID) (*models.LeadUnlock, error)
	Create(ctx context.Context, unlock *models.LeadUnlock) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockRequest takes a row lock on the request so a concurrent close or
// unlock waits for this transaction. Soft-deleted rows read as missing.
func (r *repository) LockRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND deleted_at IS NULL", requestID).
		Take(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindCategory(ctx context.Context, categoryID uuid.UUID) (*models.ServiceCategory, error) {
	var category models.ServiceCategory
	err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", categoryID).Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) FindUnlock(ctx context.Context, vendorID, requestID uuid.UUID) (*models.LeadUnlock, error) {
	var unlock models.LeadUnlock
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND service_request_id = ?", vendorID, requestID).
		Take(&unlock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unlock, nil
}

func (r *repository) Create(ctx context.Context, unlock *models.LeadUnlock) error {
	return r.db.WithContext(ctx).Create(unlock).Error
}
