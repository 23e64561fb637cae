package requests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

// Repository persists service requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ServiceRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, page pagination.Page) ([]models.ServiceRequest, int64, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.ServiceRequestStatus, fields map[string]any) (bool, error)
	ListActiveCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ServiceRequest, error)
	UnlockedVendorIDs(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error)
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

func (r *repository) Create(ctx context.Context, request *models.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// FindByID returns nil, nil for missing or soft-deleted requests.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate row-locks the request for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) find(q *gorm.DB, id uuid.UUID) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := q.Where("id = ? AND deleted_at IS NULL", id).Take(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, page pagination.Page) ([]models.ServiceRequest, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("customer_id = ? AND deleted_at IS NULL", customerID)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ServiceRequest
	if err := q.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Transition moves the request from -> to only if it is still in from.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.ServiceRequestStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ? AND deleted_at IS NULL", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListActiveCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ServiceRequest, error) {
	var rows []models.ServiceRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND deleted_at IS NULL AND created_at < ?", enums.ServiceRequestStatusActive, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) UnlockedVendorIDs(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.LeadUnlock{}).
		Where("service_request_id = ?", requestID).
		Order("created_at ASC").
		Pluck("vendor_id", &ids).Error
	return ids, err
}
