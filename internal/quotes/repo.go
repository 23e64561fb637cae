package quotes

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

// ActiveConstraint is the partial unique index on SENT quotes per vendor and request.
const ActiveConstraint = "ux_vendor_quotes_active"

// Repository persists vendor quotes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error)
	FindRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error)
	HasUnlock(ctx context.Context, vendorID, requestID uuid.UUID) (bool, error)
	HasSentQuote(ctx context.Context, vendorID, requestID uuid.UUID) (bool, error)
	CountSent(ctx context.Context, requestID uuid.UUID) (int64, error)
	Create(ctx context.Context, quote *models.VendorQuote) error
	FindByID(ctx context.Context, requestID, quoteID uuid.UUID) (*models.VendorQuote, error)
	ListForRequest(ctx context.Context, requestID uuid.UUID, sort enums.QuoteSort) ([]models.VendorQuote, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, page pagination.Page) ([]models.VendorQuote, int64, error)
	Decide(ctx context.Context, quoteID uuid.UUID, to enums.QuoteStatus, at time.Time) (bool, error)
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

// LockRequest row-locks the request. Concurrent submissions for one request
// serialise here, which keeps the SENT count and the insert consistent.
func (r *repository) LockRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	return r.findRequest(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), requestID)
}

func (r *repository) FindRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	return r.findRequest(r.db.WithContext(ctx), requestID)
}

func (r *repository) findRequest(q *gorm.DB, requestID uuid.UUID) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := q.Where("id = ? AND deleted_at IS NULL", requestID).Take(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) HasUnlock(ctx context.Context, vendorID, requestID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LeadUnlock{}).
		Where("vendor_id = ? AND service_request_id = ?", vendorID, requestID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) HasSentQuote(ctx context.Context, vendorID, requestID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VendorQuote{}).
		Where("vendor_id = ? AND service_request_id = ? AND status = ?", vendorID, requestID, enums.QuoteStatusSent).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CountSent(ctx context.Context, requestID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VendorQuote{}).
		Where("service_request_id = ? AND status = ?", requestID, enums.QuoteStatusSent).
		Count(&count).Error
	return count, err
}

func (r *repository) Create(ctx context.Context, quote *models.VendorQuote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *repository) FindByID(ctx context.Context, requestID, quoteID uuid.UUID) (*models.VendorQuote, error) {
	var quote models.VendorQuote
	err := r.db.WithContext(ctx).
		Where("id = ? AND service_request_id = ?", quoteID, requestID).
		Take(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) ListForRequest(ctx context.Context, requestID uuid.UUID, sort enums.QuoteSort) ([]models.VendorQuote, error) {
	q := r.db.WithContext(ctx).Where("service_request_id = ?", requestID)
	switch sort {
	case enums.QuoteSortPriceAsc:
		q = q.Order("price ASC")
	case enums.QuoteSortPriceDesc:
		q = q.Order("price DESC")
	}
	var rows []models.VendorQuote
	err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, page pagination.Page) ([]models.VendorQuote, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.VendorQuote{}).Where("vendor_id = ?", vendorID)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.VendorQuote
	if err := q.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Decide moves a SENT quote to a terminal status. It reports false when the
// quote was no longer SENT.
func (r *repository) Decide(ctx context.Context, quoteID uuid.UUID, to enums.QuoteStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VendorQuote{}).
		Where("id = ? AND status = ?", quoteID, enums.QuoteStatusSent).
		Updates(map[string]any{"status": to, "decided_at": at, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
