package leads

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

// Filter narrows the available lead listing. Location matches ignore case.
type Filter struct {
	City    string
	State   string
	Country string
	Page    pagination.Page
	// Sort is one of the Sort* orders. Cost orders fall back to FallbackCost
	// for unpriced categories and break ties by recency.
	Sort         string
	FallbackCost int
}

const categoryCostSQL = "COALESCE((SELECT sc.credit_cost FROM service_categories sc WHERE sc.id = service_requests.category_id), ?)"

func (f Filter) order(q *gorm.DB) *gorm.DB {
	switch f.Sort {
	case SortCostAsc, SortCostDesc:
		dir := "ASC"
		if f.Sort == SortCostDesc {
			dir = "DESC"
		}
		return q.Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:  categoryCostSQL + " " + dir + ", created_at DESC, id DESC",
			Vars: []any{f.FallbackCost},
		}})
	}
	return q.Order("created_at DESC").Order("id DESC")
}

// Repository reads service requests from a vendor's point of view.
type Repository interface {
	ListAvailable(ctx context.Context, categoryID uuid.UUID, filter Filter) ([]models.ServiceRequest, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ServiceRequest, error)
	QuoteCounts(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	UnlocksFor(ctx context.Context, vendorID uuid.UUID, requestIDs []uuid.UUID) (map[uuid.UUID]models.LeadUnlock, error)
	ListUnlocks(ctx context.Context, vendorID uuid.UUID, page pagination.Page) ([]models.LeadUnlock, int64, error)
	CountAvailable(ctx context.Context, categoryID uuid.UUID) (int64, error)
	CountUnlocks(ctx context.Context, vendorID uuid.UUID) (int64, error)
	CountQuotes(ctx context.Context, vendorID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) available(ctx context.Context, categoryID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("category_id = ? AND status = ? AND deleted_at IS NULL", categoryID, enums.ServiceRequestStatusActive)
}

func (r *repository) ListAvailable(ctx context.Context, categoryID uuid.UUID, filter Filter) ([]models.ServiceRequest, int64, error) {
	q := r.available(ctx, categoryID)
	for column, value := range map[string]string{"city": filter.City, "state": filter.State, "country": filter.Country} {
		if v := strings.TrimSpace(value); v != "" {
			q = q.Where("LOWER("+column+") = ?", strings.ToLower(v))
		}
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ServiceRequest
	if err := filter.order(q.Session(&gorm.Session{})).
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// FindByID returns nil, nil for missing or soft-deleted requests.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).Take(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ServiceRequest, error) {
	out := make(map[uuid.UUID]models.ServiceRequest, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ServiceRequest
	if err := r.db.WithContext(ctx).Where("id IN ? AND deleted_at IS NULL", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// QuoteCounts counts SENT quotes per request.
func (r *repository) QuoteCounts(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	type row struct {
		ServiceRequestID uuid.UUID
		Count            int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.VendorQuote{}).
		Select("service_request_id, COUNT(*) AS count").
		Where("service_request_id IN ? AND status = ?", requestIDs, enums.QuoteStatusSent).
		Group("service_request_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rw := range rows {
		out[rw.ServiceRequestID] = rw.Count
	}
	return out, nil
}

func (r *repository) UnlocksFor(ctx context.Context, vendorID uuid.UUID, requestIDs []uuid.UUID) (map[uuid.UUID]models.LeadUnlock, error) {
	out := make(map[uuid.UUID]models.LeadUnlock, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	var rows []models.LeadUnlock
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND service_request_id IN ?", vendorID, requestIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ServiceRequestID] = row
	}
	return out, nil
}

func (r *repository) ListUnlocks(ctx context.Context, vendorID uuid.UUID, page pagination.Page) ([]models.LeadUnlock, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.LeadUnlock{}).Where("vendor_id = ?", vendorID)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.LeadUnlock
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

func (r *repository) CountAvailable(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.available(ctx, categoryID).Count(&count).Error
	return count, err
}

func (r *repository) CountUnlocks(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LeadUnlock{}).Where("vendor_id = ?", vendorID).Count(&count).Error
	return count, err
}

func (r *repository) CountQuotes(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VendorQuote{}).Where("vendor_id = ?", vendorID).Count(&count).Error
	return count, err
}
