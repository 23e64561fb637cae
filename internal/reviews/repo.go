package reviews

import (
	"context"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
)

// StatusActive marks a published review.
const StatusActive = "ACTIVE"

// Aggregate is a vendor's published rating summary.
type Aggregate struct {
	Rating      float64 `json:"vendorRating"`
	ReviewCount int64   `json:"vendorReviewCount"`
}

// Reader aggregates vendor reviews. Reviews are owned elsewhere and only read here.
type Reader interface {
	Aggregates(ctx context.Context, vendorIDs []uuid.UUID) (map[uuid.UUID]Aggregate, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Reader {
	return &repository{db: db}
}

type aggregateRow struct {
	VendorID    uuid.UUID
	AvgRating   float64
	ReviewCount int64
}

func (r *repository) Aggregates(ctx context.Context, vendorIDs []uuid.UUID) (map[uuid.UUID]Aggregate, error) {
	out := make(map[uuid.UUID]Aggregate, len(vendorIDs))
	if len(vendorIDs) == 0 {
		return out, nil
	}

	var rows []aggregateRow
	err := r.db.WithContext(ctx).
		Model(&models.VendorReview{}).
		Select("vendor_id, AVG(rating) AS avg_rating, COUNT(*) AS review_count").
		Where("vendor_id IN ? AND status = ? AND deleted_at IS NULL", vendorIDs, StatusActive).
		Group("vendor_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.VendorID] = Aggregate{
			Rating:      math.Round(row.AvgRating*10) / 10,
			ReviewCount: row.ReviewCount,
		}
	}
	return out, nil
}
