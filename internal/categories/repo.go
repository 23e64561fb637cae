package categories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
)

// Repository reads service categories.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceCategory, error)
	ListActive(ctx context.Context) ([]models.ServiceCategory, error)
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

// FindByID returns nil, nil when the category is missing or soft-deleted.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceCategory, error) {
	var category models.ServiceCategory
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.ServiceCategory, error) {
	var rows []models.ServiceCategory
	err := r.db.WithContext(ctx).
		Where("status = ? AND deleted_at IS NULL", enums.CategoryStatusActive).
		Order("title ASC").
		Find(&rows).Error
	return rows, err
}
