package credits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
)

// Repository reads the credit package catalogue.
type Repository interface {
	ListActive(ctx context.Context) ([]models.CreditPackage, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.CreditPackage, error)
	FindByKey(ctx context.Context, key string) (*models.CreditPackage, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActive(ctx context.Context) ([]models.CreditPackage, error) {
	var rows []models.CreditPackage
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC").
		Order("credits ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CreditPackage, error) {
	return r.find(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *repository) FindByKey(ctx context.Context, key string) (*models.CreditPackage, error) {
	return r.find(r.db.WithContext(ctx).Where(`"key" = ?`, key))
}

func (r *repository) find(q *gorm.DB) (*models.CreditPackage, error) {
	var pkg models.CreditPackage
	err := q.Take(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}
