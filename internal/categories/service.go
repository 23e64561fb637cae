package categories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
)

// Service exposes the public category tree and pricing lookups.
type Service interface {
	ListTree(ctx context.Context) ([]CategoryDTO, error)
	GetActive(ctx context.Context, id uuid.UUID) (*models.ServiceCategory, error)
	UnlockCost(ctx context.Context, id uuid.UUID) (int, error)
}

// CategoryDTO is a parent category with its active children.
type CategoryDTO struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	CreditCost  int           `json:"creditCost"`
	Children    []CategoryDTO `json:"children,omitempty"`
}

type service struct {
	repo        Repository
	defaultCost int
}

// NewService builds the category service. defaultCost is used when a
// category carries no credit price.
func NewService(repo Repository, defaultCost int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if defaultCost <= 0 {
		return nil, fmt.Errorf("default unlock cost must be positive")
	}
	return &service{repo: repo, defaultCost: defaultCost}, nil
}

func (s *service) ListTree(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}

	children := map[uuid.UUID][]CategoryDTO{}
	parents := make([]models.ServiceCategory, 0, len(rows))
	for _, row := range rows {
		if row.ParentID == nil {
			parents = append(parents, row)
			continue
		}
		children[*row.ParentID] = append(children[*row.ParentID], s.toDTO(row))
	}

	out := make([]CategoryDTO, 0, len(parents))
	for _, parent := range parents {
		dto := s.toDTO(parent)
		dto.Children = children[parent.ID]
		out = append(out, dto)
	}
	return out, nil
}

func (s *service) GetActive(ctx context.Context, id uuid.UUID) (*models.ServiceCategory, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	if category == nil || category.Status != enums.CategoryStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service category not found")
	}
	return category, nil
}

// UnlockCost returns the category credit price, falling back to the default
// when the category is unpriced or missing.
func (s *service) UnlockCost(ctx context.Context, id uuid.UUID) (int, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	if category == nil {
		return s.defaultCost, nil
	}
	return category.UnlockCost(s.defaultCost), nil
}

func (s *service) toDTO(c models.ServiceCategory) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		CreditCost:  c.UnlockCost(s.defaultCost),
	}
}
