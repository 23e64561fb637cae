package leads

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/auth"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

// Sort orders for the available lead listing.
const (
	SortNewest   = "newest"
	SortCostAsc  = "cost_asc"
	SortCostDesc = "cost_desc"
)

// ListQuery is the vendor-facing lead search.
type ListQuery struct {
	City    string
	State   string
	Country string
	Sort    string
	Page    pagination.Page
}

type costReader interface {
	UnlockCost(ctx context.Context, categoryID uuid.UUID) (int, error)
}

type balanceReader interface {
	Balance(ctx context.Context, vendorID uuid.UUID) (int, error)
}

// Service is the lead catalog.
type Service interface {
	ListAvailable(ctx context.Context, vendor auth.Identity, query ListQuery) (*LeadList, error)
	Get(ctx context.Context, vendor auth.Identity, leadID uuid.UUID) (*LeadDTO, error)
	ListUnlocked(ctx context.Context, vendor auth.Identity, page pagination.Page) (*LeadList, error)
	Dashboard(ctx context.Context, vendor auth.Identity) (*Dashboard, error)
}

type service struct {
	repo     Repository
	costs    costReader
	balances balanceReader
}

func NewService(repo Repository, costs costReader, balances balanceReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("lead repository required")
	}
	if costs == nil {
		return nil, fmt.Errorf("cost reader required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance reader required")
	}
	return &service{repo: repo, costs: costs, balances: balances}, nil
}

// ListAvailable returns ACTIVE leads in the vendor's category. A vendor
// without a category sees nothing.
func (s *service) ListAvailable(ctx context.Context, vendor auth.Identity, query ListQuery) (*LeadList, error) {
	sortBy, err := parseSort(query.Sort)
	if err != nil {
		return nil, err
	}
	page := query.Page.Normalize(pagination.MaxLimit)
	if vendor.ServiceCategoryID == nil {
		return &LeadList{Items: []LeadDTO{}, Meta: pagination.NewMeta(page, 0)}, nil
	}
	categoryID := *vendor.ServiceCategoryID
	cost, err := s.costs.UnlockCost(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	rows, total, err := s.repo.ListAvailable(ctx, categoryID, Filter{
		City:         query.City,
		State:        query.State,
		Country:      query.Country,
		Page:         page,
		Sort:         sortBy,
		FallbackCost: cost,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list leads")
	}

	items, err := s.build(ctx, vendor.UserID, rows)
	if err != nil {
		return nil, err
	}
	return &LeadList{Items: items, Meta: pagination.NewMeta(page, total)}, nil
}

// Get returns a single lead. Vendors who unlocked a lead keep access after it
// closes; everyone else sees only ACTIVE leads in their own category.
func (s *service) Get(ctx context.Context, vendor auth.Identity, leadID uuid.UUID) (*LeadDTO, error) {
	request, err := s.repo.FindByID(ctx, leadID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load lead")
	}
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeLeadNotFound, "lead not found")
	}

	unlocks, err := s.repo.UnlocksFor(ctx, vendor.UserID, []uuid.UUID{request.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load unlock")
	}
	_, unlocked := unlocks[request.ID]
	if !unlocked {
		if vendor.ServiceCategoryID == nil || *vendor.ServiceCategoryID != request.CategoryID ||
			request.Status != enums.ServiceRequestStatusActive {
			return nil, pkgerrors.New(pkgerrors.CodeLeadNotFound, "lead not found")
		}
	}

	items, err := s.buildWith(ctx, []models.ServiceRequest{*request}, unlocks)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *service) ListUnlocked(ctx context.Context, vendor auth.Identity, page pagination.Page) (*LeadList, error) {
	page = page.Normalize(pagination.MaxLimit)
	unlocks, total, err := s.repo.ListUnlocks(ctx, vendor.UserID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list unlocks")
	}

	ids := make([]uuid.UUID, 0, len(unlocks))
	byRequest := make(map[uuid.UUID]models.LeadUnlock, len(unlocks))
	for _, u := range unlocks {
		ids = append(ids, u.ServiceRequestID)
		byRequest[u.ServiceRequestID] = u
	}
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load unlocked leads")
	}
	rows := make([]models.ServiceRequest, 0, len(ids))
	for _, id := range ids {
		if request, ok := found[id]; ok {
			rows = append(rows, request)
		}
	}

	items, err := s.buildWith(ctx, rows, byRequest)
	if err != nil {
		return nil, err
	}
	return &LeadList{Items: items, Meta: pagination.NewMeta(page, total)}, nil
}

func (s *service) Dashboard(ctx context.Context, vendor auth.Identity) (*Dashboard, error) {
	out := &Dashboard{KYCStatus: vendor.KYCStatus, CanPurchaseLeads: vendor.CanTrade()}

	if vendor.ServiceCategoryID != nil {
		available, err := s.repo.CountAvailable(ctx, *vendor.ServiceCategoryID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count available leads")
		}
		out.AvailableLeads = available
	}

	purchased, err := s.repo.CountUnlocks(ctx, vendor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count purchased leads")
	}
	out.PurchasedLeads = purchased

	sent, err := s.repo.CountQuotes(ctx, vendor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count quotes")
	}
	out.QuotesSent = sent

	balance, err := s.balances.Balance(ctx, vendor.UserID)
	if err != nil {
		return nil, err
	}
	out.CreditBalance = balance
	return out, nil
}

func (s *service) build(ctx context.Context, vendorID uuid.UUID, rows []models.ServiceRequest) ([]LeadDTO, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	unlocks, err := s.repo.UnlocksFor(ctx, vendorID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load unlocks")
	}
	return s.buildWith(ctx, rows, unlocks)
}

func (s *service) buildWith(ctx context.Context, rows []models.ServiceRequest, unlocks map[uuid.UUID]models.LeadUnlock) ([]LeadDTO, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	counts, err := s.repo.QuoteCounts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count quotes")
	}

	costs := map[uuid.UUID]int{}
	items := make([]LeadDTO, 0, len(rows))
	for _, row := range rows {
		cost, ok := costs[row.CategoryID]
		if !ok {
			cost, err = s.costs.UnlockCost(ctx, row.CategoryID)
			if err != nil {
				return nil, err
			}
			costs[row.CategoryID] = cost
		}
		var unlock *models.LeadUnlock
		if u, ok := unlocks[row.ID]; ok {
			unlock = &u
		}
		items = append(items, BuildLead(row, cost, counts[row.ID], unlock))
	}
	return items, nil
}

func parseSort(value string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "":
		return SortNewest, nil
	case SortNewest, SortCostAsc, SortCostDesc:
		return v, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sort %q", value))
}
