package credits

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/internal/ledger"
	"github.com/askservice/leadmarket-backend/internal/notifications"
	"github.com/askservice/leadmarket-backend/pkg/auth"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/metrics"
)

type creditor interface {
	Credit(ctx context.Context, tx *gorm.DB, input ledger.CreditInput) (*ledger.AdjustResult, error)
	Balance(ctx context.Context, vendorID uuid.UUID) (int, error)
	ListTransactions(ctx context.Context, vendorID uuid.UUID, query ledger.TransactionQuery) (*ledger.TransactionPage, error)
}

type notifier interface {
	Send(ctx context.Context, msg notifications.Message)
}

// PackageDTO is a purchasable bundle.
type PackageDTO struct {
	ID           uuid.UUID       `json:"id"`
	Key          string          `json:"key"`
	Name         string          `json:"name"`
	Credits      int             `json:"credits"`
	BonusCredits int             `json:"bonusCredits"`
	TotalCredits int             `json:"totalCredits"`
	Price        decimal.Decimal `json:"price"`
	Currency     enums.Currency  `json:"currency"`
	MostPopular  bool            `json:"mostPopular"`
}

// PurchaseInput selects a package by id or key.
type PurchaseInput struct {
	PackageID  *uuid.UUID
	PackageKey string
}

// PurchaseResult is the receipt after credits are added.
type PurchaseResult struct {
	Balance     int                   `json:"balance"`
	Transaction ledger.TransactionDTO `json:"transaction"`
	Package     PackageDTO            `json:"package"`
}

// Service sells credit packages and reports wallet state.
type Service interface {
	ListPackages(ctx context.Context) ([]PackageDTO, error)
	Balance(ctx context.Context, vendor auth.Identity) (int, error)
	Purchase(ctx context.Context, vendor auth.Identity, input PurchaseInput) (*PurchaseResult, error)
	ListTransactions(ctx context.Context, vendor auth.Identity, query ledger.TransactionQuery) (*ledger.TransactionPage, error)
}

type service struct {
	repo    Repository
	ledger  creditor
	notify  notifier
	metrics *metrics.LeadMetrics
	logg    *logger.Logger
}

func NewService(repo Repository, ledger creditor, notify notifier, m *metrics.LeadMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("package repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, ledger: ledger, notify: notify, metrics: m, logg: logg}, nil
}

func (s *service) ListPackages(ctx context.Context) ([]PackageDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list credit packages")
	}
	out := make([]PackageDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPackageDTO(row))
	}
	return out, nil
}

func (s *service) Balance(ctx context.Context, vendor auth.Identity) (int, error) {
	return s.ledger.Balance(ctx, vendor.UserID)
}

// Purchase credits the package total. Payment capture happens upstream.
func (s *service) Purchase(ctx context.Context, vendor auth.Identity, input PurchaseInput) (*PurchaseResult, error) {
	if !vendor.CanTrade() {
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "vendor verification required to purchase credits").
			WithDetails(map[string]any{"kycStatus": vendor.KYCStatus})
	}

	pkg, err := s.lookup(ctx, input)
	if err != nil {
		return nil, err
	}

	res, err := s.ledger.Credit(ctx, nil, ledger.CreditInput{
		VendorID:    vendor.UserID,
		Amount:      pkg.TotalCredits(),
		PackageID:   pkg.ID,
		Description: fmt.Sprintf("Purchased %s package", pkg.Name),
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObservePurchase(pkg.TotalCredits())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"vendor_id":  vendor.UserID.String(),
		"package":    pkg.Key,
		"credits":    pkg.TotalCredits(),
		"balance":    res.Balance,
		"txn_number": res.Transaction.TransactionNumber,
	}), "credits purchased")

	s.notify.Send(ctx, notifications.Message{
		RecipientID: vendor.UserID,
		Type:        enums.NotificationTypeCreditsPurchased,
		Data: map[string]any{
			"credits": strconv.Itoa(pkg.TotalCredits()),
			"balance": strconv.Itoa(res.Balance),
		},
	})

	return &PurchaseResult{Balance: res.Balance, Transaction: ledger.ToTransactionDTO(res.Transaction), Package: toPackageDTO(*pkg)}, nil
}

func (s *service) lookup(ctx context.Context, input PurchaseInput) (*models.CreditPackage, error) {
	var (
		pkg *models.CreditPackage
		err error
	)
	switch key := strings.ToLower(strings.TrimSpace(input.PackageKey)); {
	case input.PackageID != nil:
		pkg, err = s.repo.FindByID(ctx, *input.PackageID)
	case key != "":
		pkg, err = s.repo.FindByKey(ctx, key)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id or key is required")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load credit package")
	}
	if pkg == nil || !pkg.Active {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPackage, "credit package not available")
	}
	return pkg, nil
}

func (s *service) ListTransactions(ctx context.Context, vendor auth.Identity, query ledger.TransactionQuery) (*ledger.TransactionPage, error) {
	return s.ledger.ListTransactions(ctx, vendor.UserID, query)
}

func toPackageDTO(p models.CreditPackage) PackageDTO {
	return PackageDTO{
		ID:           p.ID,
		Key:          p.Key,
		Name:         p.Name,
		Credits:      p.Credits,
		BonusCredits: p.BonusCredits,
		TotalCredits: p.TotalCredits(),
		Price:        p.Price,
		Currency:     p.Currency,
		MostPopular:  p.MostPopular,
	}
}
