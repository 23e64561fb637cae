package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies credit mutations. Every mutation writes exactly one
// transaction carrying the resulting balance.
type Service interface {
	Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error)
	AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*AdjustResult, error)
	Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*AdjustResult, error)
	Balance(ctx context.Context, vendorID uuid.UUID) (int, error)
	ListTransactions(ctx context.Context, vendorID uuid.UUID, query TransactionQuery) (*TransactionPage, error)
}

// AdjustInput is a signed balance mutation.
type AdjustInput struct {
	VendorID      uuid.UUID
	Amount        int
	ReferenceType enums.TransactionReferenceType
	ReferenceID   *uuid.UUID
	Description   string
}

// CreditInput is an unconditional top-up.
type CreditInput struct {
	VendorID    uuid.UUID
	Amount      int
	PackageID   uuid.UUID
	Description string
}

// AdjustResult carries the committed balance and its transaction.
type AdjustResult struct {
	Balance     int
	Transaction models.CreditTransaction
}

// InsufficientCreditsDetails is surfaced so the client can offer a top-up.
type InsufficientCreditsDetails struct {
	Required  int `json:"required"`
	Balance   int `json:"balance"`
	Shortfall int `json:"shortfall"`
}

// TransactionQuery is the caller-facing filter for transaction history.
type TransactionQuery struct {
	Type   string
	Period string
	From   *time.Time
	To     *time.Time
	Page   pagination.Page
}

// TransactionPage is a page of history plus totals.
type TransactionPage struct {
	Transactions []models.CreditTransaction
	Meta         pagination.Meta
}

type service struct {
	tx       txRunner
	repo     Repository
	maxLimit int
	now      func() time.Time
}

// NewService wires a ledger service.
func NewService(tx txRunner, repo Repository, maxLimit int) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if maxLimit <= 0 {
		maxLimit = pagination.MaxLimit
	}
	return &service{tx: tx, repo: repo, maxLimit: maxLimit, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error) {
	var result *AdjustResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.AdjustTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdjustTx runs the mutation inside the caller's transaction. A debit is a
// conditional update guarded by balance + amount >= 0, so concurrent debits
// on one wallet serialise on its row.
func (s *service) AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*AdjustResult, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if input.Amount == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-zero")
	}
	if input.ReferenceType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference type is required")
	}

	repo := s.repo.WithTx(tx)
	if err := repo.EnsureWallet(ctx, input.VendorID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure wallet")
	}

	ok, err := repo.ApplyDelta(ctx, input.VendorID, input.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply balance delta")
	}
	if !ok {
		balance, err := repo.Balance(ctx, input.VendorID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read balance")
		}
		required := -input.Amount
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientCredits, "insufficient credits").
			WithDetails(InsufficientCreditsDetails{
				Required:  required,
				Balance:   balance,
				Shortfall: required - balance,
			})
	}

	balance, err := repo.Balance(ctx, input.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read balance")
	}

	txnType := enums.TransactionTypeCredit
	if input.Amount < 0 {
		txnType = enums.TransactionTypeDebit
	}
	now := s.now()
	id := uuid.New()
	txn := models.CreditTransaction{
		ID:                id,
		VendorID:          input.VendorID,
		TransactionNumber: TransactionNumber(id, now),
		Type:              txnType,
		Amount:            input.Amount,
		BalanceAfter:      balance,
		Status:            enums.TransactionStatusCompleted,
		ReferenceType:     input.ReferenceType,
		ReferenceID:       input.ReferenceID,
		Description:       input.Description,
		CreatedAt:         now,
	}
	if err := repo.InsertTransaction(ctx, &txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert credit transaction")
	}

	return &AdjustResult{Balance: balance, Transaction: txn}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*AdjustResult, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	adjust := AdjustInput{
		VendorID:      input.VendorID,
		Amount:        input.Amount,
		ReferenceType: enums.TransactionReferenceCreditPurchase,
		Description:   input.Description,
	}
	if input.PackageID != uuid.Nil {
		ref := input.PackageID
		adjust.ReferenceID = &ref
	}
	if tx == nil {
		return s.Adjust(ctx, adjust)
	}
	return s.AdjustTx(ctx, tx, adjust)
}

func (s *service) Balance(ctx context.Context, vendorID uuid.UUID) (int, error) {
	if vendorID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	balance, err := s.repo.Balance(ctx, vendorID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read balance")
	}
	return balance, nil
}

func (s *service) ListTransactions(ctx context.Context, vendorID uuid.UUID, query TransactionQuery) (*TransactionPage, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.ListTransactions(ctx, vendorID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return &TransactionPage{Transactions: rows, Meta: pagination.NewMeta(filter.Page, total)}, nil
}

func (s *service) buildFilter(query TransactionQuery) (TransactionFilter, error) {
	filter := TransactionFilter{Page: query.Page.Normalize(s.maxLimit)}

	if t := strings.TrimSpace(query.Type); t != "" {
		parsed, err := enums.ParseTransactionType(t)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		filter.Type = parsed
	}

	if p := strings.TrimSpace(query.Period); p != "" {
		period, err := enums.ParseTransactionPeriod(p)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		from := periodStart(period, s.now())
		filter.From = &from
		return filter, nil
	}

	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return filter, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	filter.From = query.From
	filter.To = query.To
	return filter, nil
}

func periodStart(period enums.TransactionPeriod, now time.Time) time.Time {
	switch period {
	case enums.TransactionPeriodLast3Months:
		return now.AddDate(0, -3, 0)
	case enums.TransactionPeriodLast6Months:
		return now.AddDate(0, -6, 0)
	default:
		return now.AddDate(0, 0, -30)
	}
}

// TransactionNumber renders a human reference unique per vendor:
// TXN-<year>-<base36 millis>-<last 4 id bytes hex>.
func TransactionNumber(id uuid.UUID, at time.Time) string {
	millis := strconv.FormatInt(at.UnixMilli(), 36)
	return strings.ToUpper(fmt.Sprintf("TXN-%d-%s-%x", at.Year(), millis, id[12:]))
}
