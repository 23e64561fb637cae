package unlocks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/internal/leads"
	"github.com/askservice/leadmarket-backend/internal/ledger"
	"github.com/askservice/leadmarket-backend/internal/notifications"
	"github.com/askservice/leadmarket-backend/pkg/auth"
	"github.com/askservice/leadmarket-backend/pkg/db"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type debiter interface {
	AdjustTx(ctx context.Context, tx *gorm.DB, input ledger.AdjustInput) (*ledger.AdjustResult, error)
}

type quoteCounter interface {
	QuoteCounts(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type notifier interface {
	Send(ctx context.Context, msg notifications.Message)
}

// Result is the spend receipt returned with the unmasked lead.
type Result struct {
	Lead              leads.LeadDTO `json:"lead"`
	CreditsSpent      int           `json:"creditsSpent"`
	BalanceAfter      int           `json:"balanceAfter"`
	TransactionID     uuid.UUID     `json:"transactionId"`
	TransactionNumber string        `json:"transactionNumber"`
}

// Service spends credits to reveal a lead's contact details.
type Service interface {
	Unlock(ctx context.Context, vendor auth.Identity, leadID uuid.UUID) (*Result, error)
}

// Config carries the pricing fallback.
type Config struct {
	DefaultCost int
}

type service struct {
	tx      txRunner
	repo    Repository
	ledger  debiter
	quotes  quoteCounter
	notify  notifier
	metrics *metrics.LeadMetrics
	logg    *logger.Logger
	cfg     Config
}

func NewService(tx txRunner, repo Repository, ledger debiter, quotes quoteCounter, notify notifier, m *metrics.LeadMetrics, logg *logger.Logger, cfg Config) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("unlock repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if quotes == nil {
		return nil, fmt.Errorf("quote counter required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.DefaultCost <= 0 {
		return nil, fmt.Errorf("default unlock cost must be positive")
	}
	return &service{tx: tx, repo: repo, ledger: ledger, quotes: quotes, notify: notify, metrics: m, logg: logg, cfg: cfg}, nil
}

// Unlock debits the lead's cost and records the unlock in one transaction.
// Checks run in order: eligibility, existence, status, category, prior
// unlock, balance.
func (s *service) Unlock(ctx context.Context, vendor auth.Identity, leadID uuid.UUID) (*Result, error) {
	result, err := s.unlock(ctx, vendor, leadID)
	if err != nil {
		outcome := string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(err); typed != nil {
			outcome = string(typed.Code())
		}
		s.metrics.ObserveUnlock(outcome, 0)
		return nil, err
	}
	s.metrics.ObserveUnlock("success", result.CreditsSpent)
	return result, nil
}

func (s *service) unlock(ctx context.Context, vendor auth.Identity, leadID uuid.UUID) (*Result, error) {
	if !vendor.CanTrade() {
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "vendor verification required to unlock leads").
			WithDetails(map[string]any{"kycStatus": vendor.KYCStatus})
	}

	var (
		request models.ServiceRequest
		unlock  models.LeadUnlock
		debit   *ledger.AdjustResult
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LockRequest(ctx, leadID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock lead")
		}
		if locked == nil {
			return pkgerrors.New(pkgerrors.CodeLeadNotFound, "lead not found")
		}
		if locked.Status != enums.ServiceRequestStatusActive {
			return pkgerrors.New(pkgerrors.CodeLeadClosed, "lead is no longer active").
				WithDetails(map[string]any{"status": locked.Status})
		}
		if vendor.ServiceCategoryID == nil || *vendor.ServiceCategoryID != locked.CategoryID {
			return pkgerrors.New(pkgerrors.CodeCategoryMismatch, "lead is outside the vendor category")
		}

		existing, err := repo.FindUnlock(ctx, vendor.UserID, leadID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load unlock")
		}
		if existing != nil {
			return alreadyUnlocked()
		}

		category, err := repo.FindCategory(ctx, locked.CategoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
		}
		cost := s.cfg.DefaultCost
		if category != nil {
			cost = category.UnlockCost(s.cfg.DefaultCost)
		}

		unlockID := uuid.New()
		debit, err = s.ledger.AdjustTx(ctx, tx, ledger.AdjustInput{
			VendorID:      vendor.UserID,
			Amount:        -cost,
			ReferenceType: enums.TransactionReferenceLeadUnlock,
			ReferenceID:   &unlockID,
			Description:   "Lead unlock " + locked.ReferenceNo,
		})
		if err != nil {
			return err
		}

		unlock = models.LeadUnlock{
			ID:               unlockID,
			VendorID:         vendor.UserID,
			ServiceRequestID: leadID,
			CreditsSpent:     cost,
			TransactionID:    debit.Transaction.ID,
		}
		if err := repo.Create(ctx, &unlock); err != nil {
			if db.IsUniqueViolation(err, UniqueConstraint) {
				return alreadyUnlocked()
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record unlock")
		}
		request = *locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	counts, err := s.quotes.QuoteCounts(ctx, []uuid.UUID{request.ID})
	if err != nil {
		s.logg.Error(ctx, "quote count after unlock", err)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"vendor_id":          vendor.UserID.String(),
		"service_request_id": request.ID.String(),
		"credits_spent":      unlock.CreditsSpent,
	})
	s.logg.Info(logCtx, "lead unlocked")

	s.notify.Send(ctx, notifications.Message{
		RecipientID: vendor.UserID,
		Type:        enums.NotificationTypeLeadUnlocked,
		Data: map[string]any{
			"requestId":   request.ID.String(),
			"referenceNo": request.ReferenceNo,
			"credits":     strconv.Itoa(unlock.CreditsSpent),
			"balance":     strconv.Itoa(debit.Balance),
		},
	})

	return &Result{
		Lead:              leads.BuildLead(request, unlock.CreditsSpent, counts[request.ID], &unlock),
		CreditsSpent:      unlock.CreditsSpent,
		BalanceAfter:      debit.Balance,
		TransactionID:     debit.Transaction.ID,
		TransactionNumber: debit.Transaction.TransactionNumber,
	}, nil
}

func alreadyUnlocked() error {
	return pkgerrors.New(pkgerrors.CodeAlreadyUnlocked, "lead already unlocked").
		WithDetails(map[string]any{"unlocked": true})
}
