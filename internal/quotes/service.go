package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/internal/notifications"
	"github.com/askservice/leadmarket-backend/internal/reviews"
	"github.com/askservice/leadmarket-backend/pkg/auth"
	"github.com/askservice/leadmarket-backend/pkg/db"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/metrics"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

const maxDescriptionLength = 5000

// maxPrice is the exclusive bound of the numeric(12,2) price column.
var maxPrice = decimal.New(1, 10)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Send(ctx context.Context, msg notifications.Message)
}

// Config bounds quote submission.
type Config struct {
	MaxQuotesPerRequest int
	DefaultCurrency     enums.Currency
	DefaultValidDays    int
}

// Service negotiates quotes between vendors and the request owner.
type Service interface {
	Submit(ctx context.Context, vendor auth.Identity, leadID uuid.UUID, input SubmitInput) (*QuoteDTO, error)
	Accept(ctx context.Context, customerID, requestID, quoteID uuid.UUID) (*QuoteDTO, error)
	Ignore(ctx context.Context, customerID, requestID, quoteID uuid.UUID) (*QuoteDTO, error)
	ListForCustomer(ctx context.Context, customerID, requestID uuid.UUID, sort string) ([]QuoteDTO, error)
	GetForCustomer(ctx context.Context, customerID, requestID, quoteID uuid.UUID) (*QuoteDTO, error)
	ListMine(ctx context.Context, vendor auth.Identity, page pagination.Page) (*VendorQuoteList, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	reviews reviews.Reader
	notify  notifier
	metrics *metrics.LeadMetrics
	logg    *logger.Logger
	cfg     Config
	now     func() time.Time
}

func NewService(tx txRunner, repo Repository, reviewReader reviews.Reader, notify notifier, m *metrics.LeadMetrics, logg *logger.Logger, cfg Config) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("quote repository required")
	}
	if reviewReader == nil {
		return nil, fmt.Errorf("review reader required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MaxQuotesPerRequest <= 0 {
		return nil, fmt.Errorf("max quotes per request must be positive")
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = enums.CurrencyEUR
	}
	if cfg.DefaultValidDays <= 0 {
		cfg.DefaultValidDays = 7
	}
	return &service{
		tx:      tx,
		repo:    repo,
		reviews: reviewReader,
		notify:  notify,
		metrics: m,
		logg:    logg,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, vendor auth.Identity, leadID uuid.UUID, input SubmitInput) (*QuoteDTO, error) {
	quote, request, err := s.submit(ctx, vendor, leadID, input)
	if err != nil {
		outcome := string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(err); typed != nil {
			outcome = string(typed.Code())
		}
		s.metrics.ObserveQuote(outcome)
		return nil, err
	}
	s.metrics.ObserveQuote("success")

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"vendor_id":          vendor.UserID.String(),
		"service_request_id": request.ID.String(),
		"quote_id":           quote.ID.String(),
	})
	s.logg.Info(logCtx, "quote submitted")

	if request.CustomerID != nil {
		s.notify.Send(ctx, notifications.Message{
			RecipientID: *request.CustomerID,
			Type:        enums.NotificationTypeQuoteReceived,
			Data: map[string]any{
				"requestId":   request.ID.String(),
				"quoteId":     quote.ID.String(),
				"referenceNo": request.ReferenceNo,
				"price":       quote.Price.StringFixed(2),
				"currency":    string(quote.Currency),
			},
		})
	}

	dto := ToDTO(*quote, nil)
	return &dto, nil
}

func (s *service) submit(ctx context.Context, vendor auth.Identity, leadID uuid.UUID, input SubmitInput) (*models.VendorQuote, *models.ServiceRequest, error) {
	quote, err := s.buildQuote(vendor.UserID, leadID, input)
	if err != nil {
		return nil, nil, err
	}

	var request *models.ServiceRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LockRequest(ctx, leadID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock lead")
		}
		unlocked := false
		if locked != nil {
			unlocked, err = repo.HasUnlock(ctx, vendor.UserID, leadID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check unlock")
			}
		}
		if !unlocked {
			return pkgerrors.New(pkgerrors.CodeUnlockRequired, "unlock the lead before quoting")
		}
		if locked.Status != enums.ServiceRequestStatusActive {
			return pkgerrors.New(pkgerrors.CodeLeadClosed, "lead is no longer active").
				WithDetails(map[string]any{"status": locked.Status})
		}

		duplicate, err := repo.HasSentQuote(ctx, vendor.UserID, leadID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing quote")
		}
		if duplicate {
			return pkgerrors.New(pkgerrors.CodeDuplicateQuote, "quote already submitted for this lead")
		}

		sent, err := repo.CountSent(ctx, leadID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count quotes")
		}
		if sent >= int64(s.cfg.MaxQuotesPerRequest) {
			return pkgerrors.New(pkgerrors.CodeQuoteCapReached, "quote limit reached for this lead").
				WithDetails(map[string]any{"maxQuotes": s.cfg.MaxQuotesPerRequest, "currentCount": sent})
		}

		if err := repo.Create(ctx, quote); err != nil {
			if db.IsUniqueViolation(err, ActiveConstraint) {
				return pkgerrors.New(pkgerrors.CodeDuplicateQuote, "quote already submitted for this lead")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert quote")
		}
		request = locked
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return quote, request, nil
}

func (s *service) buildQuote(vendorID, leadID uuid.UUID, input SubmitInput) (*models.VendorQuote, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(input.Price))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be a number")
	}
	if price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	price = price.Round(2)
	if price.GreaterThanOrEqual(maxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be below 10000000000").
			WithDetails(map[string]any{"maxPrice": maxPrice.String()})
	}

	currency := s.cfg.DefaultCurrency
	if raw := strings.ToUpper(strings.TrimSpace(input.Currency)); raw != "" {
		currency, err = enums.ParseCurrency(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if len(description) > maxDescriptionLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is too long")
	}

	start, err := parseStartDate(input.ProposedStartDate)
	if err != nil {
		return nil, err
	}
	today := s.now().Truncate(24 * time.Hour)
	if start.Before(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proposed start date must be today or later")
	}

	validDays := s.cfg.DefaultValidDays
	if input.ValidDays != nil {
		if *input.ValidDays <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid days must be positive")
		}
		validDays = *input.ValidDays
	}

	var attachment *string
	if input.AttachmentURL != nil {
		if v := strings.TrimSpace(*input.AttachmentURL); v != "" {
			attachment = &v
		}
	}

	return &models.VendorQuote{
		ID:                uuid.New(),
		VendorID:          vendorID,
		ServiceRequestID:  leadID,
		Price:             price,
		Currency:          currency,
		Description:       description,
		ProposedStartDate: start,
		ValidDays:         validDays,
		AttachmentURL:     attachment,
		Status:            enums.QuoteStatusSent,
	}, nil
}

func parseStartDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "proposed start date is required")
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Truncate(24 * time.Hour), nil
	}
	return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "proposed start date must be YYYY-MM-DD")
}

func (s *service) Accept(ctx context.Context, customerID, requestID, quoteID uuid.UUID) (*QuoteDTO, error) {
	return s.decide(ctx, customerID, requestID, quoteID, enums.QuoteStatusAccepted, enums.NotificationTypeQuoteAccepted)
}

func (s *service) Ignore(ctx context.Context, customerID, requestID, quoteID uuid.UUID) (*QuoteDTO, error) {
	return s.decide(ctx, customerID, requestID, quoteID, enums.QuoteStatusIgnored, enums.NotificationTypeQuoteIgnored)
}

func (s *service) decide(ctx context.Context, customerID, requestID, quoteID uuid.UUID, to enums.QuoteStatus, kind enums.NotificationType) (*QuoteDTO, error) {
	var (
		quote   *models.VendorQuote
		request *models.ServiceRequest
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		request, err = s.ownedRequest(ctx, repo, customerID, requestID)
		if err != nil {
			return err
		}
		quote, err = repo.FindByID(ctx, requestID, quoteID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load quote")
		}
		if quote == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		if quote.Status != enums.QuoteStatusSent {
			return notActionable(quote.Status)
		}

		now := s.now()
		ok, err := repo.Decide(ctx, quoteID, to, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update quote")
		}
		if !ok {
			current, err := repo.FindByID(ctx, requestID, quoteID)
			if err != nil || current == nil {
				return notActionable("")
			}
			return notActionable(current.Status)
		}
		quote.Status = to
		quote.DecidedAt = &now
		quote.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveQuoteDecision(string(to))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"quote_id":           quote.ID.String(),
		"service_request_id": requestID.String(),
		"status":             string(to),
	}), "quote decided")

	s.notify.Send(ctx, notifications.Message{
		RecipientID: quote.VendorID,
		Type:        kind,
		Data: map[string]any{
			"requestId":   request.ID.String(),
			"quoteId":     quote.ID.String(),
			"referenceNo": request.ReferenceNo,
		},
	})

	dto := ToDTO(*quote, nil)
	return &dto, nil
}

func notActionable(status enums.QuoteStatus) error {
	return pkgerrors.New(pkgerrors.CodeQuoteNotActionable, "quote can no longer be changed").
		WithDetails(map[string]any{"status": status})
}

// ownedRequest hides requests the customer does not own behind NotFound.
func (s *service) ownedRequest(ctx context.Context, repo Repository, customerID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	request, err := repo.FindRequest(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service request")
	}
	if request == nil || request.CustomerID == nil || *request.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service request not found")
	}
	return request, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID, requestID uuid.UUID, sort string) ([]QuoteDTO, error) {
	order, err := enums.ParseQuoteSort(strings.ToLower(strings.TrimSpace(sort)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if _, err := s.ownedRequest(ctx, s.repo, customerID, requestID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListForRequest(ctx, requestID, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list quotes")
	}
	return s.withReviews(ctx, rows)
}

func (s *service) GetForCustomer(ctx context.Context, customerID, requestID, quoteID uuid.UUID) (*QuoteDTO, error) {
	if _, err := s.ownedRequest(ctx, s.repo, customerID, requestID); err != nil {
		return nil, err
	}
	quote, err := s.repo.FindByID(ctx, requestID, quoteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load quote")
	}
	if quote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
	}
	out, err := s.withReviews(ctx, []models.VendorQuote{*quote})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *service) withReviews(ctx context.Context, rows []models.VendorQuote) ([]QuoteDTO, error) {
	vendorIDs := make([]uuid.UUID, 0, len(rows))
	seen := map[uuid.UUID]struct{}{}
	for _, row := range rows {
		if _, ok := seen[row.VendorID]; ok {
			continue
		}
		seen[row.VendorID] = struct{}{}
		vendorIDs = append(vendorIDs, row.VendorID)
	}
	aggregates, err := s.reviews.Aggregates(ctx, vendorIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vendor reviews")
	}

	out := make([]QuoteDTO, 0, len(rows))
	for _, row := range rows {
		agg := aggregates[row.VendorID]
		out = append(out, ToDTO(row, &agg))
	}
	return out, nil
}

func (s *service) ListMine(ctx context.Context, vendor auth.Identity, page pagination.Page) (*VendorQuoteList, error) {
	page = page.Normalize(pagination.MaxLimit)
	rows, total, err := s.repo.ListByVendor(ctx, vendor.UserID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list quotes")
	}
	items := make([]QuoteDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToDTO(row, nil))
	}
	return &VendorQuoteList{Items: items, Meta: pagination.NewMeta(page, total)}, nil
}
