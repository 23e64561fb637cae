package requests

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/internal/notifications"
	"github.com/askservice/leadmarket-backend/pkg/db"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
	"github.com/askservice/leadmarket-backend/pkg/types"
)

const (
	referencePrefix     = "REQ-"
	referenceAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referenceLength     = 6
	referenceMaxTries   = 5
	referenceConstraint = "service_requests_reference_no_key"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type categoryReader interface {
	GetActive(ctx context.Context, id uuid.UUID) (*models.ServiceCategory, error)
}

type notifier interface {
	Send(ctx context.Context, msg notifications.Message)
}

// Service drives the service request lifecycle.
type Service interface {
	Create(ctx context.Context, customerID *uuid.UUID, input CreateInput) (*models.ServiceRequest, error)
	Verify(ctx context.Context, requestID, customerID uuid.UUID) (*models.ServiceRequest, error)
	ListMine(ctx context.Context, customerID uuid.UUID, page pagination.Page) (*ListResult, error)
	GetMine(ctx context.Context, customerID, requestID uuid.UUID) (*models.ServiceRequest, error)
	Close(ctx context.Context, customerID, requestID uuid.UUID, input CloseInput) (*models.ServiceRequest, error)
	Cancel(ctx context.Context, customerID, requestID uuid.UUID, input CloseInput) (*models.ServiceRequest, error)
	ExpireBefore(ctx context.Context, cutoff time.Time, batch int) (int, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	categories categoryReader
	notify     notifier
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires the lifecycle service.
func NewService(tx txRunner, repo Repository, categories categoryReader, notify notifier, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("service request repository required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category reader required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		repo:       repo,
		categories: categories,
		notify:     notify,
		logg:       logg,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create stores a new request. Authenticated customers go live immediately;
// anonymous submissions wait for contact verification.
func (s *service) Create(ctx context.Context, customerID *uuid.UUID, input CreateInput) (*models.ServiceRequest, error) {
	frequency, err := enums.ParseFrequency(input.Frequency)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	contact, err := buildContact(input.Contact)
	if err != nil {
		return nil, err
	}
	if _, err := s.categories.GetActive(ctx, input.CategoryID); err != nil {
		return nil, err
	}
	if input.ChildCategoryID != nil {
		child, err := s.categories.GetActive(ctx, *input.ChildCategoryID)
		if err != nil || child.ParentID == nil || *child.ParentID != input.CategoryID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "child category does not belong to category")
		}
	}

	request := &models.ServiceRequest{
		CategoryID:          input.CategoryID,
		ChildCategoryID:     input.ChildCategoryID,
		ManualChildCategory: trimmedPtr(input.ManualChildCategory),
		Frequency:           frequency,
		SelectedOptions:     input.SelectedOptions,
		PreferredStartDate:  input.PreferredStartDate,
		PreferredTimeOfDay:  trimmedPtr(input.PreferredTimeOfDay),
		Note:                trimmedPtr(input.Note),
		AddressLine1:        strings.TrimSpace(input.AddressLine1),
		AddressLine2:        trimmedPtr(input.AddressLine2),
		City:                strings.TrimSpace(input.City),
		State:               strings.TrimSpace(input.State),
		Country:             strings.TrimSpace(input.Country),
		Pincode:             strings.TrimSpace(input.Pincode),
		Contact:             contact,
		Status:              enums.ServiceRequestStatusPendingVerification,
	}
	if customerID != nil && *customerID != uuid.Nil {
		owner := *customerID
		now := s.now()
		request.CustomerID = &owner
		request.Status = enums.ServiceRequestStatusActive
		request.VerifiedAt = &now
	}

	for attempt := 0; ; attempt++ {
		request.ID = uuid.New()
		request.ReferenceNo, err = newReference()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reference")
		}
		err = s.repo.Create(ctx, request)
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err, referenceConstraint) && attempt < referenceMaxTries {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create service request")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"service_request_id": request.ID.String(),
		"reference_no":       request.ReferenceNo,
		"status":             request.Status,
	})
	s.logg.Info(logCtx, "service request created")
	return request, nil
}

func (s *service) Verify(ctx context.Context, requestID, customerID uuid.UUID) (*models.ServiceRequest, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	var updated *models.ServiceRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service request")
		}
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "service request not found")
		}
		if !CanTransition(request.Status, enums.ServiceRequestStatusActive) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "service request is not awaiting verification").
				WithDetails(map[string]any{"status": request.Status})
		}
		now := s.now()
		ok, err := repo.Transition(ctx, requestID, request.Status, enums.ServiceRequestStatusActive, map[string]any{
			"customer_id": customerID,
			"verified_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify service request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "service request changed concurrently")
		}
		request.Status = enums.ServiceRequestStatusActive
		request.CustomerID = &customerID
		request.VerifiedAt = &now
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "service_request_id", requestID.String()), "service request verified")
	return updated, nil
}

func (s *service) ListMine(ctx context.Context, customerID uuid.UUID, page pagination.Page) (*ListResult, error) {
	page = page.Normalize(pagination.MaxLimit)
	rows, total, err := s.repo.ListByCustomer(ctx, customerID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list service requests")
	}
	items := make([]RequestDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *ToDTO(&rows[i]))
	}
	return &ListResult{Items: items, Meta: pagination.NewMeta(page, total)}, nil
}

func (s *service) GetMine(ctx context.Context, customerID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service request")
	}
	if !ownedBy(request, customerID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service request not found")
	}
	return request, nil
}

func (s *service) Close(ctx context.Context, customerID, requestID uuid.UUID, input CloseInput) (*models.ServiceRequest, error) {
	return s.end(ctx, customerID, requestID, input, enums.ServiceRequestStatusClosed, enums.NotificationTypeRequestClosed)
}

func (s *service) Cancel(ctx context.Context, customerID, requestID uuid.UUID, input CloseInput) (*models.ServiceRequest, error) {
	return s.end(ctx, customerID, requestID, input, enums.ServiceRequestStatusCancelled, enums.NotificationTypeRequestCancelled)
}

func (s *service) end(ctx context.Context, customerID, requestID uuid.UUID, input CloseInput, to enums.ServiceRequestStatus, kind enums.NotificationType) (*models.ServiceRequest, error) {
	reason, err := enums.ParseCloseReason(input.Reason)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	comment := trimmedPtr(input.Comment)
	if reason == enums.CloseReasonOther && comment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment is required when reason is OTHER")
	}

	var (
		updated *models.ServiceRequest
		vendors []uuid.UUID
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service request")
		}
		if !ownedBy(request, customerID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "service request not found")
		}
		if !CanTransition(request.Status, to) {
			return pkgerrors.New(pkgerrors.CodeRequestNotActive, "service request is not active").
				WithDetails(map[string]any{"status": request.Status})
		}

		now := s.now()
		ok, err := repo.Transition(ctx, requestID, request.Status, to, map[string]any{
			"close_reason":  reason,
			"close_comment": comment,
			"closed_at":     now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update service request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeRequestNotActive, "service request is not active")
		}

		vendors, err = repo.UnlockedVendorIDs(ctx, requestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load unlocked vendors")
		}

		request.Status = to
		request.CloseReason = &reason
		request.CloseComment = comment
		request.ClosedAt = &now
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"service_request_id": requestID.String(),
		"status":             to,
		"close_reason":       reason,
	})
	s.logg.Info(logCtx, "service request ended")
	s.notifyVendors(ctx, updated, vendors, kind)
	return updated, nil
}

// ExpireBefore expires ACTIVE requests created before cutoff. Quotes are not
// touched, so accepted quotes survive expiry.
func (s *service) ExpireBefore(ctx context.Context, cutoff time.Time, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	rows, err := s.repo.ListActiveCreatedBefore(ctx, cutoff, batch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list expirable requests")
	}

	var (
		expired int
		errs    error
	)
	for i := range rows {
		request := rows[i]
		var (
			vendors      []uuid.UUID
			transitioned bool
		)
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			ok, err := repo.Transition(ctx, request.ID, enums.ServiceRequestStatusActive, enums.ServiceRequestStatusExpired, map[string]any{
				"expired_at": s.now(),
			})
			if err != nil || !ok {
				return err
			}
			vendors, err = repo.UnlockedVendorIDs(ctx, request.ID)
			if err != nil {
				return err
			}
			transitioned = true
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", request.ID, err))
			continue
		}
		if transitioned {
			expired++
			request.Status = enums.ServiceRequestStatusExpired
			s.notifyVendors(ctx, &request, vendors, enums.NotificationTypeRequestExpired)
		}
	}
	return expired, errs
}

func (s *service) notifyVendors(ctx context.Context, request *models.ServiceRequest, vendors []uuid.UUID, kind enums.NotificationType) {
	for _, vendorID := range vendors {
		s.notify.Send(ctx, notifications.Message{
			RecipientID: vendorID,
			Type:        kind,
			Data: map[string]any{
				"requestId":   request.ID.String(),
				"referenceNo": request.ReferenceNo,
			},
		})
	}
}

func ownedBy(request *models.ServiceRequest, customerID uuid.UUID) bool {
	return request != nil && request.CustomerID != nil && *request.CustomerID == customerID
}

func buildContact(in ContactInput) (types.ContactSnapshot, error) {
	contact := types.ContactSnapshot{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
	}
	if contact.FirstName == "" || contact.Phone == "" || contact.Email == "" {
		return contact, pkgerrors.New(pkgerrors.CodeValidation, "contact name, phone and email are required")
	}
	clientType := enums.ClientTypeIndividual
	if in.ClientType != "" {
		parsed, err := enums.ParseClientType(in.ClientType)
		if err != nil {
			return contact, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		clientType = parsed
	}
	contact.ClientType = string(clientType)
	return contact, nil
}

func newReference() (string, error) {
	buf := make([]byte, referenceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return referencePrefix + string(buf), nil
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
