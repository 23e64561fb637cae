package servicerequests

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/api/middleware"
	"github.com/askservice/leadmarket-backend/api/responses"
	"github.com/askservice/leadmarket-backend/api/validators"
	"github.com/askservice/leadmarket-backend/internal/requests"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

type contactBody struct {
	FirstName  string `json:"firstName" validate:"required,max=100"`
	LastName   string `json:"lastName" validate:"required,max=100"`
	ClientType string `json:"clientType" validate:"required"`
	Phone      string `json:"phone" validate:"required,max=32"`
	Email      string `json:"email" validate:"required,email"`
}

type createBody struct {
	CategoryID          string      `json:"categoryId" validate:"required,uuid"`
	ChildCategoryID     *string     `json:"childCategoryId" validate:"omitempty,uuid"`
	ManualChildCategory *string     `json:"manualChildCategory" validate:"omitempty,max=200"`
	Frequency           string      `json:"frequency" validate:"required"`
	SelectedOptions     []string    `json:"selectedOptions" validate:"max=50"`
	PreferredStartDate  *string     `json:"preferredStartDate" validate:"omitempty,datetime=2006-01-02"`
	PreferredTimeOfDay  *string     `json:"preferredTimeOfDay" validate:"omitempty,max=50"`
	Note                *string     `json:"note" validate:"omitempty,max=5000"`
	AddressLine1        string      `json:"addressLine1" validate:"required,max=255"`
	AddressLine2        *string     `json:"addressLine2" validate:"omitempty,max=255"`
	City                string      `json:"city" validate:"required,max=100"`
	State               string      `json:"state" validate:"required,max=100"`
	Country             string      `json:"country" validate:"required,max=100"`
	Pincode             string      `json:"pincode" validate:"required,max=20"`
	Contact             contactBody `json:"contact"`
}

func (b createBody) toInput() requests.CreateInput {
	input := requests.CreateInput{
		CategoryID:          uuid.MustParse(b.CategoryID),
		ManualChildCategory: b.ManualChildCategory,
		Frequency:           b.Frequency,
		SelectedOptions:     b.SelectedOptions,
		PreferredTimeOfDay:  b.PreferredTimeOfDay,
		Note:                b.Note,
		AddressLine1:        b.AddressLine1,
		AddressLine2:        b.AddressLine2,
		City:                b.City,
		State:               b.State,
		Country:             b.Country,
		Pincode:             b.Pincode,
		Contact: requests.ContactInput{
			FirstName:  b.Contact.FirstName,
			LastName:   b.Contact.LastName,
			ClientType: b.Contact.ClientType,
			Phone:      b.Contact.Phone,
			Email:      b.Contact.Email,
		},
	}
	if b.ChildCategoryID != nil {
		child := uuid.MustParse(*b.ChildCategoryID)
		input.ChildCategoryID = &child
	}
	if b.PreferredStartDate != nil {
		if date, err := time.Parse("2006-01-02", *b.PreferredStartDate); err == nil {
			input.PreferredStartDate = &date
		}
	}
	return input
}

type closeBody struct {
	Reason  string  `json:"reason" validate:"required"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

type verifyBody struct {
	CustomerID string `json:"customerId" validate:"required,uuid"`
}

// Create accepts a submission from a signed-in customer or an anonymous visitor.
func Create(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var customerID *uuid.UUID
		if id, ok := middleware.IdentityFromContext(r.Context()); ok {
			customerID = &id.UserID
		}

		created, err := svc.Create(r.Context(), customerID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "service request submitted", requests.ToDTO(created))
	}
}

// ListMine returns the caller's requests, newest first.
func ListMine(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListMine(r.Context(), id.UserID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetMine returns one of the caller's requests.
func GetMine(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, requestID, err := ownerAndRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.GetMine(r.Context(), id, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests.ToDTO(request))
	}
}

// Close ends an active request because the customer is done with it.
func Close(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return terminate(func(ctx context.Context, customerID, requestID uuid.UUID, input requests.CloseInput) (*models.ServiceRequest, error) {
		return svc.Close(ctx, customerID, requestID, input)
	}, "service request closed", logg)
}

// Cancel withdraws an active request.
func Cancel(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return terminate(func(ctx context.Context, customerID, requestID uuid.UUID, input requests.CloseInput) (*models.ServiceRequest, error) {
		return svc.Cancel(ctx, customerID, requestID, input)
	}, "service request cancelled", logg)
}

type terminateFunc func(ctx context.Context, customerID, requestID uuid.UUID, input requests.CloseInput) (*models.ServiceRequest, error)

func terminate(fn terminateFunc, message string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, requestID, err := ownerAndRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body closeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := fn(r.Context(), customerID, requestID, requests.CloseInput{Reason: body.Reason, Comment: body.Comment})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, message, requests.ToDTO(updated))
	}
}

// Verify attaches the verified owner to a pending submission.
func Verify(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body verifyBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		verified, err := svc.Verify(r.Context(), requestID, uuid.MustParse(body.CustomerID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "service request verified", requests.ToDTO(verified))
	}
}

func ownerAndRequest(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	id, err := middleware.RequireIdentity(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	requestID, err := validators.ParseUUIDParam(r, "requestId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return id.UserID, requestID, nil
}
