package quotes

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/api/middleware"
	"github.com/askservice/leadmarket-backend/api/responses"
	"github.com/askservice/leadmarket-backend/api/validators"
	internalquotes "github.com/askservice/leadmarket-backend/internal/quotes"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

type submitBody struct {
	Price             json.Number `json:"price" validate:"required"`
	Currency          string      `json:"currency" validate:"omitempty,len=3"`
	Description       string      `json:"description" validate:"required,max=5000"`
	ProposedStartDate string      `json:"proposedStartDate" validate:"required"`
	ValidDays         *int        `json:"validDays" validate:"omitempty,gt=0,max=365"`
	AttachmentURL     *string     `json:"attachmentUrl" validate:"omitempty,url,max=2048"`
}

// Submit creates the vendor's quote on an unlocked lead.
func Submit(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		leadID, err := validators.ParseUUIDParam(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body submitBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Submit(r.Context(), vendor, leadID, internalquotes.SubmitInput{
			Price:             body.Price.String(),
			Currency:          strings.ToUpper(strings.TrimSpace(body.Currency)),
			Description:       body.Description,
			ProposedStartDate: strings.TrimSpace(body.ProposedStartDate),
			ValidDays:         body.ValidDays,
			AttachmentURL:     body.AttachmentURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "quote submitted", quote)
	}
}

// ListMine returns the vendor's own quotes.
func ListMine(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListMine(r.Context(), vendor, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListForRequest returns quotes on the customer's request, annotated with
// vendor ratings.
func ListForRequest(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, requestID, err := customerAndRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sort := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("sort")))
		list, err := svc.ListForCustomer(r.Context(), customerID, requestID, sort)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []internalquotes.QuoteDTO{}
		}
		responses.WriteSuccess(w, list)
	}
}

// Get returns one quote on the customer's request.
func Get(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, requestID, err := customerAndRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.GetForCustomer(r.Context(), customerID, requestID, quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// Accept marks a quote ACCEPTED.
func Accept(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(func(ctx context.Context, customerID, requestID, quoteID uuid.UUID) (*internalquotes.QuoteDTO, error) {
		return svc.Accept(ctx, customerID, requestID, quoteID)
	}, "quote accepted", logg)
}

// Ignore marks a quote IGNORED.
func Ignore(svc internalquotes.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(func(ctx context.Context, customerID, requestID, quoteID uuid.UUID) (*internalquotes.QuoteDTO, error) {
		return svc.Ignore(ctx, customerID, requestID, quoteID)
	}, "quote ignored", logg)
}

type decision func(ctx context.Context, customerID, requestID, quoteID uuid.UUID) (*internalquotes.QuoteDTO, error)

func decide(fn decision, message string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, requestID, err := customerAndRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := validators.ParseUUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := fn(r.Context(), customerID, requestID, quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, message, quote)
	}
}

func customerAndRequest(r *http.Request) (uuid.UUID, uuid.UUID, error) {
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
