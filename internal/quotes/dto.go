package quotes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/askservice/leadmarket-backend/internal/reviews"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

const dateLayout = "2006-01-02"

// SubmitInput is a vendor's quote. Price and ProposedStartDate arrive as
// strings and are validated by the service.
type SubmitInput struct {
	Price             string
	Currency          string
	Description       string
	ProposedStartDate string
	ValidDays         *int
	AttachmentURL     *string
}

// QuoteDTO is a quote as returned to either side.
type QuoteDTO struct {
	ID                uuid.UUID         `json:"id"`
	VendorID          uuid.UUID         `json:"vendorId"`
	ServiceRequestID  uuid.UUID         `json:"serviceRequestId"`
	Price             decimal.Decimal   `json:"price"`
	Currency          enums.Currency    `json:"currency"`
	Description       string            `json:"description"`
	ProposedStartDate string            `json:"proposedStartDate"`
	ValidDays         int               `json:"validDays"`
	ValidUntil        string            `json:"validUntil"`
	AttachmentURL     *string           `json:"attachmentUrl,omitempty"`
	Status            enums.QuoteStatus `json:"status"`
	DecidedAt         *time.Time        `json:"decidedAt,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	*reviews.Aggregate
}

// VendorQuoteList is a vendor's own quotes.
type VendorQuoteList struct {
	Items []QuoteDTO      `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// ToDTO renders q. agg is attached for customer-facing listings.
func ToDTO(q models.VendorQuote, agg *reviews.Aggregate) QuoteDTO {
	return QuoteDTO{
		ID:                q.ID,
		VendorID:          q.VendorID,
		ServiceRequestID:  q.ServiceRequestID,
		Price:             q.Price,
		Currency:          q.Currency,
		Description:       q.Description,
		ProposedStartDate: q.ProposedStartDate.Format(dateLayout),
		ValidDays:         q.ValidDays,
		ValidUntil:        q.CreatedAt.AddDate(0, 0, q.ValidDays).Format(dateLayout),
		AttachmentURL:     q.AttachmentURL,
		Status:            q.Status,
		DecidedAt:         q.DecidedAt,
		CreatedAt:         q.CreatedAt,
		Aggregate:         agg,
	}
}
