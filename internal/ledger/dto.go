package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

// TransactionDTO is the API view of a ledger entry.
type TransactionDTO struct {
	ID                uuid.UUID                      `json:"id"`
	TransactionNumber string                         `json:"transactionNumber"`
	Type              enums.TransactionType          `json:"type"`
	Amount            int                            `json:"amount"`
	BalanceAfter      int                            `json:"balanceAfter"`
	Status            enums.TransactionStatus        `json:"status"`
	ReferenceType     enums.TransactionReferenceType `json:"referenceType"`
	ReferenceID       *uuid.UUID                     `json:"referenceId,omitempty"`
	Description       string                         `json:"description"`
	CreatedAt         time.Time                      `json:"createdAt"`
}

// TransactionList is the API view of a TransactionPage.
type TransactionList struct {
	Items []TransactionDTO `json:"items"`
	Meta  pagination.Meta  `json:"meta"`
}

func ToTransactionDTO(t models.CreditTransaction) TransactionDTO {
	return TransactionDTO{
		ID:                t.ID,
		TransactionNumber: t.TransactionNumber,
		Type:              t.Type,
		Amount:            t.Amount,
		BalanceAfter:      t.BalanceAfter,
		Status:            t.Status,
		ReferenceType:     t.ReferenceType,
		ReferenceID:       t.ReferenceID,
		Description:       t.Description,
		CreatedAt:         t.CreatedAt,
	}
}

// List renders the page for API responses.
func (p *TransactionPage) List() TransactionList {
	items := make([]TransactionDTO, 0, len(p.Transactions))
	for _, t := range p.Transactions {
		items = append(items, ToTransactionDTO(t))
	}
	return TransactionList{Items: items, Meta: p.Meta}
}
