package leads

import (
	"time"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
	"github.com/askservice/leadmarket-backend/pkg/types"
)

// LeadDTO is a service request as a vendor sees it. Address lines and
// pincode stay hidden until the vendor unlocks the lead.
type LeadDTO struct {
	ID                  uuid.UUID                  `json:"id"`
	ReferenceNo         string                     `json:"referenceNo"`
	CategoryID          uuid.UUID                  `json:"categoryId"`
	ChildCategoryID     *uuid.UUID                 `json:"childCategoryId,omitempty"`
	ManualChildCategory *string                    `json:"manualChildCategory,omitempty"`
	Frequency           enums.Frequency            `json:"frequency"`
	SelectedOptions     []string                   `json:"selectedOptions"`
	PreferredStartDate  *time.Time                 `json:"preferredStartDate,omitempty"`
	PreferredTimeOfDay  *string                    `json:"preferredTimeOfDay,omitempty"`
	Note                *string                    `json:"note,omitempty"`
	City                string                     `json:"city"`
	State               string                     `json:"state"`
	Country             string                     `json:"country"`
	AddressLine1        string                     `json:"addressLine1,omitempty"`
	AddressLine2        *string                    `json:"addressLine2,omitempty"`
	Pincode             string                     `json:"pincode,omitempty"`
	Contact             types.ContactSnapshot      `json:"contact"`
	Status              enums.ServiceRequestStatus `json:"status"`
	UnlockCost          int                        `json:"unlockCost"`
	QuotesCount         int64                      `json:"quotesCount"`
	Unlocked            bool                       `json:"unlocked"`
	CreditsSpent        *int                       `json:"creditsSpent,omitempty"`
	UnlockedAt          *time.Time                 `json:"unlockedAt,omitempty"`
	CreatedAt           time.Time                  `json:"createdAt"`
}

// LeadList is a page of leads.
type LeadList struct {
	Items []LeadDTO       `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// Dashboard summarises a vendor's position in the lead economy.
type Dashboard struct {
	AvailableLeads   int64           `json:"availableLeads"`
	PurchasedLeads   int64           `json:"purchasedLeads"`
	CreditBalance    int             `json:"creditBalance"`
	QuotesSent       int64           `json:"quotesSent"`
	KYCStatus        enums.KYCStatus `json:"kycStatus"`
	CanPurchaseLeads bool            `json:"canPurchaseLeads"`
}

// BuildLead renders request for a vendor. A nil unlock yields the masked view.
func BuildLead(request models.ServiceRequest, unlockCost int, quotesCount int64, unlock *models.LeadUnlock) LeadDTO {
	options := []string(request.SelectedOptions)
	if options == nil {
		options = []string{}
	}
	dto := LeadDTO{
		ID:                  request.ID,
		ReferenceNo:         request.ReferenceNo,
		CategoryID:          request.CategoryID,
		ChildCategoryID:     request.ChildCategoryID,
		ManualChildCategory: request.ManualChildCategory,
		Frequency:           request.Frequency,
		SelectedOptions:     options,
		PreferredStartDate:  request.PreferredStartDate,
		PreferredTimeOfDay:  request.PreferredTimeOfDay,
		Note:                request.Note,
		City:                request.City,
		State:               request.State,
		Country:             request.Country,
		Status:              request.Status,
		UnlockCost:          unlockCost,
		QuotesCount:         quotesCount,
		CreatedAt:           request.CreatedAt,
	}
	if unlock == nil {
		dto.Contact = MaskContact(request.Contact)
		return dto
	}

	spent := unlock.CreditsSpent
	unlockedAt := unlock.CreatedAt
	dto.Unlocked = true
	dto.CreditsSpent = &spent
	dto.UnlockedAt = &unlockedAt
	dto.Contact = request.Contact
	dto.AddressLine1 = request.AddressLine1
	dto.AddressLine2 = request.AddressLine2
	dto.Pincode = request.Pincode
	return dto
}
