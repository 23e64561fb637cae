package requests

import (
	"time"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
	"github.com/askservice/leadmarket-backend/pkg/types"
)

// CreateInput is a service request submission.
type CreateInput struct {
	CategoryID          uuid.UUID
	ChildCategoryID     *uuid.UUID
	ManualChildCategory *string
	Frequency           string
	SelectedOptions     []string
	PreferredStartDate  *time.Time
	PreferredTimeOfDay  *string
	Note                *string
	AddressLine1        string
	AddressLine2        *string
	City                string
	State               string
	Country             string
	Pincode             string
	Contact             ContactInput
}

// ContactInput is the requester contact captured at submission.
type ContactInput struct {
	FirstName  string
	LastName   string
	ClientType string
	Phone      string
	Email      string
}

// CloseInput carries the customer's reason for ending a request.
type CloseInput struct {
	Reason  string
	Comment *string
}

// RequestDTO is the owner's view of a request.
type RequestDTO struct {
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
	AddressLine1        string                     `json:"addressLine1"`
	AddressLine2        *string                    `json:"addressLine2,omitempty"`
	City                string                     `json:"city"`
	State               string                     `json:"state"`
	Country             string                     `json:"country"`
	Pincode             string                     `json:"pincode"`
	Contact             types.ContactSnapshot      `json:"contact"`
	Status              enums.ServiceRequestStatus `json:"status"`
	CloseReason         *enums.CloseReason         `json:"closeReason,omitempty"`
	CloseComment        *string                    `json:"closeComment,omitempty"`
	ClosedAt            *time.Time                 `json:"closedAt,omitempty"`
	CreatedAt           time.Time                  `json:"createdAt"`
}

// ListResult is a page of the customer's requests.
type ListResult struct {
	Items []RequestDTO    `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// ToDTO converts a model to the owner view.
func ToDTO(m *models.ServiceRequest) *RequestDTO {
	if m == nil {
		return nil
	}
	options := []string(m.SelectedOptions)
	if options == nil {
		options = []string{}
	}
	return &RequestDTO{
		ID:                  m.ID,
		ReferenceNo:         m.ReferenceNo,
		CategoryID:          m.CategoryID,
		ChildCategoryID:     m.ChildCategoryID,
		ManualChildCategory: m.ManualChildCategory,
		Frequency:           m.Frequency,
		SelectedOptions:     options,
		PreferredStartDate:  m.PreferredStartDate,
		PreferredTimeOfDay:  m.PreferredTimeOfDay,
		Note:                m.Note,
		AddressLine1:        m.AddressLine1,
		AddressLine2:        m.AddressLine2,
		City:                m.City,
		State:               m.State,
		Country:             m.Country,
		Pincode:             m.Pincode,
		Contact:             m.Contact,
		Status:              m.Status,
		CloseReason:         m.CloseReason,
		CloseComment:        m.CloseComment,
		ClosedAt:            m.ClosedAt,
		CreatedAt:           m.CreatedAt,
	}
}
