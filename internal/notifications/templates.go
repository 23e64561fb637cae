package notifications

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/enums"
)

// Message is a request to notify one user. Data feeds the template.
type Message struct {
	RecipientID uuid.UUID
	Type        enums.NotificationType
	Data        map[string]any
}

// Rendered is the user-facing text for a Message.
type Rendered struct {
	Title   string
	Message string
	Link    string
}

// Render fills the template for msg.Type from msg.Data.
func Render(msg Message) (Rendered, error) {
	d := msg.Data
	ref := value(d, "referenceNo")
	switch msg.Type {
	case enums.NotificationTypeLeadUnlocked:
		return Rendered{
			Title:   "Lead unlocked",
			Message: fmt.Sprintf("You unlocked lead %s for %s credits. Contact details are now visible.", ref, value(d, "credits")),
			Link:    fmt.Sprintf("/vendor/leads/%s", value(d, "requestId")),
		}, nil
	case enums.NotificationTypeQuoteReceived:
		return Rendered{
			Title:   "New quote received",
			Message: fmt.Sprintf("A vendor quoted %s %s on your request %s.", value(d, "price"), value(d, "currency"), ref),
			Link:    fmt.Sprintf("/customer/service-requests/%s/quotes/%s", value(d, "requestId"), value(d, "quoteId")),
		}, nil
	case enums.NotificationTypeQuoteAccepted:
		return Rendered{
			Title:   "Quote accepted",
			Message: fmt.Sprintf("Your quote on request %s was accepted.", ref),
			Link:    fmt.Sprintf("/vendor/leads/%s", value(d, "requestId")),
		}, nil
	case enums.NotificationTypeQuoteIgnored:
		return Rendered{
			Title:   "Quote declined",
			Message: fmt.Sprintf("Your quote on request %s was declined by the customer.", ref),
			Link:    fmt.Sprintf("/vendor/leads/%s", value(d, "requestId")),
		}, nil
	case enums.NotificationTypeRequestClosed:
		return requestEnded("Request closed", "was closed by the customer", d), nil
	case enums.NotificationTypeRequestCancelled:
		return requestEnded("Request cancelled", "was cancelled by the customer", d), nil
	case enums.NotificationTypeRequestExpired:
		return requestEnded("Request expired", "has expired", d), nil
	case enums.NotificationTypeCreditsPurchased:
		return Rendered{
			Title:   "Credits added",
			Message: fmt.Sprintf("%s credits were added to your wallet. New balance: %s.", value(d, "credits"), value(d, "balance")),
			Link:    "/vendor/credits/transactions",
		}, nil
	}
	return Rendered{}, fmt.Errorf("no template for notification type %q", msg.Type)
}

func requestEnded(title, verb string, d map[string]any) Rendered {
	return Rendered{
		Title:   title,
		Message: fmt.Sprintf("Request %s %s. No further quotes can be sent.", value(d, "referenceNo"), verb),
		Link:    fmt.Sprintf("/vendor/leads/%s", value(d, "requestId")),
	}
}

func value(d map[string]any, key string) string {
	if d == nil {
		return ""
	}
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
