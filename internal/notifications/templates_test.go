package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askservice/leadmarket-backend/pkg/enums"
)

func TestRenderTemplates(t *testing.T) {
	data := map[string]any{
		"referenceNo": "REQ-ABC123",
		"requestId":   "r-1",
		"quoteId":     "q-1",
		"credits":     3,
		"balance":     2,
		"price":       "120.00",
		"currency":    "EUR",
	}

	tests := []struct {
		typ      enums.NotificationType
		title    string
		contains string
		link     string
	}{
		{enums.NotificationTypeLeadUnlocked, "Lead unlocked", "REQ-ABC123 for 3 credits", "/vendor/leads/r-1"},
		{enums.NotificationTypeQuoteReceived, "New quote received", "120.00 EUR", "/customer/service-requests/r-1/quotes/q-1"},
		{enums.NotificationTypeQuoteAccepted, "Quote accepted", "was accepted", "/vendor/leads/r-1"},
		{enums.NotificationTypeQuoteIgnored, "Quote declined", "was declined", "/vendor/leads/r-1"},
		{enums.NotificationTypeRequestClosed, "Request closed", "closed by the customer", "/vendor/leads/r-1"},
		{enums.NotificationTypeRequestCancelled, "Request cancelled", "cancelled by the customer", "/vendor/leads/r-1"},
		{enums.NotificationTypeRequestExpired, "Request expired", "has expired", "/vendor/leads/r-1"},
		{enums.NotificationTypeCreditsPurchased, "Credits added", "New balance: 2", "/vendor/credits/transactions"},
	}
	for _, tc := range tests {
		t.Run(string(tc.typ), func(t *testing.T) {
			got, err := Render(Message{Type: tc.typ, Data: data})
			require.NoError(t, err)
			assert.Equal(t, tc.title, got.Title)
			assert.Contains(t, got.Message, tc.contains)
			assert.Equal(t, tc.link, got.Link)
		})
	}

	_, err := Render(Message{Type: "unknown"})
	assert.Error(t, err)
}
