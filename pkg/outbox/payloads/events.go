package payloads

import (
	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/enums"
)

// NotificationRequestedEvent asks the notification worker to deliver an
// in-app message to a single user.
type NotificationRequestedEvent struct {
	RecipientID uuid.UUID              `json:"recipient_id"`
	Type        enums.NotificationType `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Link        *string                `json:"link,omitempty"`
	Data        map[string]any         `json:"data,omitempty"`
}
