package enums

import "slices"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeLeadUnlocked     NotificationType = "lead_unlocked"
	NotificationTypeQuoteReceived    NotificationType = "quote_received"
	NotificationTypeQuoteAccepted    NotificationType = "quote_accepted"
	NotificationTypeQuoteIgnored     NotificationType = "quote_ignored"
	NotificationTypeRequestClosed    NotificationType = "request_closed"
	NotificationTypeRequestCancelled NotificationType = "request_cancelled"
	NotificationTypeRequestExpired   NotificationType = "request_expired"
	NotificationTypeCreditsPurchased NotificationType = "credits_purchased"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeLeadUnlocked,
	NotificationTypeQuoteReceived,
	NotificationTypeQuoteAccepted,
	NotificationTypeQuoteIgnored,
	NotificationTypeRequestClosed,
	NotificationTypeRequestCancelled,
	NotificationTypeRequestExpired,
	NotificationTypeCreditsPurchased,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parseEnum(validNotificationTypes, value, "notification type")
}
