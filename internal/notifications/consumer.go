package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/outbox"
	"github.com/askservice/leadmarket-backend/pkg/outbox/payloads"
	"github.com/askservice/leadmarket-backend/pkg/outbox/registry"
)

// ConsumerName scopes dedupe keys for the notification worker.
const ConsumerName = "notification-worker"

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type processedTracker interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type verdict int

const (
	ack verdict = iota
	nack
)

// errUnusable marks messages that can never succeed; they are acked and dropped.
var errUnusable = errors.New("unusable message")

// Consumer stores notification_requested events as in-app notifications.
// Redelivered events are recognised through the dedupe tracker.
type Consumer struct {
	repo         creator
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	logg         *logger.Logger
}

func NewConsumer(repo creator, subscription *pubsub.Subscriber, tracker processedTracker, logg *logger.Logger) (*Consumer, error) {
	switch {
	case repo == nil:
		return nil, errors.New("notifications repository required")
	case subscription == nil:
		return nil, errors.New("notification subscription required")
	case tracker == nil:
		return nil, errors.New("dedupe tracker required")
	case logg == nil:
		return nil, errors.New("logger required")
	}
	return &Consumer{repo: repo, subscription: subscription, idempotency: tracker, logg: logg}, nil
}

func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) verdict {
	eventType := enums.OutboxEventType(attrs["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})
	if eventType != enums.EventNotificationRequested {
		c.logg.Debug(logCtx, "notifications.event_ignored")
		return ack
	}

	eventID, event, err := decodeRequest(data)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "notifications.payload_rejected")
		return ack
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{"event_id": eventID.String()})

	first, err := c.idempotency.Claim(ctx, ConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "notifications.dedupe_failed", err)
		return nack
	}
	if !first {
		c.logg.Info(logCtx, "notifications.duplicate_event")
		return ack
	}

	if err := c.repo.Create(ctx, toModel(eventID, event)); err != nil {
		c.logg.Error(logCtx, "notifications.store_failed", err)
		if relErr := c.idempotency.Release(ctx, ConsumerName, eventID); relErr != nil {
			c.logg.Error(logCtx, "notifications.dedupe_release_failed", relErr)
		}
		return nack
	}
	c.logg.Info(c.logg.WithUserID(logCtx, event.RecipientID.String()), "notifications.stored")
	return ack
}

func decodeRequest(data []byte) (uuid.UUID, payloads.NotificationRequestedEvent, error) {
	var zero payloads.NotificationRequestedEvent
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return uuid.Nil, zero, fmt.Errorf("%w: envelope: %v", errUnusable, err)
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return uuid.Nil, zero, fmt.Errorf("%w: event id %q", errUnusable, envelope.EventID)
	}
	decoded, err := registry.Decode(enums.EventNotificationRequested, envelope.Version, envelope.Data)
	if err != nil {
		return uuid.Nil, zero, fmt.Errorf("%w: %v", errUnusable, err)
	}
	event, ok := decoded.(payloads.NotificationRequestedEvent)
	if !ok || event.RecipientID == uuid.Nil || !event.Type.IsValid() {
		return uuid.Nil, zero, fmt.Errorf("%w: incomplete notification payload", errUnusable)
	}
	return eventID, event, nil
}

func toModel(eventID uuid.UUID, event payloads.NotificationRequestedEvent) *models.Notification {
	return &models.Notification{
		UserID:  event.RecipientID,
		EventID: &eventID,
		Type:    event.Type,
		Title:   event.Title,
		Message: event.Message,
		Link:    event.Link,
	}
}
