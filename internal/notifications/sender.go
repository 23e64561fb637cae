package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/outbox"
	"github.com/askservice/leadmarket-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Sender queues notifications through the outbox. It is called after the
// domain transaction commits and never reports failure to the caller.
type Sender struct {
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
}

// NewSender builds an outbox-backed notification sender.
func NewSender(tx txRunner, emitter outboxEmitter, logg *logger.Logger) (*Sender, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Sender{tx: tx, outbox: emitter, logg: logg}, nil
}

// Send renders msg and stages a notification_requested event.
func (s *Sender) Send(ctx context.Context, msg Message) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"notification_type": msg.Type,
		"recipient_id":      msg.RecipientID.String(),
	})
	if err := s.send(ctx, msg); err != nil {
		s.logg.Error(logCtx, "notification not queued", err)
		return
	}
	s.logg.Info(logCtx, "notification queued")
}

func (s *Sender) send(ctx context.Context, msg Message) error {
	if msg.RecipientID == uuid.Nil {
		return fmt.Errorf("recipient required")
	}
	rendered, err := Render(msg)
	if err != nil {
		return err
	}

	event := payloads.NotificationRequestedEvent{
		RecipientID: msg.RecipientID,
		Type:        msg.Type,
		Title:       rendered.Title,
		Message:     rendered.Message,
		Data:        msg.Data,
	}
	if rendered.Link != "" {
		link := rendered.Link
		event.Link = &link
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   msg.RecipientID,
			Data:          event,
		})
	})
}
