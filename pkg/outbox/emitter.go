package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/logger"
)

// PayloadEnvelope is the JSON document stored in outbox_events.payload and
// published as the message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// DomainEvent is what producers hand to Emit.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

type rowWriter interface {
	Insert(tx *gorm.DB, row *models.OutboxEvent) error
}

// Emitter stages domain events in outbox_events.
type Emitter struct {
	rows rowWriter
	logg *logger.Logger
	now  func() time.Time
}

func NewEmitter(rows rowWriter, logg *logger.Logger) *Emitter {
	return &Emitter{rows: rows, logg: logg, now: func() time.Time { return time.Now().UTC() }}
}

// Emit writes event inside tx; it is published only if tx commits.
func (e *Emitter) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	row, envelope, err := e.encode(event)
	if err != nil {
		return err
	}
	if err := e.rows.Insert(tx, row); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	if e.logg != nil {
		e.logg.Debug(e.logg.WithFields(ctx, map[string]any{
			"event_id":     envelope.EventID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		}), "outbox.event_staged")
	}
	return nil
}

func (e *Emitter) encode(event DomainEvent) (*models.OutboxEvent, PayloadEnvelope, error) {
	if !event.EventType.IsValid() {
		return nil, PayloadEnvelope{}, fmt.Errorf("invalid outbox event type %q", event.EventType)
	}
	if !event.AggregateType.IsValid() {
		return nil, PayloadEnvelope{}, fmt.Errorf("invalid outbox aggregate type %q", event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return nil, PayloadEnvelope{}, fmt.Errorf("aggregate id required for %s", event.EventType)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, PayloadEnvelope{}, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	envelope := PayloadEnvelope{
		Version:    max(event.Version, 1),
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	if envelope.OccurredAt.IsZero() {
		envelope.OccurredAt = e.now()
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, PayloadEnvelope{}, fmt.Errorf("encode envelope: %w", err)
	}
	return &models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}, envelope, nil
}
