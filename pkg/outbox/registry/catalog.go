// Package registry maps outbox event types to their topic, aggregate and
// versioned payload schema.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/outbox"
	"github.com/askservice/leadmarket-backend/pkg/outbox/payloads"
)

type schemaKey struct {
	eventType enums.OutboxEventType
	version   int
}

type schema struct {
	aggregate enums.OutboxAggregateType
	decode    func(json.RawMessage) (any, error)
}

func decodeAs[T any](data json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var schemas = map[schemaKey]schema{
	{enums.EventNotificationRequested, 1}: {
		aggregate: enums.AggregateNotification,
		decode:    decodeAs[payloads.NotificationRequestedEvent],
	},
}

// Decode returns the typed payload for eventType at version.
func Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	s, ok := schemas[schemaKey{eventType, version}]
	if !ok {
		return nil, fmt.Errorf("no schema for %s v%d", eventType, version)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%s payload is empty", eventType)
	}
	out, err := s.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s v%d: %w", eventType, version, err)
	}
	return out, nil
}

// ResolvedEvent is an outbox row that passed validation, ready to publish.
type ResolvedEvent struct {
	Topic    string
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// Catalog routes event types to pubsub topics.
type Catalog struct {
	topics map[enums.OutboxEventType]string
}

func NewCatalog(cfg config.PubSubConfig) (*Catalog, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}
	return &Catalog{topics: map[enums.OutboxEventType]string{
		enums.EventNotificationRequested: cfg.NotificationTopic,
	}}, nil
}

// Resolve checks row against its schema. Every failure is permanent: the
// row content will not change between attempts.
func (c *Catalog) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	topic, ok := c.topics[row.EventType]
	if !ok {
		return nil, Permanent(fmt.Errorf("no topic for event type %q", row.EventType))
	}
	if row.AggregateID == uuid.Nil {
		return nil, Permanent(fmt.Errorf("%s row %s has no aggregate id", row.EventType, row.ID))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return nil, Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	s, ok := schemas[schemaKey{row.EventType, envelope.Version}]
	if !ok {
		return nil, Permanent(fmt.Errorf("no schema for %s v%d", row.EventType, envelope.Version))
	}
	if s.aggregate != row.AggregateType {
		return nil, Permanent(fmt.Errorf("%s expects aggregate %s, row has %s", row.EventType, s.aggregate, row.AggregateType))
	}
	payload, err := Decode(row.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, Permanent(err)
	}
	return &ResolvedEvent{Topic: topic, Envelope: envelope, Payload: payload}, nil
}
