// Package dedupe records which outbox events a consumer has handled so
// redelivered pubsub messages become no-ops.
package dedupe

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/redis"
)

type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Key(space redis.Keyspace, parts ...string) string
}

// Tracker claims event ids per consumer under asksvc:dedupe:<consumer>:<id>.
type Tracker struct {
	store store
	ttl   time.Duration
}

// NewTracker builds a Tracker. A zero ttl keeps claims forever.
func NewTracker(s store, ttl time.Duration) (*Tracker, error) {
	if s == nil {
		return nil, errors.New("dedupe store is required")
	}
	if ttl < 0 {
		return nil, errors.New("dedupe ttl must not be negative")
	}
	return &Tracker{store: s, ttl: ttl}, nil
}

// Claim returns true when this call is the first to see eventID for consumer.
func (t *Tracker) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return t.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), t.ttl)
}

// Release drops a claim so a failed event can be handled on redelivery.
func (t *Tracker) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return err
	}
	return t.store.Del(ctx, key)
}

func (t *Tracker) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return t.store.Key(redis.SpaceDedupe, consumer, eventID.String()), nil
}
