package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/metrics"
	"github.com/askservice/leadmarket-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxIdleBackoff        = 10 * time.Second
	maxJitter             = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventQueue interface {
	LockPending(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	MarkRetry(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminal(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetters interface {
	Insert(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicSender delivers one message and blocks until the broker acks it.
type topicSender interface {
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) error
}

type PublisherParams struct {
	Config   config.OutboxConfig
	Logger   *logger.Logger
	DB       txRunner
	Broker   func(context.Context) error
	Queue    eventQueue
	DLQ      deadLetters
	Registry resolver
	Sender   topicSender
	Metrics  *metrics.OutboxMetrics
}

// Publisher drains outbox_events to Pub/Sub. Rows are locked per batch, so
// several publishers can run side by side.
type Publisher struct {
	logg         *logger.Logger
	db           txRunner
	brokerPing   func(context.Context) error
	queue        eventQueue
	dlq          deadLetters
	registry     resolver
	sender       topicSender
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDeadLettered
)

func (o outcome) String() string {
	switch o {
	case outcomePublished:
		return "published"
	case outcomeRetry:
		return "retry"
	}
	return "dead_lettered"
}

type batchStats struct {
	published    int
	retried      int
	deadLettered int
}

func (b batchStats) total() int { return b.published + b.retried + b.deadLettered }

func NewPublisher(params PublisherParams) (*Publisher, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Queue == nil:
		return nil, errors.New("outbox store is required")
	case params.DLQ == nil:
		return nil, errors.New("dead letter store is required")
	case params.Registry == nil:
		return nil, errors.New("event catalog is required")
	case params.Sender == nil:
		return nil, errors.New("topic sender is required")
	}

	p := &Publisher{
		logg:         params.Logger,
		db:           params.DB,
		brokerPing:   params.Broker,
		queue:        params.Queue,
		dlq:          params.DLQ,
		registry:     params.Registry,
		sender:       params.Sender,
		metrics:      params.Metrics,
		batchSize:    params.Config.BatchSize,
		maxAttempts:  params.Config.MaxAttempts,
		pollInterval: time.Duration(params.Config.PollIntervalMS) * time.Millisecond,
	}
	if p.batchSize <= 0 {
		p.batchSize = defaultBatchSize
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = defaultMaxAttempts
	}
	if p.pollInterval <= 0 {
		p.pollInterval = defaultPollInterval
	}
	return p, nil
}

func (p *Publisher) Run(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if p.brokerPing != nil {
		if err := p.brokerPing(ctx); err != nil {
			return fmt.Errorf("pubsub ping failed: %w", err)
		}
	}

	wait := p.pollInterval
	for {
		stats, err := p.drainOnce(ctx)
		switch {
		case err != nil:
			p.logg.Error(ctx, "outbox.batch_failed", err)
			wait = min(max(wait, p.pollInterval)*2, maxIdleBackoff)
		case stats.total() > 0:
			p.logg.Info(p.logg.WithFields(ctx, map[string]any{
				"published":     stats.published,
				"retried":       stats.retried,
				"dead_lettered": stats.deadLettered,
			}), "outbox.batch_done")
			wait = 0
		default:
			wait = p.pollInterval
		}

		if err := pause(ctx, wait); err != nil {
			p.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}
	}
}

// drainOnce handles one locked batch. A broker failure on one row never
// blocks the rows behind it.
func (p *Publisher) drainOnce(ctx context.Context) (batchStats, error) {
	var stats batchStats
	err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
		stats = batchStats{}
		events, err := p.queue.LockPending(tx, p.batchSize, p.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		for _, event := range events {
			result, err := p.handle(ctx, tx, event)
			if err != nil {
				return err
			}
			p.metrics.ObserveOutcome(string(event.EventType), result.String())
			switch result {
			case outcomePublished:
				stats.published++
			case outcomeRetry:
				stats.retried++
			case outcomeDeadLettered:
				stats.deadLettered++
			}
		}
		return nil
	})
	return stats, err
}

func (p *Publisher) handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	logCtx := p.logg.WithFields(ctx, map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
	})

	resolved, err := p.registry.Resolve(event)
	if err != nil {
		return outcomeDeadLettered, p.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonNonRetryable, err)
	}
	topic := resolved.Topic
	logCtx = p.logg.WithFields(logCtx, map[string]any{"topic": topic, "event_id": resolved.Envelope.EventID})

	sendCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	err = p.sender.Send(sendCtx, topic, message(event, resolved))
	cancel()
	if err == nil {
		if err := p.queue.MarkPublished(tx, event.ID); err != nil {
			return outcomePublished, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		p.metrics.ObserveLag(string(event.EventType), time.Since(event.CreatedAt))
		p.logg.Debug(logCtx, "outbox.event_published")
		return outcomePublished, nil
	}

	if registry.IsPermanent(err) {
		return outcomeDeadLettered, p.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonNonRetryable, err)
	}
	if event.AttemptCount+1 >= p.maxAttempts {
		return outcomeDeadLettered, p.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err))
	}

	p.logg.Warn(p.logg.WithField(logCtx, "error", err.Error()), "outbox.publish_retry")
	if err := p.queue.MarkRetry(tx, event.ID, err); err != nil {
		return outcomeRetry, fmt.Errorf("mark failed %s: %w", event.ID, err)
	}
	return outcomeRetry, nil
}

func (p *Publisher) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox.dead_lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := p.dlq.Insert(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := p.queue.MarkTerminal(tx, event.ID, cause, p.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func message(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"event_version":  fmt.Sprint(resolved.Envelope.Version),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d > 0 {
		d += rand.N(maxJitter)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
