package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
)

const maxStoredErrorLen = 1024

var errTxRequired = errors.New("transaction required")

// Store persists outbox_events rows. Writes take the caller's transaction so
// an event commits or rolls back with the change that produced it.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(tx *gorm.DB, row *models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Create(row).Error
}

// LockPending selects up to limit unpublished rows below maxAttempts, oldest
// first, with FOR UPDATE SKIP LOCKED.
func (s *Store) LockPending(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errTxRequired
	}
	var rows []models.OutboxEvent
	q := tx.Where("published_at IS NULL AND attempt_count < ?", maxAttempts).
		Order("created_at ASC, id ASC").
		Limit(limit)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	return rows, q.Find(&rows).Error
}

func (s *Store) MarkPublished(tx *gorm.DB, id uuid.UUID) error {
	return s.update(tx, id, map[string]any{
		"published_at": time.Now().UTC(),
		"last_error":   nil,
	})
}

// MarkRetry records a failed attempt; the row stays eligible.
func (s *Store) MarkRetry(tx *gorm.DB, id uuid.UUID, cause error) error {
	return s.update(tx, id, map[string]any{
		"last_error":    clip(cause),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// MarkTerminal pins attempt_count at ceiling so LockPending skips the row.
func (s *Store) MarkTerminal(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error {
	return s.update(tx, id, map[string]any{
		"last_error":    clip(cause),
		"attempt_count": ceiling,
	})
}

func (s *Store) update(tx *gorm.DB, id uuid.UUID, values map[string]any) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(values).Error
}

// DeletePublishedBefore prunes rows published before cutoff.
func (s *Store) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

// DeadLetterStore keeps rows the publisher gave up on.
type DeadLetterStore struct {
	db *gorm.DB
}

func NewDeadLetterStore(db *gorm.DB) *DeadLetterStore {
	return &DeadLetterStore{db: db}
}

func (d *DeadLetterStore) Insert(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errTxRequired
	}
	if entry.ErrorMessage != nil {
		entry.ErrorMessage = clipString(*entry.ErrorMessage)
	}
	return tx.Create(&entry).Error
}

// Recent returns the newest dead letters first.
func (d *DeadLetterStore) Recent(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.OutboxDLQ
	err := d.db.WithContext(ctx).Order("failed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func clip(err error) *string {
	if err == nil {
		return nil
	}
	return clipString(err.Error())
}

func clipString(s string) *string {
	if len(s) > maxStoredErrorLen {
		s = s[:maxStoredErrorLen]
	}
	return &s
}
