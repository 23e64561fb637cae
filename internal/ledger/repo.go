package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

// Repository persists wallets and their append-only transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureWallet(ctx context.Context, vendorID uuid.UUID) error
	ApplyDelta(ctx context.Context, vendorID uuid.UUID, delta int) (bool, error)
	Balance(ctx context.Context, vendorID uuid.UUID) (int, error)
	InsertTransaction(ctx context.Context, txn *models.CreditTransaction) error
	ListTransactions(ctx context.Context, vendorID uuid.UUID, filter TransactionFilter) ([]models.CreditTransaction, int64, error)
	SumAmounts(ctx context.Context, vendorID uuid.UUID) (int, error)
}

// TransactionFilter narrows a vendor's transaction history.
type TransactionFilter struct {
	Type enums.TransactionType
	From *time.Time
	To   *time.Time
	Page pagination.Page
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) EnsureWallet(ctx context.Context, vendorID uuid.UUID) error {
	wallet := models.CreditWallet{VendorID: vendorID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "vendor_id"}}, DoNothing: true}).
		Create(&wallet).Error
}

// ApplyDelta adds delta to the balance only when the result stays >= 0.
// It reports false when the floor would be crossed.
func (r *repository) ApplyDelta(ctx context.Context, vendorID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CreditWallet{}).
		Where("vendor_id = ? AND balance + ? >= 0", vendorID, delta).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Balance(ctx context.Context, vendorID uuid.UUID) (int, error) {
	var wallet models.CreditWallet
	err := r.db.WithContext(ctx).
		Select("balance").
		Where("vendor_id = ?", vendorID).
		Take(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (r *repository) InsertTransaction(ctx context.Context, txn *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, vendorID uuid.UUID, filter TransactionFilter) ([]models.CreditTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).Where("vendor_id = ?", vendorID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CreditTransaction
	if err := q.Session(&gorm.Session{}).Order("created_at DESC").Order("id DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) SumAmounts(ctx context.Context, vendorID uuid.UUID) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("vendor_id = ?", vendorID).
		Scan(&sum).Error
	return sum, err
}
