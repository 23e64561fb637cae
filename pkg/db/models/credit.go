package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/pkg/enums"
)

// CreditWallet holds a vendor's prepaid lead credits. Balance never drops
// below zero.
type CreditWallet struct {
	VendorID  uuid.UUID `gorm:"column:vendor_id;type:uuid;primaryKey"`
	Balance   int       `gorm:"column:balance;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CreditTransaction is an append-only ledger entry. Amount is signed.
type CreditTransaction struct {
	ID                uuid.UUID                      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID          uuid.UUID                      `gorm:"column:vendor_id;type:uuid;not null"`
	TransactionNumber string                         `gorm:"column:transaction_number;not null"`
	Type              enums.TransactionType          `gorm:"column:type;not null"`
	Amount            int                            `gorm:"column:amount;not null"`
	BalanceAfter      int                            `gorm:"column:balance_after;not null"`
	Status            enums.TransactionStatus        `gorm:"column:status;not null;default:'completed'"`
	ReferenceType     enums.TransactionReferenceType `gorm:"column:reference_type;not null"`
	ReferenceID       *uuid.UUID                     `gorm:"column:reference_id;type:uuid"`
	Description       string                         `gorm:"column:description;not null"`
	CreatedAt         time.Time                      `gorm:"column:created_at;autoCreateTime"`
}

func (t *CreditTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key          string          `gorm:"column:key;not null;uniqueIndex"`
	Name         string          `gorm:"column:name;not null"`
	Credits      int             `gorm:"column:credits;not null"`
	BonusCredits int             `gorm:"column:bonus_credits;not null;default:0"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Currency     enums.Currency  `gorm:"column:currency;not null;default:'EUR'"`
	MostPopular  bool            `gorm:"column:most_popular;not null;default:false"`
	Active       bool            `gorm:"column:active;not null;default:true"`
	SortOrder    int             `gorm:"column:sort_order;not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *CreditPackage) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// TotalCredits is credits plus bonus.
func (p CreditPackage) TotalCredits() int {
	return p.Credits + p.BonusCredits
}
