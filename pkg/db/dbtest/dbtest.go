// Package dbtest opens isolated in-memory SQLite databases carrying the
// service schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE service_categories (
  id TEXT PRIMARY KEY,
  parent_id TEXT,
  title TEXT NOT NULL,
  description TEXT,
  credit_cost INTEGER,
  status TEXT NOT NULL DEFAULT 'ACTIVE',
  deleted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE service_requests (
  id TEXT PRIMARY KEY,
  reference_no TEXT NOT NULL UNIQUE,
  customer_id TEXT,
  category_id TEXT NOT NULL,
  child_category_id TEXT,
  manual_child_category TEXT,
  frequency TEXT NOT NULL,
  selected_options TEXT,
  preferred_start_date DATETIME,
  preferred_time_of_day TEXT,
  note TEXT,
  address_line1 TEXT NOT NULL,
  address_line2 TEXT,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  country TEXT NOT NULL,
  pincode TEXT NOT NULL,
  contact TEXT NOT NULL,
  status TEXT NOT NULL,
  close_reason TEXT,
  close_comment TEXT,
  closed_at DATETIME,
  verified_at DATETIME,
  expired_at DATETIME,
  deleted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE credit_wallets (
  vendor_id TEXT PRIMARY KEY,
  balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE credit_transactions (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  transaction_number TEXT NOT NULL,
  type TEXT NOT NULL,
  amount INTEGER NOT NULL,
  balance_after INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'completed',
  reference_type TEXT NOT NULL,
  reference_id TEXT,
  description TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (vendor_id, transaction_number)
);`,
	`CREATE TABLE credit_packages (
  id TEXT PRIMARY KEY,
  "key" TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  credits INTEGER NOT NULL,
  bonus_credits INTEGER NOT NULL DEFAULT 0,
  price NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'EUR',
  most_popular INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE lead_unlocks (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  service_request_id TEXT NOT NULL,
  credits_spent INTEGER NOT NULL,
  transaction_id TEXT NOT NULL,
  created_at DATETIME,
  CONSTRAINT ux_lead_unlocks_vendor_request UNIQUE (vendor_id, service_request_id)
);`,
	`CREATE TABLE vendor_quotes (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  service_request_id TEXT NOT NULL,
  price NUMERIC NOT NULL CHECK (price >= 0),
  currency TEXT NOT NULL,
  description TEXT NOT NULL,
  proposed_start_date DATETIME NOT NULL,
  valid_days INTEGER NOT NULL,
  attachment_url TEXT,
  status TEXT NOT NULL,
  decided_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_vendor_quotes_active ON vendor_quotes (vendor_id, service_request_id) WHERE status = 'SENT';`,
	`CREATE TABLE vendor_reviews (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  service_request_id TEXT,
  rating INTEGER NOT NULL,
  comment TEXT,
  status TEXT NOT NULL,
  deleted_at DATETIME,
  created_at DATETIME
);`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  event_id TEXT UNIQUE,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns a fresh database with the full schema applied. The pool is
// capped at one connection so concurrent callers serialise on it the way row
// locks serialise them in Postgres.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
