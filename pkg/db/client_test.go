package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/logger"
)

type walletRow struct {
	ID      int
	Balance int
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	pool, err := conn.DB()
	require.NoError(t, err)
	pool.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&walletRow{}))
	t.Cleanup(func() { _ = pool.Close() })
	return conn
}

func rows(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&walletRow{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOrRollsBack(t *testing.T) {
	conn := openSQLite(t)
	client := NewFromGorm(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&walletRow{Balance: 5}).Error
	}))
	assert.EqualValues(t, 1, rows(t, conn))

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&walletRow{Balance: 7}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, rows(t, conn))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	conn := openSQLite(t)
	client := NewFromGorm(conn)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&walletRow{Balance: 1}).Error)
			panic("kaboom")
		})
	})
	assert.Zero(t, rows(t, conn))
}

func TestPingAndClose(t *testing.T) {
	client := NewFromGorm(openSQLite(t))
	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Close())
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	assert.Error(t, err)
}

func TestQueryLoggerReportsSlowQueries(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	conn := openSQLite(t)
	conn.Logger = queryLogger(logg, time.Nanosecond)

	require.NoError(t, conn.Create(&walletRow{Balance: 3}).Error)
	assert.Contains(t, buf.String(), "SLOW SQL")

	assert.Equal(t, gormlogger.Discard, queryLogger(nil, time.Second))
}
