package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askservice/leadmarket-backend/pkg/db"
	"github.com/askservice/leadmarket-backend/pkg/db/dbtest"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(db.NewFromGorm(conn), repo, 100)
	require.NoError(t, err)
	return svc, repo
}

func topUp(t *testing.T, svc Service, vendorID uuid.UUID, amount int) {
	t.Helper()
	_, err := svc.Credit(context.Background(), nil, CreditInput{VendorID: vendorID, Amount: amount, Description: "seed"})
	require.NoError(t, err)
}

func TestAdjustDebitRecordsBalanceAfter(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	vendorID := uuid.New()
	topUp(t, svc, vendorID, 5)

	ref := uuid.New()
	res, err := svc.Adjust(ctx, AdjustInput{
		VendorID:      vendorID,
		Amount:        -3,
		ReferenceType: enums.TransactionReferenceLeadUnlock,
		ReferenceID:   &ref,
		Description:   "lead unlock",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Balance)
	assert.Equal(t, -3, res.Transaction.Amount)
	assert.Equal(t, 2, res.Transaction.BalanceAfter)
	assert.Equal(t, enums.TransactionTypeDebit, res.Transaction.Type)
	assert.Equal(t, enums.TransactionStatusCompleted, res.Transaction.Status)

	balance, err := svc.Balance(ctx, vendorID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	sum, err := repo.SumAmounts(ctx, vendorID)
	require.NoError(t, err)
	assert.Equal(t, balance, sum)
}

func TestAdjustRejectsOverdraftWithShortfall(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	vendorID := uuid.New()
	topUp(t, svc, vendorID, 2)

	_, err := svc.Adjust(ctx, AdjustInput{VendorID: vendorID, Amount: -5, ReferenceType: enums.TransactionReferenceLeadUnlock})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientCredits, typed.Code())
	assert.Equal(t, InsufficientCreditsDetails{Required: 5, Balance: 2, Shortfall: 3}, typed.Details())

	balance, err := svc.Balance(ctx, vendorID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	sum, err := repo.SumAmounts(ctx, vendorID)
	require.NoError(t, err)
	assert.Equal(t, 2, sum)
}

func TestAdjustDebitOnMissingWalletFails(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Adjust(context.Background(), AdjustInput{VendorID: uuid.New(), Amount: -1, ReferenceType: enums.TransactionReferenceLeadUnlock})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientCredits))
}

func TestAdjustValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]AdjustInput{
		"missing vendor":    {Amount: 1, ReferenceType: enums.TransactionReferenceCreditPurchase},
		"zero amount":       {VendorID: uuid.New(), ReferenceType: enums.TransactionReferenceCreditPurchase},
		"missing reference": {VendorID: uuid.New(), Amount: 1},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Adjust(ctx, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}

	_, err := svc.Credit(ctx, nil, CreditInput{VendorID: uuid.New(), Amount: -2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	vendorID := uuid.New()
	topUp(t, svc, vendorID, 5)

	const workers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortfall int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Adjust(ctx, AdjustInput{VendorID: vendorID, Amount: -3, ReferenceType: enums.TransactionReferenceLeadUnlock})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientCredits) {
				shortfall++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, shortfall)

	balance, err := svc.Balance(ctx, vendorID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
	sum, err := repo.SumAmounts(ctx, vendorID)
	require.NoError(t, err)
	assert.Equal(t, balance, sum)
}

func TestLedgerConservationUnderMixedLoad(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	vendorID := uuid.New()
	topUp(t, svc, vendorID, 10)

	amounts := []int{-4, 7, -3, -9, 2, -1, -6, 5, -2, -8, 3, -5}
	var wg sync.WaitGroup
	for _, amount := range amounts {
		wg.Add(1)
		go func(amount int) {
			defer wg.Done()
			_, _ = svc.Adjust(ctx, AdjustInput{VendorID: vendorID, Amount: amount, ReferenceType: enums.TransactionReferenceLeadUnlock})
		}(amount)
	}
	wg.Wait()

	balance, err := svc.Balance(ctx, vendorID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, balance, 0)

	sum, err := repo.SumAmounts(ctx, vendorID)
	require.NoError(t, err)
	assert.Equal(t, balance, sum)

	page, err := svc.ListTransactions(ctx, vendorID, TransactionQuery{Page: pagination.Page{Page: 1, Limit: 100}})
	require.NoError(t, err)
	for _, txn := range page.Transactions {
		assert.GreaterOrEqual(t, txn.BalanceAfter, 0)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	vendorID := uuid.New()
	topUp(t, svc, vendorID, 20)
	for i := 0; i < 3; i++ {
		_, err := svc.Adjust(ctx, AdjustInput{VendorID: vendorID, Amount: -2, ReferenceType: enums.TransactionReferenceLeadUnlock})
		require.NoError(t, err)
	}

	old := time.Now().UTC().AddDate(0, -2, 0)
	require.NoError(t, repo.InsertTransaction(ctx, &models.CreditTransaction{
		VendorID:          vendorID,
		TransactionNumber: "TXN-OLD",
		Type:              enums.TransactionTypeDebit,
		Amount:            0,
		BalanceAfter:      14,
		Status:            enums.TransactionStatusCompleted,
		ReferenceType:     enums.TransactionReferenceLeadUnlock,
		Description:       "historic",
		CreatedAt:         old,
	}))

	debits, err := svc.ListTransactions(ctx, vendorID, TransactionQuery{Type: "debit", Page: pagination.Page{Page: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, debits.Transactions, 2)
	assert.Equal(t, int64(4), debits.Meta.Total)
	assert.Equal(t, 2, debits.Meta.TotalPages)

	deductions, err := svc.ListTransactions(ctx, vendorID, TransactionQuery{Type: "Deduction"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), deductions.Meta.Total)

	purchases, err := svc.ListTransactions(ctx, vendorID, TransactionQuery{Type: "purchase"})
	require.NoError(t, err)
	require.Equal(t, int64(1), purchases.Meta.Total)
	assert.Equal(t, enums.TransactionTypeCredit, purchases.Transactions[0].Type)

	recent, err := svc.ListTransactions(ctx, vendorID, TransactionQuery{Period: "last_30_days"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), recent.Meta.Total)

	_, err = svc.ListTransactions(ctx, vendorID, TransactionQuery{Type: "refund"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	from := time.Now().UTC()
	to := from.Add(-time.Hour)
	_, err = svc.ListTransactions(ctx, vendorID, TransactionQuery{From: &from, To: &to})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	capped, err := svc.ListTransactions(ctx, vendorID, TransactionQuery{Page: pagination.Page{Page: 1, Limit: 500}})
	require.NoError(t, err)
	assert.Equal(t, 100, capped.Meta.Limit)
}

func TestTransactionNumberFormat(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-0000deadbeef")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := TransactionNumber(id, at)
	assert.Regexp(t, `^TXN-2026-[0-9A-Z]+-DEADBEEF$`, got)
	assert.NotEqual(t, got, TransactionNumber(uuid.New(), at))
}
