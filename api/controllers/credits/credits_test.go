package credits

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askservice/leadmarket-backend/api/middleware"
	internalcredits "github.com/askservice/leadmarket-backend/internal/credits"
	"github.com/askservice/leadmarket-backend/internal/ledger"
	"github.com/askservice/leadmarket-backend/pkg/auth"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

type stubCredits struct {
	purchaseFn func(ctx context.Context, vendor auth.Identity, input internalcredits.PurchaseInput) (*internalcredits.PurchaseResult, error)
	listFn     func(ctx context.Context, vendor auth.Identity, query ledger.TransactionQuery) (*ledger.TransactionPage, error)
}

func (s *stubCredits) ListPackages(ctx context.Context) ([]internalcredits.PackageDTO, error) {
	return []internalcredits.PackageDTO{{Key: "starter", Credits: 50, TotalCredits: 50, Price: decimal.RequireFromString("19.99"), Currency: enums.CurrencyEUR}}, nil
}

func (s *stubCredits) Balance(ctx context.Context, vendor auth.Identity) (int, error) {
	return 42, nil
}

func (s *stubCredits) Purchase(ctx context.Context, vendor auth.Identity, input internalcredits.PurchaseInput) (*internalcredits.PurchaseResult, error) {
	return s.purchaseFn(ctx, vendor, input)
}

func (s *stubCredits) ListTransactions(ctx context.Context, vendor auth.Identity, query ledger.TransactionQuery) (*ledger.TransactionPage, error) {
	return s.listFn(ctx, vendor, query)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func vendorRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(middleware.WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Role: enums.RoleVendor, KYCStatus: enums.KYCStatusVerified}))
}

func TestPurchaseByKey(t *testing.T) {
	var got internalcredits.PurchaseInput
	svc := &stubCredits{purchaseFn: func(ctx context.Context, vendor auth.Identity, input internalcredits.PurchaseInput) (*internalcredits.PurchaseResult, error) {
		got = input
		return &internalcredits.PurchaseResult{Balance: 165, Package: internalcredits.PackageDTO{Key: "professional", TotalCredits: 165}}, nil
	}}

	rec := httptest.NewRecorder()
	Purchase(svc, testLogger())(rec, vendorRequest(http.MethodPost, "/", `{"packageKey":" Professional "}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "professional", got.PackageKey)
	assert.Nil(t, got.PackageID)
	var body struct {
		Data internalcredits.PurchaseResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 165, body.Data.Balance)
}

func TestPurchaseByID(t *testing.T) {
	packageID := uuid.New()
	var got internalcredits.PurchaseInput
	svc := &stubCredits{purchaseFn: func(ctx context.Context, vendor auth.Identity, input internalcredits.PurchaseInput) (*internalcredits.PurchaseResult, error) {
		got = input
		return &internalcredits.PurchaseResult{}, nil
	}}

	rec := httptest.NewRecorder()
	Purchase(svc, testLogger())(rec, vendorRequest(http.MethodPost, "/", `{"packageId":"`+packageID.String()+`"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.PackageID)
	assert.Equal(t, packageID, *got.PackageID)
}

func TestPurchaseInvalidPackage(t *testing.T) {
	svc := &stubCredits{purchaseFn: func(ctx context.Context, vendor auth.Identity, input internalcredits.PurchaseInput) (*internalcredits.PurchaseResult, error) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPackage, "invalid credit package")
	}}

	rec := httptest.NewRecorder()
	Purchase(svc, testLogger())(rec, vendorRequest(http.MethodPost, "/", `{"packageKey":"platinum"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeInvalidPackage))
}

func TestBalance(t *testing.T) {
	rec := httptest.NewRecorder()
	Balance(&stubCredits{}, testLogger())(rec, vendorRequest(http.MethodGet, "/", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":42`)
}

func TestListTransactionsFilters(t *testing.T) {
	txID := uuid.New()
	svc := &stubCredits{listFn: func(ctx context.Context, vendor auth.Identity, query ledger.TransactionQuery) (*ledger.TransactionPage, error) {
		assert.Equal(t, "debit", query.Type)
		assert.Equal(t, "last_30_days", query.Period)
		require.NotNil(t, query.From)
		assert.Equal(t, 2026, query.From.Year())
		assert.Nil(t, query.To)
		assert.Equal(t, 10, query.Page.Limit)
		return &ledger.TransactionPage{
			Transactions: []models.CreditTransaction{{ID: txID, Type: enums.TransactionTypeDebit, Amount: -3, BalanceAfter: 2}},
			Meta:         pagination.NewMeta(query.Page, 1),
		}, nil
	}}

	rec := httptest.NewRecorder()
	ListTransactions(svc, 100, testLogger())(rec, vendorRequest(http.MethodGet, "/?type=DEBIT&period=last_30_days&from=2026-09-01&limit=10", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data ledger.TransactionList `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, txID, body.Data.Items[0].ID)
	assert.Equal(t, -3, body.Data.Items[0].Amount)
	assert.EqualValues(t, 1, body.Data.Meta.Total)
}

func TestListTransactionsLimitCap(t *testing.T) {
	rec := httptest.NewRecorder()
	ListTransactions(&stubCredits{}, 100, testLogger())(rec, vendorRequest(http.MethodGet, "/?limit=101", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
