package leads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/internal/categories"
	"github.com/askservice/leadmarket-backend/internal/ledger"
	"github.com/askservice/leadmarket-backend/pkg/auth"
	"github.com/askservice/leadmarket-backend/pkg/db"
	"github.com/askservice/leadmarket-backend/pkg/db/dbtest"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	cats, err := categories.NewService(categories.NewRepository(conn), 3)
	require.NoError(t, err)
	credits, err := ledger.NewService(db.NewFromGorm(conn), ledger.NewRepository(conn), 100)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), cats, credits)
	require.NoError(t, err)
	return svc, conn
}

func vendorIn(categoryID *uuid.UUID) auth.Identity {
	return auth.Identity{
		UserID:            uuid.New(),
		Role:              enums.RoleVendor,
		KYCStatus:         enums.KYCStatusVerified,
		ServiceCategoryID: categoryID,
	}
}

func seedQuote(t *testing.T, conn *gorm.DB, vendorID, requestID uuid.UUID, status enums.QuoteStatus) {
	t.Helper()
	require.NoError(t, conn.Create(&models.VendorQuote{
		VendorID:          vendorID,
		ServiceRequestID:  requestID,
		Price:             decimal.NewFromInt(100),
		Currency:          enums.CurrencyEUR,
		Description:       "full service",
		ProposedStartDate: time.Now().UTC().AddDate(0, 0, 3),
		ValidDays:         7,
		Status:            status,
	}).Error)
}

func TestListAvailableScopesToVendorCategory(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	mine := dbtest.SeedCategory(t, conn, 5)
	other := dbtest.SeedCategory(t, conn, 5)
	customer := uuid.New()

	lead := dbtest.SeedRequest(t, conn, mine.ID, customer)
	dbtest.SeedRequest(t, conn, other.ID, customer)
	dbtest.SeedRequest(t, conn, mine.ID, customer, dbtest.WithStatus(enums.ServiceRequestStatusClosed))

	out, err := svc.ListAvailable(ctx, vendorIn(&mine.ID), ListQuery{})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, lead.ID, out.Items[0].ID)
	assert.Equal(t, 5, out.Items[0].UnlockCost)
	assert.Equal(t, int64(1), out.Meta.Total)
}

func TestListAvailableFailsClosedWithoutCategory(t *testing.T) {
	svc, conn := newTestService(t)
	category := dbtest.SeedCategory(t, conn, 5)
	dbtest.SeedRequest(t, conn, category.ID, uuid.New())

	out, err := svc.ListAvailable(context.Background(), vendorIn(nil), ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, int64(0), out.Meta.Total)
}

func TestListAvailableMasksUntilUnlocked(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	category := dbtest.SeedCategory(t, conn, 0)
	vendor := vendorIn(&category.ID)

	locked := dbtest.SeedRequest(t, conn, category.ID, uuid.New())
	open := dbtest.SeedRequest(t, conn, category.ID, uuid.New())
	dbtest.SeedUnlock(t, conn, vendor.UserID, open.ID, 3)

	out, err := svc.ListAvailable(ctx, vendor, ListQuery{})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)

	byID := map[uuid.UUID]LeadDTO{}
	for _, item := range out.Items {
		byID[item.ID] = item
		assert.Equal(t, 3, item.UnlockCost, "unpriced category falls back to default")
	}

	masked := byID[locked.ID]
	assert.False(t, masked.Unlocked)
	assert.Equal(t, "M***", masked.Contact.FirstName)
	assert.Equal(t, "+35 *******", masked.Contact.Phone)
	assert.Equal(t, "ma*******@example.com", masked.Contact.Email)
	assert.NotEqual(t, locked.Contact, masked.Contact)
	assert.Empty(t, masked.AddressLine1)
	assert.Empty(t, masked.Pincode)
	assert.Equal(t, "Lisbon", masked.City)
	assert.Nil(t, masked.CreditsSpent)

	full := byID[open.ID]
	assert.True(t, full.Unlocked)
	assert.Equal(t, open.Contact, full.Contact)
	assert.Equal(t, open.AddressLine1, full.AddressLine1)
	require.NotNil(t, full.CreditsSpent)
	assert.Equal(t, 3, *full.CreditsSpent)

	var stored models.ServiceRequest
	require.NoError(t, conn.First(&stored, "id = ?", locked.ID).Error)
	assert.Equal(t, locked.Contact, stored.Contact)
}

func TestListAvailableCountsOnlySentQuotes(t *testing.T) {
	svc, conn := newTestService(t)
	category := dbtest.SeedCategory(t, conn, 4)
	lead := dbtest.SeedRequest(t, conn, category.ID, uuid.New())

	seedQuote(t, conn, uuid.New(), lead.ID, enums.QuoteStatusSent)
	seedQuote(t, conn, uuid.New(), lead.ID, enums.QuoteStatusSent)
	seedQuote(t, conn, uuid.New(), lead.ID, enums.QuoteStatusIgnored)
	seedQuote(t, conn, uuid.New(), lead.ID, enums.QuoteStatusAccepted)

	out, err := svc.ListAvailable(context.Background(), vendorIn(&category.ID), ListQuery{})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(2), out.Items[0].QuotesCount)
}

func TestListAvailableFiltersByLocation(t *testing.T) {
	svc, conn := newTestService(t)
	category := dbtest.SeedCategory(t, conn, 4)
	customer := uuid.New()
	porto := dbtest.SeedRequest(t, conn, category.ID, customer, dbtest.WithCity("Porto", "Porto", "Portugal"))
	dbtest.SeedRequest(t, conn, category.ID, customer)
	dbtest.SeedRequest(t, conn, category.ID, customer, dbtest.WithCity("Madrid", "Madrid", "Spain"))

	vendor := vendorIn(&category.ID)
	out, err := svc.ListAvailable(context.Background(), vendor, ListQuery{City: "porto"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, porto.ID, out.Items[0].ID)

	out, err = svc.ListAvailable(context.Background(), vendor, ListQuery{Country: "PORTUGAL", Sort: SortCostDesc})
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)

	_, err = svc.ListAvailable(context.Background(), vendor, ListQuery{Sort: "cheapest"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListAvailablePages(t *testing.T) {
	svc, conn := newTestService(t)
	category := dbtest.SeedCategory(t, conn, 4)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		dbtest.SeedRequest(t, conn, category.ID, uuid.New(), dbtest.WithCreatedAt(now.Add(-time.Duration(i)*time.Hour)))
	}

	out, err := svc.ListAvailable(context.Background(), vendorIn(&category.ID), ListQuery{Page: pagination.Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, int64(5), out.Meta.Total)
	assert.Equal(t, 3, out.Meta.TotalPages)
}

func TestListAvailableCostSortPagesThroughWholeFeed(t *testing.T) {
	svc, conn := newTestService(t)
	now := time.Now().UTC()

	for _, cost := range []int{4, 0} {
		category := dbtest.SeedCategory(t, conn, cost)
		var newest []uuid.UUID
		for i := 0; i < 5; i++ {
			r := dbtest.SeedRequest(t, conn, category.ID, uuid.New(), dbtest.WithCreatedAt(now.Add(-time.Duration(i)*time.Hour)))
			newest = append(newest, r.ID)
		}

		for _, order := range []string{SortCostAsc, SortCostDesc} {
			var seen []uuid.UUID
			for page := 1; page <= 3; page++ {
				out, err := svc.ListAvailable(context.Background(), vendorIn(&category.ID), ListQuery{
					Sort: order,
					Page: pagination.Page{Page: page, Limit: 2},
				})
				require.NoError(t, err)
				for _, item := range out.Items {
					assert.Equal(t, category.UnlockCost(3), item.UnlockCost)
					seen = append(seen, item.ID)
				}
			}
			assert.Equal(t, newest, seen, "cost %d order %s", cost, order)
		}
	}
}

func TestGetLeadScoping(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	mine := dbtest.SeedCategory(t, conn, 5)
	other := dbtest.SeedCategory(t, conn, 5)
	vendor := vendorIn(&mine.ID)

	lead := dbtest.SeedRequest(t, conn, mine.ID, uuid.New())
	got, err := svc.Get(ctx, vendor, lead.ID)
	require.NoError(t, err)
	assert.False(t, got.Unlocked)
	assert.Equal(t, "S***", got.Contact.LastName)

	foreign := dbtest.SeedRequest(t, conn, other.ID, uuid.New())
	_, err = svc.Get(ctx, vendor, foreign.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeLeadNotFound))

	_, err = svc.Get(ctx, vendor, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeLeadNotFound))

	closed := dbtest.SeedRequest(t, conn, mine.ID, uuid.New(), dbtest.WithStatus(enums.ServiceRequestStatusClosed))
	_, err = svc.Get(ctx, vendor, closed.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeLeadNotFound))

	dbtest.SeedUnlock(t, conn, vendor.UserID, closed.ID, 5)
	got, err = svc.Get(ctx, vendor, closed.ID)
	require.NoError(t, err)
	assert.True(t, got.Unlocked)
	assert.Equal(t, closed.Contact, got.Contact)
	assert.Equal(t, enums.ServiceRequestStatusClosed, got.Status)
}

func TestListUnlockedCarriesSpentSnapshot(t *testing.T) {
	svc, conn := newTestService(t)
	category := dbtest.SeedCategory(t, conn, 9)
	vendor := vendorIn(&category.ID)

	lead := dbtest.SeedRequest(t, conn, category.ID, uuid.New())
	dbtest.SeedRequest(t, conn, category.ID, uuid.New())
	dbtest.SeedUnlock(t, conn, vendor.UserID, lead.ID, 4)

	out, err := svc.ListUnlocked(context.Background(), vendor, pagination.Page{})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, lead.ID, out.Items[0].ID)
	require.NotNil(t, out.Items[0].CreditsSpent)
	assert.Equal(t, 4, *out.Items[0].CreditsSpent)
	assert.Equal(t, 9, out.Items[0].UnlockCost)
	assert.Equal(t, int64(1), out.Meta.Total)
}

func TestDashboard(t *testing.T) {
	svc, conn := newTestService(t)
	category := dbtest.SeedCategory(t, conn, 3)
	vendor := vendorIn(&category.ID)
	dbtest.SeedWallet(t, conn, vendor.UserID, 12)

	lead := dbtest.SeedRequest(t, conn, category.ID, uuid.New())
	dbtest.SeedRequest(t, conn, category.ID, uuid.New())
	dbtest.SeedUnlock(t, conn, vendor.UserID, lead.ID, 3)
	seedQuote(t, conn, vendor.UserID, lead.ID, enums.QuoteStatusSent)

	out, err := svc.Dashboard(context.Background(), vendor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.AvailableLeads)
	assert.Equal(t, int64(1), out.PurchasedLeads)
	assert.Equal(t, int64(1), out.QuotesSent)
	assert.Equal(t, 12, out.CreditBalance)
	assert.True(t, out.CanPurchaseLeads)

	pending := vendorIn(nil)
	pending.KYCStatus = enums.KYCStatusPendingVerification
	out, err = svc.Dashboard(context.Background(), pending)
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.AvailableLeads)
	assert.False(t, out.CanPurchaseLeads)
	assert.Equal(t, enums.KYCStatusPendingVerification, out.KYCStatus)
}
