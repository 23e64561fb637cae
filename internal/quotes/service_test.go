package quotes

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/askservice/leadmarket-backend/internal/notifications"
	"github.com/askservice/leadmarket-backend/internal/reviews"
	"github.com/askservice/leadmarket-backend/pkg/auth"
	"github.com/askservice/leadmarket-backend/pkg/db"
	"github.com/askservice/leadmarket-backend/pkg/db/dbtest"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Message
}

func (r *recordingNotifier) Send(_ context.Context, msg notifications.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
}

func (r *recordingNotifier) types() []enums.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]enums.NotificationType, 0, len(r.sent))
	for _, msg := range r.sent {
		out = append(out, msg.Type)
	}
	return out
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	notify   *recordingNotifier
	category models.ServiceCategory
	customer uuid.UUID
	lead     models.ServiceRequest
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	notify := &recordingNotifier{}
	svc, err := NewService(db.NewFromGorm(conn), NewRepository(conn), reviews.NewRepository(conn), notify, nil,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Config{MaxQuotesPerRequest: 5, DefaultCurrency: enums.CurrencyEUR, DefaultValidDays: 7})
	require.NoError(t, err)

	category := dbtest.SeedCategory(t, conn, 3)
	customer := uuid.New()
	lead := dbtest.SeedRequest(t, conn, category.ID, customer)
	return fixture{svc: svc, conn: conn, notify: notify, category: category, customer: customer, lead: lead}
}

// unlockedVendor returns a vendor that has already paid for f.lead.
func (f fixture) unlockedVendor(t *testing.T) auth.Identity {
	t.Helper()
	categoryID := f.category.ID
	vendor := auth.Identity{
		UserID:            uuid.New(),
		Role:              enums.RoleVendor,
		KYCStatus:         enums.KYCStatusVerified,
		ServiceCategoryID: &categoryID,
	}
	dbtest.SeedUnlock(t, f.conn, vendor.UserID, f.lead.ID, 3)
	return vendor
}

func tomorrow() string {
	return time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
}

func input(price string) SubmitInput {
	return SubmitInput{Price: price, Description: "Deep clean, two staff, four hours", ProposedStartDate: tomorrow()}
}

func (f fixture) sentCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.VendorQuote{}).
		Where("service_request_id = ? AND status = ?", f.lead.ID, enums.QuoteStatusSent).
		Count(&n).Error)
	return n
}

func TestSubmitCreatesSentQuoteWithDefaults(t *testing.T) {
	f := newFixture(t)
	vendor := f.unlockedVendor(t)

	quote, err := f.svc.Submit(context.Background(), vendor, f.lead.ID, input("120.5"))
	require.NoError(t, err)
	assert.Equal(t, enums.QuoteStatusSent, quote.Status)
	assert.Equal(t, enums.CurrencyEUR, quote.Currency)
	assert.Equal(t, 7, quote.ValidDays)
	assert.Equal(t, "120.50", quote.Price.StringFixed(2))
	assert.Equal(t, tomorrow(), quote.ProposedStartDate)
	assert.Nil(t, quote.Aggregate)

	require.Len(t, f.notify.sent, 1)
	assert.Equal(t, enums.NotificationTypeQuoteReceived, f.notify.sent[0].Type)
	assert.Equal(t, f.customer, f.notify.sent[0].RecipientID)
}

func TestSubmitRequiresUnlock(t *testing.T) {
	f := newFixture(t)
	categoryID := f.category.ID
	stranger := auth.Identity{UserID: uuid.New(), Role: enums.RoleVendor, KYCStatus: enums.KYCStatusVerified, ServiceCategoryID: &categoryID}

	_, err := f.svc.Submit(context.Background(), stranger, f.lead.ID, input("80"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnlockRequired))

	_, err = f.svc.Submit(context.Background(), stranger, uuid.New(), input("80"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnlockRequired))

	assert.Equal(t, int64(0), f.sentCount(t))
	assert.Empty(t, f.notify.sent)
}

func TestSubmitRejectsClosedLead(t *testing.T) {
	f := newFixture(t)
	vendor := f.unlockedVendor(t)
	require.NoError(t, f.conn.Model(&models.ServiceRequest{}).Where("id = ?", f.lead.ID).
		Update("status", enums.ServiceRequestStatusExpired).Error)

	_, err := f.svc.Submit(context.Background(), vendor, f.lead.ID, input("80"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeLeadClosed))
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	vendor := f.unlockedVendor(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, vendor, f.lead.ID, input("80"))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, vendor, f.lead.ID, input("70"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateQuote))
	assert.Equal(t, int64(1), f.sentCount(t))
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	vendor := f.unlockedVendor(t)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	zero := 0

	cases := map[string]SubmitInput{
		"negative price":  input("-1"),
		"non-number":      input("cheap"),
		"price too large": input("100000000000"),
		"rounds past cap": input("9999999999.999"),
		"past start":      {Price: "10", Description: "x", ProposedStartDate: yesterday},
		"bad date":        {Price: "10", Description: "x", ProposedStartDate: "next week"},
		"no description":  {Price: "10", ProposedStartDate: tomorrow()},
		"bad currency":    {Price: "10", Description: "x", ProposedStartDate: tomorrow(), Currency: "BTC"},
		"zero valid days": {Price: "10", Description: "x", ProposedStartDate: tomorrow(), ValidDays: &zero},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), vendor, f.lead.ID, in)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	largest := SubmitInput{Price: "9999999999.99", Description: "x", ProposedStartDate: tomorrow()}
	other := f.unlockedVendor(t)
	_, err := f.svc.Submit(context.Background(), other, f.lead.ID, largest)
	require.NoError(t, err)

	today := SubmitInput{Price: "0", Description: "free estimate", ProposedStartDate: time.Now().UTC().Format("2006-01-02")}
	_, err = f.svc.Submit(context.Background(), vendor, f.lead.ID, today)
	assert.NoError(t, err)
}

func TestSixthVendorHitsCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := f.svc.Submit(ctx, f.unlockedVendor(t), f.lead.ID, input("100"))
		require.NoError(t, err)
	}

	_, err := f.svc.Submit(ctx, f.unlockedVendor(t), f.lead.ID, input("90"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeQuoteCapReached, typed.Code())
	assert.Equal(t, map[string]any{"maxQuotes": 5, "currentCount": int64(5)}, typed.Details())
	assert.Equal(t, int64(5), f.sentCount(t))
}

func TestConcurrentSubmissionsRespectCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendors := make([]auth.Identity, 8)
	for i := range vendors {
		vendors[i] = f.unlockedVendor(t)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		ok     int
		capped int
	)
	for _, vendor := range vendors {
		wg.Add(1)
		go func(v auth.Identity) {
			defer wg.Done()
			_, err := f.svc.Submit(ctx, v, f.lead.ID, input("100"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case pkgerrors.IsCode(err, pkgerrors.CodeQuoteCapReached):
				capped++
			}
		}(vendor)
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 3, capped)
	assert.Equal(t, int64(5), f.sentCount(t))
}

func TestIgnoredQuoteFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var first *QuoteDTO
	for i := 0; i < 5; i++ {
		q, err := f.svc.Submit(ctx, f.unlockedVendor(t), f.lead.ID, input("100"))
		require.NoError(t, err)
		if first == nil {
			first = q
		}
	}
	_, err := f.svc.Ignore(ctx, f.customer, f.lead.ID, first.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.unlockedVendor(t), f.lead.ID, input("95"))
	assert.NoError(t, err)
}

func TestAcceptIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := f.unlockedVendor(t)
	quote, err := f.svc.Submit(ctx, vendor, f.lead.ID, input("100"))
	require.NoError(t, err)

	accepted, err := f.svc.Accept(ctx, f.customer, f.lead.ID, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.QuoteStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.DecidedAt)

	_, err = f.svc.Accept(ctx, f.customer, f.lead.ID, quote.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeQuoteNotActionable, typed.Code())
	assert.Equal(t, map[string]any{"status": enums.QuoteStatusAccepted}, typed.Details())

	_, err = f.svc.Ignore(ctx, f.customer, f.lead.ID, quote.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeQuoteNotActionable))

	assert.Equal(t, []enums.NotificationType{enums.NotificationTypeQuoteReceived, enums.NotificationTypeQuoteAccepted}, f.notify.types())
	assert.Equal(t, vendor.UserID, f.notify.sent[1].RecipientID)
}

func TestDecisionRequiresOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quote, err := f.svc.Submit(ctx, f.unlockedVendor(t), f.lead.ID, input("100"))
	require.NoError(t, err)

	_, err = f.svc.Ignore(ctx, uuid.New(), f.lead.ID, quote.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Accept(ctx, f.customer, f.lead.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var stored models.VendorQuote
	require.NoError(t, f.conn.First(&stored, "id = ?", quote.ID).Error)
	assert.Equal(t, enums.QuoteStatusSent, stored.Status)
}

func TestListForCustomerSortsAndCarriesReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cheap := f.unlockedVendor(t)
	pricey := f.unlockedVendor(t)
	middle := f.unlockedVendor(t)

	for _, tc := range []struct {
		vendor auth.Identity
		price  string
	}{{cheap, "50"}, {pricey, "250"}, {middle, "120"}} {
		_, err := f.svc.Submit(ctx, tc.vendor, f.lead.ID, input(tc.price))
		require.NoError(t, err)
	}
	for _, rating := range []int{4, 5} {
		require.NoError(t, f.conn.Create(&models.VendorReview{
			ID:         uuid.New(),
			VendorID:   pricey.UserID,
			CustomerID: uuid.New(),
			Rating:     rating,
			Status:     reviews.StatusActive,
		}).Error)
	}

	asc, err := f.svc.ListForCustomer(ctx, f.customer, f.lead.ID, "price_asc")
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, []uuid.UUID{cheap.UserID, middle.UserID, pricey.UserID},
		[]uuid.UUID{asc[0].VendorID, asc[1].VendorID, asc[2].VendorID})

	desc, err := f.svc.ListForCustomer(ctx, f.customer, f.lead.ID, "price_desc")
	require.NoError(t, err)
	assert.Equal(t, pricey.UserID, desc[0].VendorID)
	require.NotNil(t, desc[0].Aggregate)
	assert.Equal(t, 4.5, desc[0].Rating)
	assert.Equal(t, int64(2), desc[0].ReviewCount)
	require.NotNil(t, desc[2].Aggregate)
	assert.Equal(t, int64(0), desc[2].ReviewCount)

	_, err = f.svc.ListForCustomer(ctx, f.customer, f.lead.ID, "rating")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.ListForCustomer(ctx, uuid.New(), f.lead.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetForCustomerAndListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := f.unlockedVendor(t)
	quote, err := f.svc.Submit(ctx, vendor, f.lead.ID, input("75"))
	require.NoError(t, err)

	got, err := f.svc.GetForCustomer(ctx, f.customer, f.lead.ID, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.ID, got.ID)
	assert.NotNil(t, got.Aggregate)

	mine, err := f.svc.ListMine(ctx, vendor, pagination.Page{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, quote.ID, mine.Items[0].ID)
	assert.Equal(t, int64(1), mine.Meta.Total)
}
