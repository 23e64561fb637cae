package servicerequests

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askservice/leadmarket-backend/api/middleware"
	"github.com/askservice/leadmarket-backend/internal/requests"
	"github.com/askservice/leadmarket-backend/pkg/auth"
	"github.com/askservice/leadmarket-backend/pkg/db/models"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

type stubService struct {
	createFn func(ctx context.Context, customerID *uuid.UUID, input requests.CreateInput) (*models.ServiceRequest, error)
	closeFn  func(ctx context.Context, customerID, requestID uuid.UUID, input requests.CloseInput) (*models.ServiceRequest, error)
	listFn   func(ctx context.Context, customerID uuid.UUID, page pagination.Page) (*requests.ListResult, error)
}

func (s *stubService) Create(ctx context.Context, customerID *uuid.UUID, input requests.CreateInput) (*models.ServiceRequest, error) {
	return s.createFn(ctx, customerID, input)
}

func (s *stubService) Verify(ctx context.Context, requestID, customerID uuid.UUID) (*models.ServiceRequest, error) {
	return &models.ServiceRequest{ID: requestID, CustomerID: &customerID, Status: enums.ServiceRequestStatusActive}, nil
}

func (s *stubService) ListMine(ctx context.Context, customerID uuid.UUID, page pagination.Page) (*requests.ListResult, error) {
	return s.listFn(ctx, customerID, page)
}

func (s *stubService) GetMine(ctx context.Context, customerID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service request not found")
}

func (s *stubService) Close(ctx context.Context, customerID, requestID uuid.UUID, input requests.CloseInput) (*models.ServiceRequest, error) {
	return s.closeFn(ctx, customerID, requestID, input)
}

func (s *stubService) Cancel(ctx context.Context, customerID, requestID uuid.UUID, input requests.CloseInput) (*models.ServiceRequest, error) {
	return s.closeFn(ctx, customerID, requestID, input)
}

func (s *stubService) ExpireBefore(ctx context.Context, cutoff time.Time, batch int) (int, error) {
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

const createPayload = `{
	"categoryId": "8a58f0d6-6cf4-4f3e-9a57-2f8a3c0e4f11",
	"frequency": "Weekly",
	"selectedOptions": ["deep clean"],
	"preferredStartDate": "2026-11-02",
	"addressLine1": "Keizersgracht 1",
	"city": "Amsterdam",
	"state": "NH",
	"country": "NL",
	"pincode": "1015CJ",
	"contact": {"firstName": "Sam", "lastName": "Jansen", "clientType": "Individual", "phone": "+31612345678", "email": "sam@example.com"}
}`

func TestCreateAnonymous(t *testing.T) {
	var gotOwner *uuid.UUID
	var gotInput requests.CreateInput
	svc := &stubService{createFn: func(ctx context.Context, customerID *uuid.UUID, input requests.CreateInput) (*models.ServiceRequest, error) {
		gotOwner = customerID
		gotInput = input
		return &models.ServiceRequest{ID: uuid.New(), ReferenceNo: "REQ-ABC123", Status: enums.ServiceRequestStatusPendingVerification}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/service-requests", strings.NewReader(createPayload))
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, gotOwner)
	assert.Equal(t, "Weekly", gotInput.Frequency)
	require.NotNil(t, gotInput.PreferredStartDate)
	assert.Equal(t, time.November, gotInput.PreferredStartDate.Month())
	assert.Equal(t, "sam@example.com", gotInput.Contact.Email)

	var body struct {
		Data requests.RequestDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "REQ-ABC123", body.Data.ReferenceNo)
	assert.Equal(t, enums.ServiceRequestStatusPendingVerification, body.Data.Status)
}

func TestCreateAuthenticatedOwner(t *testing.T) {
	customer := uuid.New()
	var gotOwner *uuid.UUID
	svc := &stubService{createFn: func(ctx context.Context, customerID *uuid.UUID, input requests.CreateInput) (*models.ServiceRequest, error) {
		gotOwner = customerID
		return &models.ServiceRequest{ID: uuid.New(), CustomerID: customerID, Status: enums.ServiceRequestStatusActive}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/service-requests", strings.NewReader(createPayload))
	req = req.WithContext(middleware.WithIdentity(req.Context(), auth.Identity{UserID: customer, Role: enums.RoleCustomer}))
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, gotOwner)
	assert.Equal(t, customer, *gotOwner)
}

func TestCreateRejectsMissingContact(t *testing.T) {
	svc := &stubService{createFn: func(ctx context.Context, customerID *uuid.UUID, input requests.CreateInput) (*models.ServiceRequest, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}
	payload := `{"categoryId":"8a58f0d6-6cf4-4f3e-9a57-2f8a3c0e4f11","frequency":"Weekly","addressLine1":"a","city":"b","state":"c","country":"d","pincode":"e","contact":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/service-requests", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Code string            `json:"code"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(pkgerrors.CodeValidation), body.Code)
	assert.Equal(t, "is required", body.Data["email"])
	assert.Equal(t, "is required", body.Data["firstName"])
}

func TestCloseMapsNotActive(t *testing.T) {
	customer := uuid.New()
	requestID := uuid.New()
	var gotInput requests.CloseInput
	svc := &stubService{closeFn: func(ctx context.Context, customerID, id uuid.UUID, input requests.CloseInput) (*models.ServiceRequest, error) {
		assert.Equal(t, customer, customerID)
		assert.Equal(t, requestID, id)
		gotInput = input
		return nil, pkgerrors.New(pkgerrors.CodeRequestNotActive, "service request is not active").
			WithDetails(map[string]any{"status": enums.ServiceRequestStatusClosed})
	}}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"NO_LONGER_NEEDED"}`))
	req = withRequestParam(req, requestID)
	req = req.WithContext(middleware.WithIdentity(req.Context(), auth.Identity{UserID: customer, Role: enums.RoleCustomer}))
	rec := httptest.NewRecorder()
	Close(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_LONGER_NEEDED", gotInput.Reason)
	var body struct {
		Code string         `json:"code"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(pkgerrors.CodeRequestNotActive), body.Code)
	assert.Equal(t, string(enums.ServiceRequestStatusClosed), body.Data["status"])
}

func TestListMinePassesPage(t *testing.T) {
	customer := uuid.New()
	svc := &stubService{listFn: func(ctx context.Context, customerID uuid.UUID, page pagination.Page) (*requests.ListResult, error) {
		assert.Equal(t, customer, customerID)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 5, page.Limit)
		return &requests.ListResult{Items: []requests.RequestDTO{}, Meta: pagination.NewMeta(page, 0)}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customer/service-requests?page=2&limit=5", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), auth.Identity{UserID: customer, Role: enums.RoleCustomer}))
	rec := httptest.NewRecorder()
	ListMine(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMineRequiresIdentity(t *testing.T) {
	req := withRequestParam(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New())
	rec := httptest.NewRecorder()
	GetMine(&stubService{}, testLogger())(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerify(t *testing.T) {
	requestID := uuid.New()
	customer := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"customerId":"`+customer.String()+`"}`))
	req = withRequestParam(req, requestID)
	rec := httptest.NewRecorder()
	Verify(&stubService{}, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data requests.RequestDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, requestID, body.Data.ID)
	assert.Equal(t, enums.ServiceRequestStatusActive, body.Data.Status)
}

func withRequestParam(req *http.Request, id uuid.UUID) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("requestId", id.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}
