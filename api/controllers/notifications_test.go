package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askservice/leadmarket-backend/api/middleware"
	"github.com/askservice/leadmarket-backend/internal/notifications"
	"github.com/askservice/leadmarket-backend/pkg/auth"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

// inbox records the last call made by the handlers under test.
type inbox struct {
	userID     uuid.UUID
	readID     uuid.UUID
	params     notifications.ListParams
	markReadFn func() error
}

func (i *inbox) List(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	i.params = params
	return &notifications.ListResult{
		Items:  []notifications.NotificationDTO{},
		Unread: 4,
		Meta:   pagination.NewMeta(params.Page, 0),
	}, nil
}

func (i *inbox) MarkRead(_ context.Context, userID, notificationID uuid.UUID) error {
	i.userID, i.readID = userID, notificationID
	if i.markReadFn != nil {
		return i.markReadFn()
	}
	return nil
}

func (i *inbox) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	i.userID = userID
	return 5, nil
}

func notificationRouter(svc notifications.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	r := chi.NewRouter()
	r.Get("/notifications", ListNotifications(svc, logg))
	r.Post("/notifications/read-all", MarkAllNotificationsRead(svc, logg))
	r.Post("/notifications/{notificationId}/read", MarkNotificationRead(svc, logg))
	return r
}

func call(t *testing.T, h http.Handler, method, target string, id *auth.Identity) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if id != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), *id))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestNotificationHandlers(t *testing.T) {
	vendor := &auth.Identity{UserID: uuid.New(), Role: enums.RoleVendor}
	notificationID := uuid.New()

	t.Run("mark one read", func(t *testing.T) {
		svc := &inbox{}
		rec, body := call(t, notificationRouter(svc), http.MethodPost, "/notifications/"+notificationID.String()+"/read", vendor)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, vendor.UserID, svc.userID)
		assert.Equal(t, notificationID, svc.readID)
		assert.Equal(t, map[string]any{"read": true}, body["data"])
	})

	t.Run("mark one read for another user", func(t *testing.T) {
		svc := &inbox{markReadFn: func() error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}}
		rec, _ := call(t, notificationRouter(svc), http.MethodPost, "/notifications/"+notificationID.String()+"/read", vendor)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("mark all read", func(t *testing.T) {
		svc := &inbox{}
		rec, body := call(t, notificationRouter(svc), http.MethodPost, "/notifications/read-all", vendor)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, vendor.UserID, svc.userID)
		assert.Equal(t, map[string]any{"updated": float64(5)}, body["data"])
	})

	t.Run("list applies paging and unread filter", func(t *testing.T) {
		svc := &inbox{}
		customer := &auth.Identity{UserID: uuid.New(), Role: enums.RoleCustomer}
		rec, _ := call(t, notificationRouter(svc), http.MethodGet, "/notifications?page=2&limit=10&unreadOnly=true", customer)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, customer.UserID, svc.params.UserID)
		assert.Equal(t, 2, svc.params.Page.Page)
		assert.Equal(t, 10, svc.params.Page.Limit)
		assert.True(t, svc.params.UnreadOnly)
	})
}

func TestNotificationHandlersRejectBadRequests(t *testing.T) {
	vendor := &auth.Identity{UserID: uuid.New(), Role: enums.RoleVendor}
	cases := []struct {
		name   string
		method string
		target string
		id     *auth.Identity
		status int
	}{
		{"missing identity", http.MethodPost, "/notifications/" + uuid.NewString() + "/read", nil, http.StatusUnauthorized},
		{"malformed id", http.MethodPost, "/notifications/invalid/read", vendor, http.StatusBadRequest},
		{"limit over max", http.MethodGet, "/notifications?limit=500", vendor, http.StatusBadRequest},
		{"bad unread flag", http.MethodGet, "/notifications?unreadOnly=maybe", vendor, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := call(t, notificationRouter(&inbox{}), tc.method, tc.target, tc.id)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
