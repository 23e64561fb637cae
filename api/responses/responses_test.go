package responses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
)

type envelope struct {
	StatusCode int            `json:"status_code"`
	Message    string         `json:"message"`
	Code       string         `json:"code"`
	Data       map[string]any `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := decode(t, w)
	assert.Equal(t, http.StatusOK, body.StatusCode)
	assert.Equal(t, "success", body.Message)
	assert.Empty(t, body.Code)
	assert.Equal(t, "world", body.Data["hello"])
}

func TestWriteSuccessStatusCreated(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessMessage(w, http.StatusCreated, "quote submitted", map[string]string{"id": "q1"})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, http.StatusCreated, body.StatusCode)
	assert.Equal(t, "quote submitted", body.Message)
}

func TestWriteErrorMapsDomainCode(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInsufficientCredits, "not enough credits to unlock this lead").
		WithDetails(map[string]any{"required": 5, "balance": 2, "shortfall": 3})
	WriteError(context.Background(), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), w, err)

	require.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decode(t, w)
	assert.Equal(t, http.StatusPaymentRequired, body.StatusCode)
	assert.Equal(t, string(pkgerrors.CodeInsufficientCredits), body.Code)
	assert.Equal(t, "not enough credits to unlock this lead", body.Message)
	assert.EqualValues(t, 3, body.Data["shortfall"])
}

func TestWriteErrorHidesDisallowedDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeCategoryMismatch, "lead belongs to another category").
		WithDetails(map[string]any{"leadCategory": "secret"})
	WriteError(context.Background(), nil, w, err)

	require.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Nil(t, body.Data)
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Code)
	assert.Equal(t, pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage, body.Message)
	assert.Nil(t, body.Data)
}
