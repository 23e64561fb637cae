package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
)

type purchaseBody struct {
	PackageKey string `json:"packageKey" validate:"required,oneof=starter professional"`
	Note       string `json:"note" validate:"max=5"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"packageKey":"gold","note":"too long"}`))
	var body purchaseBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be one of [starter professional]", details["packageKey"])
	assert.Equal(t, "must be at most 5", details["note"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"packageKey":"starter","extra":1}`))
	var body purchaseBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"trailing": `{"packageKey":"starter"}{"packageKey":"starter"}`,
		"syntax":   `{"packageKey":`,
		"type":     `{"packageKey":7}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
			var body purchaseBody
			err := DecodeJSONBody(req, &body)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	raw := `{"packageKey":"` + strings.Repeat("a", maxJSONBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
	var body purchaseBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, "request body too large", pkgerrors.As(err).Message())
}

func TestParsePage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=10", nil)
	page, err := ParsePage(req, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 10, page.Limit)

	req = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err = ParsePage(req, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	page, err = ParsePage(req, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 25, page.Limit)
}

func TestParseQueryDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-01-31&to=31-01-2026", nil)
	from, err := ParseQueryDate(req, "from")
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Equal(t, 31, from.Day())

	_, err = ParseQueryDate(req, "to")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing, err := ParseQueryDate(req, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "leadId", id.String())
	got, err := ParseUUIDParam(req, "leadId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	req = withParam(httptest.NewRequest(http.MethodGet, "/", nil), "leadId", "nope")
	_, err = ParseUUIDParam(req, "leadId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "abcdef", SanitizeString("abcdef", 0))
	assert.Equal(t, "New York", SanitizeString(" New \t  York ", 0))
	assert.Equal(t, "Zür", SanitizeString("Zürich", 3))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}
