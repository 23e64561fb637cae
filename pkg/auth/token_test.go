package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/enums"
)

var testCfg = config.JWTConfig{Secret: "secret", Issuer: "asksvc", ExpirationMinutes: 30}

func TestIssueAndVerify(t *testing.T) {
	userID := uuid.New()
	categoryID := uuid.New()
	kyc := enums.KYCStatusVerified

	token, err := Issue(testCfg, time.Now(), Grant{
		UserID:            userID,
		Role:              enums.RoleVendor,
		KYCStatus:         &kyc,
		ServiceCategoryID: &categoryID,
	})
	require.NoError(t, err)

	id, err := Verify(testCfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, id.UserID)
	assert.Equal(t, enums.RoleVendor, id.Role)
	assert.Equal(t, enums.KYCStatusVerified, id.KYCStatus)
	require.NotNil(t, id.ServiceCategoryID)
	assert.Equal(t, categoryID, *id.ServiceCategoryID)
	assert.True(t, id.CanTrade())
}

func TestVerifyRejections(t *testing.T) {
	expired, err := Issue(testCfg, time.Now().Add(-2*time.Hour), Grant{UserID: uuid.New(), Role: enums.RoleCustomer})
	require.NoError(t, err)

	valid, err := Issue(testCfg, time.Now(), Grant{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)
	otherSecret := testCfg
	otherSecret.Secret = "other"
	otherIssuer := testCfg
	otherIssuer.Issuer = "someone-else"

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: enums.RoleVendor,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testCfg.Issuer,
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testCfg.Secret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role:             enums.RoleVendor,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testCfg.Issuer, Subject: uuid.NewString()},
	}).SignedString([]byte(testCfg.Secret))
	require.NoError(t, err)

	cases := []struct {
		name  string
		cfg   config.JWTConfig
		token string
	}{
		{"expired", testCfg, expired},
		{"wrong secret", otherSecret, valid},
		{"wrong issuer", otherIssuer, valid},
		{"bad subject", testCfg, badSubject},
		{"no expiry", testCfg, noExpiry},
		{"garbage", testCfg, "a.b.c"},
		{"no secret", config.JWTConfig{Issuer: "asksvc"}, valid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Verify(tc.cfg, tc.token)
			assert.Error(t, err)
		})
	}
}

func TestIssueValidatesGrant(t *testing.T) {
	_, err := Issue(testCfg, time.Now(), Grant{UserID: uuid.New(), Role: enums.Role("owner")})
	assert.Error(t, err)

	_, err = Issue(testCfg, time.Now(), Grant{Role: enums.RoleVendor})
	assert.Error(t, err)

	bad := enums.KYCStatus("approved")
	_, err = Issue(testCfg, time.Now(), Grant{UserID: uuid.New(), Role: enums.RoleVendor, KYCStatus: &bad})
	assert.Error(t, err)

	noTTL := testCfg
	noTTL.ExpirationMinutes = 0
	_, err = Issue(noTTL, time.Now(), Grant{UserID: uuid.New(), Role: enums.RoleVendor})
	assert.Error(t, err)
}

func TestIdentityCanTradeRequiresVerifiedVendor(t *testing.T) {
	assert.False(t, Identity{Role: enums.RoleVendor, KYCStatus: enums.KYCStatusPendingVerification}.CanTrade())
	assert.False(t, Identity{Role: enums.RoleCustomer, KYCStatus: enums.KYCStatusVerified}.CanTrade())
	assert.False(t, Identity{}.CanTrade())
}
