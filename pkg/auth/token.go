package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/enums"
)

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// Grant is what the identity provider asserts about a caller when it
// issues a token.
type Grant struct {
	UserID            uuid.UUID
	Role              enums.Role
	KYCStatus         *enums.KYCStatus
	ServiceCategoryID *uuid.UUID
	TokenID           string
}

type tokenClaims struct {
	Role              enums.Role       `json:"role"`
	KYCStatus         *enums.KYCStatus `json:"kyc_status,omitempty"`
	ServiceCategoryID *uuid.UUID       `json:"service_category_id,omitempty"`
	jwt.RegisteredClaims
}

func checkConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return errors.New("jwt issuer is required")
	}
	return nil
}

// Issue signs an HS256 token for g valid for cfg.ExpirationMinutes from now.
func Issue(cfg config.JWTConfig, now time.Time, g Grant) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	switch {
	case g.UserID == uuid.Nil:
		return "", errors.New("user id is required")
	case !g.Role.IsValid():
		return "", fmt.Errorf("invalid role %q", g.Role)
	case g.KYCStatus != nil && !g.KYCStatus.IsValid():
		return "", fmt.Errorf("invalid kyc status %q", *g.KYCStatus)
	}

	id := strings.TrimSpace(g.TokenID)
	if id == "" {
		id = uuid.NewString()
	}
	claims := tokenClaims{
		Role:              g.Role,
		KYCStatus:         g.KYCStatus,
		ServiceCategoryID: g.ServiceCategoryID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    cfg.Issuer,
			Subject:   g.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the caller.
func Verify(cfg config.JWTConfig, raw string) (Identity, error) {
	if err := checkConfig(cfg); err != nil {
		return Identity{}, err
	}
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		return Identity{}, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("token subject is not a user id: %w", err)
	}
	if !claims.Role.IsValid() {
		return Identity{}, fmt.Errorf("token role %q is not recognised", claims.Role)
	}
	id := Identity{UserID: userID, Role: claims.Role, ServiceCategoryID: claims.ServiceCategoryID}
	if claims.KYCStatus != nil {
		id.KYCStatus = *claims.KYCStatus
	}
	return id, nil
}
