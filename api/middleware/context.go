package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgAuth "github.com/askservice/leadmarket-backend/pkg/auth"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// WithIdentity injects the authenticated caller into the context.
func WithIdentity(ctx context.Context, id pkgAuth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFromContext returns the caller seeded by Auth or OptionalAuth.
func IdentityFromContext(ctx context.Context) (pkgAuth.Identity, bool) {
	if ctx == nil {
		return pkgAuth.Identity{}, false
	}
	id, ok := ctx.Value(ctxIdentity).(pkgAuth.Identity)
	if !ok || id.UserID == uuid.Nil {
		return pkgAuth.Identity{}, false
	}
	return id, true
}

func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return string(id.Role)
	}
	return ""
}

// RequireIdentity returns the caller or an unauthorized error.
func RequireIdentity(ctx context.Context) (pkgAuth.Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return pkgAuth.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return id, nil
}
