package errors

import "net/http"

// Code is the stable machine-readable error identifier sent to clients.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Lead economy.
const (
	CodeInsufficientCredits Code = "INSUFFICIENT_CREDITS"
	CodeNotEligible         Code = "NOT_ELIGIBLE"
	CodeCategoryMismatch    Code = "CATEGORY_MISMATCH"
	CodeLeadNotFound        Code = "LEAD_NOT_FOUND"
	CodeAlreadyUnlocked     Code = "ALREADY_UNLOCKED"
	CodeUnlockRequired      Code = "UNLOCK_REQUIRED"
	CodeLeadClosed          Code = "LEAD_CLOSED"
	CodeDuplicateQuote      Code = "DUPLICATE_QUOTE"
	CodeQuoteCapReached     Code = "QUOTE_CAP_REACHED"
	CodeQuoteNotActionable  Code = "QUOTE_NOT_ACTIONABLE"
	CodeInvalidPackage      Code = "INVALID_PACKAGE"
	CodeRequestNotActive    Code = "REQUEST_NOT_ACTIVE"
)

// Metadata drives how a Code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type detailPolicy bool

const (
	withDetails detailPolicy = true
	noDetails   detailPolicy = false
)

func entry(status int, public string, details detailPolicy) Metadata {
	return Metadata{
		HTTPStatus:     status,
		Retryable:      status >= http.StatusInternalServerError,
		PublicMessage:  public,
		DetailsAllowed: bool(details),
	}
}

var catalog = map[Code]Metadata{
	CodeValidation:    entry(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized:  entry(http.StatusUnauthorized, "authentication required", noDetails),
	CodeForbidden:     entry(http.StatusForbidden, "access denied", noDetails),
	CodeNotFound:      entry(http.StatusNotFound, "resource not found", noDetails),
	CodeConflict:      entry(http.StatusConflict, "conflict detected", noDetails),
	CodeStateConflict: entry(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeIdempotency:   entry(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:     entry(http.StatusTooManyRequests, "rate limit exceeded", noDetails),
	CodeInternal:      entry(http.StatusInternalServerError, "internal server error", noDetails),
	CodeDependency:    entry(http.StatusServiceUnavailable, "dependency unavailable", withDetails),

	CodeInsufficientCredits: entry(http.StatusPaymentRequired, "insufficient credits", withDetails),
	CodeNotEligible:         entry(http.StatusForbidden, "vendor is not eligible", withDetails),
	CodeCategoryMismatch:    entry(http.StatusForbidden, "lead is outside the vendor category", noDetails),
	CodeLeadNotFound:        entry(http.StatusNotFound, "lead not found", noDetails),
	CodeAlreadyUnlocked:     entry(http.StatusConflict, "lead already unlocked", withDetails),
	CodeUnlockRequired:      entry(http.StatusForbidden, "lead must be unlocked first", noDetails),
	CodeLeadClosed:          entry(http.StatusBadRequest, "lead is no longer active", withDetails),
	CodeDuplicateQuote:      entry(http.StatusConflict, "quote already submitted", noDetails),
	CodeQuoteCapReached:     entry(http.StatusBadRequest, "quote limit reached", withDetails),
	CodeQuoteNotActionable:  entry(http.StatusBadRequest, "quote can no longer be changed", withDetails),
	CodeInvalidPackage:      entry(http.StatusBadRequest, "invalid credit package", noDetails),
	CodeRequestNotActive:    entry(http.StatusBadRequest, "service request is not active", withDetails),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalog[code]; ok {
		return meta
	}
	return catalog[CodeInternal]
}
