package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Caller-supplied ids are echoed only when they look like tokens.
var acceptableRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{8,128}$`)

// RequestID tags every request with an id, echoes it in the response header
// and seeds it into the logger context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !acceptableRequestID.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
