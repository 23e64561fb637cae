// Package responses renders the JSON envelope every handler replies with.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/types"
)

const successMessage = "success"

var errUnknown = errors.New("unknown error")

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessMessage(w, http.StatusOK, successMessage, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	WriteSuccessMessage(w, status, successMessage, data)
}

func WriteSuccessMessage(w http.ResponseWriter, status int, message string, data any) {
	if message == "" {
		message = successMessage
	}
	writeJSON(w, status, types.Envelope{StatusCode: status, Message: message, Data: data})
}

// WriteError maps err to its code's status. Errors without a code are
// reported as internal and their text never reaches the client.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errUnknown
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	payload := errorEnvelope(typed, meta)

	if logg != nil {
		fields := pkgerrors.LogFields(err)
		fields["http_status"] = meta.HTTPStatus
		logCtx := logg.WithFields(ctx, fields)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(logCtx, "request.error", err)
		} else {
			logg.Warn(logCtx, "request.rejected")
		}
	}
	writeJSON(w, meta.HTTPStatus, payload)
}

func errorEnvelope(typed *pkgerrors.Error, meta pkgerrors.Metadata) types.Envelope {
	env := types.Envelope{
		StatusCode: meta.HTTPStatus,
		Message:    meta.PublicMessage,
		Code:       string(typed.Code()),
	}
	// infrastructure failures keep the generic public message
	if !meta.Retryable && typed.Message() != "" {
		env.Message = typed.Message()
	}
	if meta.DetailsAllowed && typed.Details() != nil {
		env.Data = typed.Details()
	}
	return env
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"status_code":500,"message":"response encoding failed","code":"INTERNAL_ERROR"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
