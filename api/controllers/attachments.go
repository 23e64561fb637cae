package controllers

import (
	"errors"
	"net/http"

	"github.com/askservice/leadmarket-backend/api/middleware"
	"github.com/askservice/leadmarket-backend/api/responses"
	"github.com/askservice/leadmarket-backend/internal/attachments"
	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
)

const attachmentFormField = "file"

// UploadAttachment stores a multipart "file" for later use on a quote.
func UploadAttachment(svc attachments.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// multipart framing overhead on top of the file itself
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds upload limit").
					WithDetails(map[string]any{"maxBytes": maxBytes}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, _, err := r.FormFile(attachmentFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required"))
			return
		}
		defer file.Close()

		result, err := svc.Upload(r.Context(), vendor.UserID, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
