package leads

import (
	"net/http"
	"strings"

	"github.com/askservice/leadmarket-backend/api/middleware"
	"github.com/askservice/leadmarket-backend/api/responses"
	"github.com/askservice/leadmarket-backend/api/validators"
	internalleads "github.com/askservice/leadmarket-backend/internal/leads"
	"github.com/askservice/leadmarket-backend/internal/unlocks"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/pagination"
)

// Dashboard returns the vendor's headline numbers.
func Dashboard(svc internalleads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dashboard, err := svc.Dashboard(r.Context(), vendor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

// ListAvailable returns active leads in the vendor's category.
func ListAvailable(svc internalleads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		list, err := svc.ListAvailable(r.Context(), vendor, internalleads.ListQuery{
			City:    validators.SanitizeString(q.Get("city"), 100),
			State:   validators.SanitizeString(q.Get("state"), 100),
			Country: validators.SanitizeString(q.Get("country"), 100),
			Sort:    strings.ToLower(strings.TrimSpace(q.Get("sort"))),
			Page:    page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListUnlocked returns leads the vendor has paid for.
func ListUnlocked(svc internalleads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListUnlocked(r.Context(), vendor, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Get returns a single lead, masked unless unlocked.
func Get(svc internalleads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		leadID, err := validators.ParseUUIDParam(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lead, err := svc.Get(r.Context(), vendor, leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}

// Unlock spends credits and returns the unmasked lead with the receipt.
func Unlock(svc unlocks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		leadID, err := validators.ParseUUIDParam(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Unlock(r.Context(), vendor, leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "lead unlocked", result)
	}
}
