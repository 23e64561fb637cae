package credits

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/askservice/leadmarket-backend/api/middleware"
	"github.com/askservice/leadmarket-backend/api/responses"
	"github.com/askservice/leadmarket-backend/api/validators"
	internalcredits "github.com/askservice/leadmarket-backend/internal/credits"
	"github.com/askservice/leadmarket-backend/internal/ledger"
	"github.com/askservice/leadmarket-backend/pkg/logger"
)

type purchaseBody struct {
	PackageID  *string `json:"packageId" validate:"omitempty,uuid"`
	PackageKey string  `json:"packageKey" validate:"omitempty,max=64"`
}

func ListPackages(svc internalcredits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packages, err := svc.ListPackages(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if packages == nil {
			packages = []internalcredits.PackageDTO{}
		}
		responses.WriteSuccess(w, packages)
	}
}

func Balance(svc internalcredits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.Balance(r.Context(), vendor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"balance": balance})
	}
}

// Purchase credits the vendor wallet with a package selected by id or key.
func Purchase(svc internalcredits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body purchaseBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalcredits.PurchaseInput{PackageKey: strings.ToLower(strings.TrimSpace(body.PackageKey))}
		if body.PackageID != nil {
			id := uuid.MustParse(*body.PackageID)
			input.PackageID = &id
		}

		result, err := svc.Purchase(r.Context(), vendor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "credits purchased", result)
	}
}

// ListTransactions returns the vendor's ledger history, newest first.
func ListTransactions(svc internalcredits.Service, maxLimit int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r, maxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		result, err := svc.ListTransactions(r.Context(), vendor, ledger.TransactionQuery{
			Type:   strings.ToLower(strings.TrimSpace(q.Get("type"))),
			Period: strings.ToLower(strings.TrimSpace(q.Get("period"))),
			From:   from,
			To:     to,
			Page:   page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result.List())
	}
}
