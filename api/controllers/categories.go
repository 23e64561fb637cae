package controllers

import (
	"net/http"

	"github.com/askservice/leadmarket-backend/api/responses"
	"github.com/askservice/leadmarket-backend/internal/categories"
	"github.com/askservice/leadmarket-backend/pkg/logger"
)

// ListCategories returns the active category tree.
func ListCategories(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tree, err := svc.ListTree(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if tree == nil {
			tree = []categories.CategoryDTO{}
		}
		responses.WriteSuccess(w, tree)
	}
}
