package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all user routes
func RegisterRoutes(authenticate func(http.Handler) http.Handler, handler *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/api/v1/users/{id}", handler.GetUser)
		r.Get("/api/v1/users/{id}/penalty", handler.GetPenaltyStatus)
	})

	return r
}
