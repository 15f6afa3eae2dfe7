package payment

import (
	"github.com/gorilla/mux"

	"github.com/hoangnv/firstdate-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	// Callback arrives from the payment provider, not from a logged-in user
	router.HandleFunc("/api/v1/payments/callback", handler.Callback).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/payments", handler.CreatePayment).Methods("POST")
}
