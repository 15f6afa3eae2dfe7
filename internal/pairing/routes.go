package pairing

import (
	"github.com/gorilla/mux"

	"github.com/hoangnv/firstdate-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/likes/{userId}", handler.Like).Methods("POST")
	api.HandleFunc("/skips/{userId}", handler.Skip).Methods("POST")
	api.HandleFunc("/matches", handler.GetMatches).Methods("GET")
	api.HandleFunc("/matches/waiting", handler.GetWaitingMatches).Methods("GET")
	api.HandleFunc("/matches/with/{userId}", handler.GetMatchWith).Methods("GET")
	api.HandleFunc("/matches/{id}", handler.GetMatch).Methods("GET")
}
