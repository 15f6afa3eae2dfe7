package notification

import (
	"github.com/gorilla/mux"

	"github.com/hoangnv/firstdate-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/ws", handler.ServeWS).Methods("GET")
	api.HandleFunc("/notifications", handler.GetNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", handler.MarkRead).Methods("POST")
	api.HandleFunc("/activities", handler.GetActivities).Methods("GET")
	api.HandleFunc("/devices", handler.RegisterDeviceToken).Methods("POST")
}
