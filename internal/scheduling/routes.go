package scheduling

import (
	"github.com/gorilla/mux"

	"github.com/hoangnv/firstdate-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/availability", handler.AddAvailability).Methods("POST")
	api.HandleFunc("/availability", handler.ListAvailability).Methods("GET")
	api.HandleFunc("/availability/submit", handler.SubmitAvailability).Methods("POST")
	api.HandleFunc("/availability/{id}", handler.DeleteAvailability).Methods("DELETE")

	api.HandleFunc("/bookings", handler.CreateRequest).Methods("POST")
	api.HandleFunc("/bookings", handler.GetMyBookings).Methods("GET")
	api.HandleFunc("/bookings/{id}", handler.GetBooking).Methods("GET")
	api.HandleFunc("/bookings/{id}/confirm", handler.ConfirmBooking).Methods("POST")
	api.HandleFunc("/bookings/{id}/cancel", handler.CancelBooking).Methods("POST")
	api.HandleFunc("/bookings/{id}/feedback", handler.SubmitFeedback).Methods("POST")
	api.HandleFunc("/bookings/{id}/status", handler.UpdateStatus).Methods("PUT")
	api.HandleFunc("/bookings/{id}/chat-window", handler.ChatWindow).Methods("GET")

	api.HandleFunc("/venues", handler.ListVenues).Methods("GET")
}
