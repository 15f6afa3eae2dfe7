package notification

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/hoangnv/firstdate-backend/internal/auth"
	"github.com/hoangnv/firstdate-backend/internal/common/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced at the router level
		return true
	},
}

type Handler struct {
	service Service
	hub     *Hub
}

func NewHandler(service Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket for user %d: %v", userID, err)
		return
	}

	h.hub.Register(userID, conn)
}

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}

	notifications, err := h.service.GetUserNotifications(r.Context(), userID, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get notifications")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, notifications)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	vars := mux.Vars(r)
	notificationID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	if err := h.service.MarkRead(r.Context(), notificationID, userID); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to mark notification as read")
		return
	}

	utils.MessageResponse(w, "Notification marked as read", http.StatusOK)
}

func (h *Handler) GetActivities(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}

	activities, err := h.service.GetUserActivities(r.Context(), userID, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get activities")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, activities)
}

type registerTokenDTO struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

func (h *Handler) RegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var dto registerTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.RegisterDeviceToken(r.Context(), userID, dto.Token, dto.Platform); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register device token")
		return
	}

	utils.MessageResponse(w, "Device token registered", http.StatusCreated)
}
