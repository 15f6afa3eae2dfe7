package payment

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/hoangnv/firstdate-backend/internal/auth"
	"github.com/hoangnv/firstdate-backend/internal/common/utils"
	"github.com/hoangnv/firstdate-backend/internal/scheduling"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type createPaymentDTO struct {
	BookingID int64 `json:"booking_id" validate:"required,gt=0"`
	Amount    int64 `json:"amount" validate:"required,gt=0"`
}

// CreatePayment handles POST /api/v1/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var dto createPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	redirectURL, err := h.service.CreatePaymentURL(r.Context(), dto.BookingID, userID, dto.Amount, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, scheduling.ErrBookingNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Booking not found")
		case errors.Is(err, scheduling.ErrNotParticipant):
			utils.RespondWithError(w, http.StatusForbidden, "You are not a participant of this booking")
		case errors.Is(err, ErrInvalidAmount):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create payment")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, map[string]string{"payment_url": redirectURL})
}

// Callback handles GET /api/v1/payments/callback, the provider's redirect
// with the payment result. The endpoint is unauthenticated; the request is
// trusted through its signature instead.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	params := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	outcome, err := h.service.ProcessCallback(r.Context(), params)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process callback")
		return
	}

	status := http.StatusOK
	if outcome == OutcomeInvalidSignature {
		status = http.StatusBadRequest
	}
	if outcome == OutcomeOrderNotFound {
		status = http.StatusNotFound
	}
	utils.RespondWithJSON(w, status, map[string]Outcome{"outcome": outcome})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
