package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/hoangnv/firstdate-backend/internal/auth"
	"github.com/hoangnv/firstdate-backend/internal/common/utils"
	"github.com/hoangnv/firstdate-backend/internal/pairing"
	"github.com/hoangnv/firstdate-backend/internal/users"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type addAvailabilityDTO struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

// AddAvailability handles POST /api/v1/availability
func (h *Handler) AddAvailability(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var dto addAvailabilityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	window, err := h.service.AddAvailability(r.Context(), userID, dto.StartTime, dto.EndTime)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusCreated, window)
}

// ListAvailability handles GET /api/v1/availability
func (h *Handler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	windows, err := h.service.ListAvailability(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, windows)
}

// DeleteAvailability handles DELETE /api/v1/availability/{id}
func (h *Handler) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid availability ID")
		return
	}

	if err := h.service.DeleteAvailability(r.Context(), userID, id); err != nil {
		h.respondError(w, err)
		return
	}

	utils.MessageResponse(w, "Availability deleted", http.StatusOK)
}

type submitAvailabilityDTO struct {
	TargetUserID int64 `json:"target_user_id" validate:"required,gt=0"`
}

type submitAvailabilityResponse struct {
	Result  SubmitResult `json:"result"`
	Booking *Booking     `json:"booking,omitempty"`
}

// SubmitAvailability handles POST /api/v1/availability/submit
func (h *Handler) SubmitAvailability(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var dto submitAvailabilityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, booking, err := h.service.SubmitAvailability(r.Context(), userID, dto.TargetUserID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, submitAvailabilityResponse{Result: result, Booking: booking})
}

// GetMyBookings handles GET /api/v1/bookings
func (h *Handler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	bookings, err := h.service.GetMyBookings(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, bookings)
}

// GetBooking handles GET /api/v1/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), id, userID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, booking)
}

// ConfirmBooking handles POST /api/v1/bookings/{id}/confirm
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	booking, err := h.service.ConfirmBooking(r.Context(), id, userID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, booking)
}

// CancelBooking handles POST /api/v1/bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	if err := h.service.CancelBooking(r.Context(), id, userID); err != nil {
		h.respondError(w, err)
		return
	}

	utils.MessageResponse(w, "Booking cancelled", http.StatusOK)
}

type feedbackDTO struct {
	Attended     *bool `json:"attended" validate:"required"`
	WantsContact *bool `json:"wants_contact" validate:"required"`
}

// SubmitFeedback handles POST /api/v1/bookings/{id}/feedback
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	var dto feedbackDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := h.service.SubmitFeedback(r.Context(), id, userID, *dto.Attended, *dto.WantsContact)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, booking)
}

type createRequestDTO struct {
	RecipientID int64     `json:"recipient_id" validate:"required,gt=0"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

// CreateRequest handles POST /api/v1/bookings
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var dto createRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := h.service.CreateRequest(r.Context(), userID, dto.RecipientID, dto.StartTime, dto.EndTime)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusCreated, booking)
}

type updateStatusDTO struct {
	Status BookingStatus `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
}

// UpdateStatus handles PUT /api/v1/bookings/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	var dto updateStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := h.service.UpdateBookingStatus(r.Context(), id, userID, dto.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, booking)
}

// ChatWindow handles GET /api/v1/bookings/{id}/chat-window
func (h *Handler) ChatWindow(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	open, err := h.service.CanChat(r.Context(), id, userID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, map[string]bool{"can_chat": open})
}

// ListVenues handles GET /api/v1/venues
func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.service.ListVenues(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, venues)
}

func (h *Handler) bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid booking ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, pairing.ErrMatchNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "No match with this user")
	case errors.Is(err, ErrBookingNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Booking not found")
	case errors.Is(err, ErrAvailabilityNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Availability not found")
	case errors.Is(err, ErrNotParticipant):
		utils.RespondWithError(w, http.StatusForbidden, "You are not a participant of this booking")
	case errors.Is(err, ErrPenalized):
		utils.RespondWithError(w, http.StatusForbidden, "You are temporarily blocked due to a recent cancellation")
	case errors.Is(err, ErrInvalidWindow), errors.Is(err, ErrWindowInPast), errors.Is(err, ErrTooFewWindows):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrWindowConflict), errors.Is(err, ErrWrongState),
		errors.Is(err, ErrVenueMissing), errors.Is(err, ErrAlreadyScheduling):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Something went wrong")
	}
}
