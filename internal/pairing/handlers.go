package pairing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/hoangnv/firstdate-backend/internal/auth"
	"github.com/hoangnv/firstdate-backend/internal/common/utils"
	"github.com/hoangnv/firstdate-backend/internal/users"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Like handles POST /api/v1/likes/{userId}
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	fromUserID := auth.UserID(r.Context())
	toUserID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	result, err := h.service.RecordLike(r.Context(), fromUserID, toUserID)
	if err != nil {
		h.respondSignalError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, result)
}

// Skip handles POST /api/v1/skips/{userId}
func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	fromUserID := auth.UserID(r.Context())
	toUserID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.RecordSkip(r.Context(), fromUserID, toUserID); err != nil {
		h.respondSignalError(w, err)
		return
	}

	utils.MessageResponse(w, "Skip recorded", http.StatusOK)
}

// GetMatches handles GET /api/v1/matches
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	matches, err := h.service.GetMatches(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get matches")
		return
	}

	utils.RespondWithData(w, http.StatusOK, matches)
}

// GetWaitingMatches handles GET /api/v1/matches/waiting
func (h *Handler) GetWaitingMatches(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	matches, err := h.service.GetWaitingMatches(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get waiting matches")
		return
	}

	utils.RespondWithData(w, http.StatusOK, matches)
}

// GetMatchWith handles GET /api/v1/matches/with/{userId}
func (h *Handler) GetMatchWith(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	otherID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	match, err := h.service.GetMatchBetween(r.Context(), userID, otherID)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "No match with this user")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get match")
		return
	}

	utils.RespondWithData(w, http.StatusOK, match)
}

// GetMatch handles GET /api/v1/matches/{id}
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	matchID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	match, err := h.service.GetMatchByID(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Match not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get match")
		return
	}
	if !match.Involves(userID) {
		utils.RespondWithError(w, http.StatusForbidden, "Not a participant of this match")
		return
	}

	utils.RespondWithData(w, http.StatusOK, match)
}

func (h *Handler) respondSignalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSelfSignal):
		utils.RespondWithError(w, http.StatusBadRequest, "You cannot interact with your own profile")
	case errors.Is(err, users.ErrUserNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrPenalized):
		utils.RespondWithError(w, http.StatusForbidden, "You are temporarily blocked due to a recent cancellation")
	case errors.Is(err, ErrQuotaExceeded):
		utils.RespondWithError(w, http.StatusTooManyRequests, "Daily interaction limit reached")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record interaction")
	}
}
