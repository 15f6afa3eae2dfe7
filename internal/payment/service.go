package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hoangnv/firstdate-backend/internal/scheduling"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// Bookings is the slice of the scheduling service the adapter drives
type Bookings interface {
	GetBooking(ctx context.Context, bookingID, userID int64) (*scheduling.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID, userID int64) (*scheduling.Booking, error)
}

type Gateway struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

type Service interface {
	CreatePaymentURL(ctx context.Context, bookingID, userID, amount int64, clientIP string) (string, error)
	ProcessCallback(ctx context.Context, params map[string]string) (Outcome, error)
}

type service struct {
	repo     Repository
	bookings Bookings
	gateway  Gateway
	now      func() time.Time
}

func NewService(repo Repository, bookings Bookings, gateway Gateway) Service {
	return &service{
		repo:     repo,
		bookings: bookings,
		gateway:  gateway,
		now:      time.Now,
	}
}

// CreatePaymentURL opens a PENDING transaction for the booking under a fresh
// reference and returns the signed gateway redirect URL.
func (s *service) CreatePaymentURL(ctx context.Context, bookingID, userID, amount int64, clientIP string) (string, error) {
	if amount <= 0 {
		return "", ErrInvalidAmount
	}

	// Also authorizes: only a participant can see the booking
	if _, err := s.bookings.GetBooking(ctx, bookingID, userID); err != nil {
		return "", err
	}

	txn := &Transaction{
		TxnRef:    "VNP" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16],
		BookingID: bookingID,
		UserID:    userID,
		Amount:    amount,
		Status:    StatusPending,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return "", err
	}

	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    s.gateway.TmnCode,
		"vnp_Amount":     strconv.FormatInt(amount*100, 10),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     txn.TxnRef,
		"vnp_OrderInfo":  fmt.Sprintf("Payment for booking %d", bookingID),
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  s.gateway.ReturnURL,
		"vnp_IpAddr":     clientIP,
		"vnp_CreateDate": s.now().Format("20060102150405"),
	}

	return s.buildRedirectURL(params), nil
}

func (s *service) buildRedirectURL(params map[string]string) string {
	signature := signParams(params, s.gateway.HashSecret)

	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	query := url.Values{}
	for _, key := range keys {
		query.Set(key, params[key])
	}
	query.Set("vnp_SecureHash", signature)

	return s.gateway.PayURL + "?" + query.Encode()
}

// ProcessCallback consumes one provider callback delivery. The signature is
// checked before anything else; nothing is mutated on a bad signature. The
// PENDING to terminal transition is a single compare-and-set, so a replayed
// or racing delivery settles the transaction exactly once and every other
// delivery reports OutcomeAlreadyProcessed.
func (s *service) ProcessCallback(ctx context.Context, params map[string]string) (Outcome, error) {
	signature := params["vnp_SecureHash"]

	signed := make(map[string]string, len(params))
	for key, value := range params {
		switch key {
		case "vnp_SecureHash", "vnp_SecureHashType", "bookingId":
			continue
		}
		signed[key] = value
	}

	if signature == "" || !verifySignature(signed, s.gateway.HashSecret, signature) {
		log.Printf("payment: invalid callback signature for ref %q", params["vnp_TxnRef"])
		return OutcomeInvalidSignature, nil
	}

	txn, err := s.repo.GetByTxnRef(ctx, params["vnp_TxnRef"])
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return OutcomeOrderNotFound, nil
		}
		return "", err
	}
	if txn.Status != StatusPending {
		return OutcomeAlreadyProcessed, nil
	}

	responseCode := params["vnp_ResponseCode"]
	finalStatus := StatusFailed
	if responseCode == "00" {
		finalStatus = StatusSuccess
	}

	settled, err := s.repo.SettleIfPending(ctx, txn.TxnRef, finalStatus, responseCode)
	if err != nil {
		return "", err
	}
	if !settled {
		// Lost the race against a concurrent delivery
		return OutcomeAlreadyProcessed, nil
	}

	paymentsSettled.WithLabelValues(string(finalStatus)).Inc()

	if finalStatus == StatusSuccess {
		if _, err := s.bookings.ConfirmBooking(ctx, txn.BookingID, txn.UserID); err != nil {
			// The payment itself is settled; the confirmation failure is
			// surfaced through the booking flow, not by re-failing here.
			log.Printf("payment: booking %d confirmation after payment failed: %v", txn.BookingID, err)
		}
	}

	return OutcomeSuccess, nil
}
