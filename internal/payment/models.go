package payment

import "time"

// TransactionStatus is the lifecycle of one payment attempt. PENDING is the
// only state a callback may act on; SUCCESS and FAILED are terminal.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "PENDING"
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
)

// Transaction records one payment attempt for a booking. Amount is in VND.
type Transaction struct {
	ID           int64             `json:"id" db:"id"`
	TxnRef       string            `json:"txn_ref" db:"txn_ref"`
	BookingID    int64             `json:"booking_id" db:"booking_id"`
	UserID       int64             `json:"user_id" db:"user_id"`
	Amount       int64             `json:"amount" db:"amount"`
	Status       TransactionStatus `json:"status" db:"status"`
	ResponseCode *string           `json:"response_code,omitempty" db:"response_code"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// Outcome is the result of processing a provider callback. Every delivery of
// the same callback after the first reports AlreadyProcessed, which callers
// treat as terminal, not as an error.
type Outcome string

const (
	OutcomeSuccess          Outcome = "SUCCESS"
	OutcomeInvalidSignature Outcome = "INVALID_SIGNATURE"
	OutcomeOrderNotFound    Outcome = "ORDER_NOT_FOUND"
	OutcomeAlreadyProcessed Outcome = "ALREADY_PROCESSED"
)
