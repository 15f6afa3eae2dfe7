package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByTxnRef(ctx context.Context, txnRef string) (*Transaction, error)
	// SettleIfPending atomically moves a PENDING transaction to a terminal
	// status. Returns false when the transaction was already settled, which
	// is how duplicate callback deliveries are collapsed to one application.
	SettleIfPending(ctx context.Context, txnRef string, status TransactionStatus, responseCode string) (bool, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, txn *Transaction) error {
	err := r.db.GetContext(ctx, txn, `
		INSERT INTO payment_transactions (txn_ref, booking_id, user_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, txn_ref, booking_id, user_id, amount, status, response_code, created_at, updated_at`,
		txn.TxnRef, txn.BookingID, txn.UserID, txn.Amount, txn.Status)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByTxnRef(ctx context.Context, txnRef string) (*Transaction, error) {
	var txn Transaction
	err := r.db.GetContext(ctx, &txn, `
		SELECT id, txn_ref, booking_id, user_id, amount, status, response_code, created_at, updated_at
		FROM payment_transactions
		WHERE txn_ref = $1`, txnRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

func (r *postgresRepository) SettleIfPending(ctx context.Context, txnRef string, status TransactionStatus, responseCode string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payment_transactions
		SET status = $2, response_code = $3, updated_at = NOW()
		WHERE txn_ref = $1 AND status = $4`,
		txnRef, status, responseCode, StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to settle transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check settlement: %w", err)
	}
	return rows > 0, nil
}
