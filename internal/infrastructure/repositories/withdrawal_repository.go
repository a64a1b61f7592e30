package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/internal/infrastructure/metrics"
)

// WithdrawalRepository persists withdrawal requests. Status transitions run
// as conditional updates so retries and concurrent workers cannot replay a
// terminal transition, and the refunded flag flips at most once.
type WithdrawalRepository struct {
	db *sqlx.DB
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *sqlx.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create inserts a pending request. Runs on ext so the service can bind it
// to the same transaction as the optimistic balance debit.
func (r *WithdrawalRepository) Create(ctx context.Context, ext sqlx.ExtContext, withdrawal *entities.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawals (id, user_id, asset_type, amount, destination_address, status, refunded, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $7)
	`

	if _, err := ext.ExecContext(ctx, query,
		withdrawal.ID, withdrawal.UserID, withdrawal.AssetType, withdrawal.Amount,
		withdrawal.DestinationAddress, withdrawal.Status, withdrawal.CreatedAt); err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return nil
}

// GetByID retrieves a withdrawal request
func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.WithdrawalRequest, error) {
	query := `
		SELECT id, user_id, asset_type, amount, destination_address, status, tx_hash,
		       error_message, refunded, created_at, updated_at, completed_at
		FROM withdrawals
		WHERE id = $1
	`

	var withdrawal entities.WithdrawalRequest
	err := r.db.GetContext(ctx, &withdrawal, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("withdrawal")
		}
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}

	return &withdrawal, nil
}

// GetByUser returns a user's withdrawal history newest first
func (r *WithdrawalRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.WithdrawalRequest, error) {
	query := `
		SELECT id, user_id, asset_type, amount, destination_address, status, tx_hash,
		       error_message, refunded, created_at, updated_at, completed_at
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var withdrawals []*entities.WithdrawalRequest
	if err := r.db.SelectContext(ctx, &withdrawals, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get user withdrawals: %w", err)
	}

	return withdrawals, nil
}

// ListByStatus returns requests in a given state, oldest first, for
// operator reconciliation queues.
func (r *WithdrawalRepository) ListByStatus(ctx context.Context, status entities.WithdrawalStatus, limit, offset int) ([]*entities.WithdrawalRequest, error) {
	query := `
		SELECT id, user_id, asset_type, amount, destination_address, status, tx_hash,
		       error_message, refunded, created_at, updated_at, completed_at
		FROM withdrawals
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`

	var withdrawals []*entities.WithdrawalRequest
	if err := r.db.SelectContext(ctx, &withdrawals, query, status, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	return withdrawals, nil
}

// MarkProcessing moves pending -> processing, returning false when the
// request was already picked up.
func (r *WithdrawalRepository) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, id, entities.WithdrawalStatusProcessing, time.Now(), entities.WithdrawalStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark withdrawal processing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// MarkCompleted records the transfer hash and closes the request
func (r *WithdrawalRepository) MarkCompleted(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, txHash string) error {
	now := time.Now()
	query := `
		UPDATE withdrawals
		SET status = $2, tx_hash = $3, updated_at = $4, completed_at = $4
		WHERE id = $1 AND status = $5
	`

	result, err := ext.ExecContext(ctx, query, id, entities.WithdrawalStatusCompleted, txHash, now, entities.WithdrawalStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark withdrawal completed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domainerrors.NotFoundError("processing withdrawal")
	}

	metrics.WithdrawalsResolved.WithLabelValues(string(entities.WithdrawalStatusCompleted)).Inc()
	return nil
}

// SetTxHash records the broadcast hash without changing status, so an
// indeterminate transfer still leaves its hash for reconciliation.
func (r *WithdrawalRepository) SetTxHash(ctx context.Context, id uuid.UUID, txHash string) error {
	query := `
		UPDATE withdrawals
		SET tx_hash = $2, updated_at = $3
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, txHash, time.Now()); err != nil {
		return fmt.Errorf("failed to set withdrawal tx hash: %w", err)
	}

	return nil
}

// MarkFailedAndRefunded records the failure and flips the refunded flag in
// one conditional update. Returning true means the caller owns the refund;
// a false return means another worker already refunded.
func (r *WithdrawalRepository) MarkFailedAndRefunded(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, errorMessage string) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = $2, error_message = $3, refunded = true, updated_at = $4
		WHERE id = $1 AND refunded = false AND status != $5
	`

	result, err := ext.ExecContext(ctx, query, id, entities.WithdrawalStatusFailed, errorMessage, time.Now(), entities.WithdrawalStatusCompleted)
	if err != nil {
		return false, fmt.Errorf("failed to mark withdrawal failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 1 {
		metrics.WithdrawalsResolved.WithLabelValues(string(entities.WithdrawalStatusFailed)).Inc()
	}
	return affected == 1, nil
}
