package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/internal/infrastructure/metrics"
)

// LedgerRepository handles ledger balance persistence. Every mutation is a
// single SQL statement so concurrent credits, debits and refunds cannot
// lose updates; methods with an ext parameter run inside the caller's
// transaction.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetByUserAndAsset retrieves a ledger row, or a zero-valued row if the
// user has never been credited.
func (r *LedgerRepository) GetByUserAndAsset(ctx context.Context, userID uuid.UUID, asset entities.AssetType) (*entities.LedgerBalance, error) {
	query := `
		SELECT id, user_id, asset_type, available, total_earned, commission_earned, total_withdrawn, created_at, updated_at
		FROM ledger_balances
		WHERE user_id = $1 AND asset_type = $2
	`

	var balance entities.LedgerBalance
	err := r.db.GetContext(ctx, &balance, query, userID, asset)
	if err != nil {
		if err == sql.ErrNoRows {
			return &entities.LedgerBalance{
				UserID:    userID,
				AssetType: asset,
			}, nil
		}
		return nil, fmt.Errorf("failed to get ledger balance: %w", err)
	}

	return &balance, nil
}

// GetByUser retrieves all ledger rows for a user
func (r *LedgerRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*entities.LedgerBalance, error) {
	query := `
		SELECT id, user_id, asset_type, available, total_earned, commission_earned, total_withdrawn, created_at, updated_at
		FROM ledger_balances
		WHERE user_id = $1
		ORDER BY asset_type
	`

	var balances []*entities.LedgerBalance
	if err := r.db.SelectContext(ctx, &balances, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get ledger balances: %w", err)
	}

	return balances, nil
}

// Credit increases available and the lifetime counter selected by kind in
// one upsert. A user with no ledger row gets one created with the credit
// as its initial balance. Runs on ext so callers can bind it to the same
// transaction as their idempotency guard.
func (r *LedgerRepository) Credit(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal, kind entities.CreditKind) error {
	if !amount.IsPositive() {
		return fmt.Errorf("credit amount must be positive, got %s", amount.String())
	}

	earnedDelta := amount
	commissionDelta := decimal.Zero
	if kind == entities.CreditKindCommission {
		earnedDelta = decimal.Zero
		commissionDelta = amount
	}

	query := `
		INSERT INTO ledger_balances (id, user_id, asset_type, available, total_earned, commission_earned, total_withdrawn, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $7)
		ON CONFLICT (user_id, asset_type) DO UPDATE SET
			available = ledger_balances.available + EXCLUDED.available,
			total_earned = ledger_balances.total_earned + EXCLUDED.total_earned,
			commission_earned = ledger_balances.commission_earned + EXCLUDED.commission_earned,
			updated_at = EXCLUDED.updated_at
	`

	_, err := ext.ExecContext(ctx, query, uuid.New(), userID, asset, amount, earnedDelta, commissionDelta, time.Now())
	if err != nil {
		return fmt.Errorf("failed to credit ledger balance: %w", err)
	}

	metrics.LedgerCredits.WithLabelValues(string(kind)).Inc()
	return nil
}

// Debit decreases the available balance, failing with
// ErrInsufficientBalance when the row would go negative. The WHERE clause
// is the serialization point against concurrent spends.
func (r *LedgerRepository) Debit(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("debit amount must be positive, got %s", amount.String())
	}

	query := `
		UPDATE ledger_balances
		SET available = available - $1, updated_at = $2
		WHERE user_id = $3 AND asset_type = $4 AND available >= $1
	`

	result, err := ext.ExecContext(ctx, query, amount, time.Now(), userID, asset)
	if err != nil {
		return fmt.Errorf("failed to debit ledger balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read debit result: %w", err)
	}
	if rows == 0 {
		current, getErr := r.GetByUserAndAsset(ctx, userID, asset)
		if getErr != nil {
			return domainerrors.InsufficientBalanceError(decimal.Zero, amount)
		}
		return domainerrors.InsufficientBalanceError(current.Available, amount)
	}

	return nil
}

// Refund returns a previously debited amount to the available balance.
// Lifetime counters are untouched: a refund undoes a reservation, it does
// not create new earnings.
func (r *LedgerRepository) Refund(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("refund amount must be positive, got %s", amount.String())
	}

	query := `
		UPDATE ledger_balances
		SET available = available + $1, updated_at = $2
		WHERE user_id = $3 AND asset_type = $4
	`

	result, err := ext.ExecContext(ctx, query, amount, time.Now(), userID, asset)
	if err != nil {
		return fmt.Errorf("failed to refund ledger balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read refund result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no ledger row to refund for user %s", userID)
	}

	return nil
}

// RecordWithdrawn increments the lifetime withdrawn counter on withdrawal
// completion. The available balance was already debited at request time.
func (r *LedgerRepository) RecordWithdrawn(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal) error {
	query := `
		UPDATE ledger_balances
		SET total_withdrawn = total_withdrawn + $1, updated_at = $2
		WHERE user_id = $3 AND asset_type = $4
	`

	if _, err := ext.ExecContext(ctx, query, amount, time.Now(), userID, asset); err != nil {
		return fmt.Errorf("failed to record withdrawn amount: %w", err)
	}

	return nil
}

// DB exposes the underlying handle for callers that open transactions
// spanning this repository and others.
func (r *LedgerRepository) DB() *sqlx.DB {
	return r.db
}
