package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
)

// CommissionRepository persists referral commission rows. Rows carry
// enough detail (source user, depth, rate, source profit) to audit every
// cascade after the fact; only round cancellation removes them.
type CommissionRepository struct {
	db *sqlx.DB
}

// NewCommissionRepository creates a new commission repository
func NewCommissionRepository(db *sqlx.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// Create inserts one commission row. Runs on ext so the profit engine can
// bind the row and the matching ledger credit to one transaction.
func (r *CommissionRepository) Create(ctx context.Context, ext sqlx.ExtContext, commission *entities.ReferralCommission) error {
	query := `
		INSERT INTO referral_commissions (id, round_id, user_id, source_user_id, depth, source_profit, rate, amount, credited, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if _, err := ext.ExecContext(ctx, query,
		commission.ID, commission.RoundID, commission.UserID, commission.SourceUserID,
		commission.Depth, commission.SourceProfit, commission.Rate, commission.Amount,
		commission.Credited, commission.CreatedAt); err != nil {
		return fmt.Errorf("failed to create commission: %w", err)
	}

	return nil
}

// DeleteByRound removes every commission row tied to a round. Only round
// cancellation calls this, and cancellation is blocked once any entry was
// credited, so no deleted row ever backs a ledger credit.
func (r *CommissionRepository) DeleteByRound(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID) (int64, error) {
	query := `DELETE FROM referral_commissions WHERE round_id = $1`

	result, err := ext.ExecContext(ctx, query, roundID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete round commissions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected, nil
}

// GetByRound returns all commission rows generated by a round
func (r *CommissionRepository) GetByRound(ctx context.Context, roundID uuid.UUID) ([]*entities.ReferralCommission, error) {
	query := `
		SELECT id, round_id, user_id, source_user_id, depth, source_profit, rate, amount, credited, created_at
		FROM referral_commissions
		WHERE round_id = $1
		ORDER BY created_at
	`

	var commissions []*entities.ReferralCommission
	if err := r.db.SelectContext(ctx, &commissions, query, roundID); err != nil {
		return nil, fmt.Errorf("failed to get round commissions: %w", err)
	}

	return commissions, nil
}

// GetByUser returns a user's commission history newest first
func (r *CommissionRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.ReferralCommission, error) {
	query := `
		SELECT id, round_id, user_id, source_user_id, depth, source_profit, rate, amount, credited, created_at
		FROM referral_commissions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var commissions []*entities.ReferralCommission
	if err := r.db.SelectContext(ctx, &commissions, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get user commissions: %w", err)
	}

	return commissions, nil
}

// SumByUser returns a user's lifetime commission total
func (r *CommissionRepository) SumByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM referral_commissions
		WHERE user_id = $1 AND credited = true
	`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum user commissions: %w", err)
	}

	return total, nil
}
