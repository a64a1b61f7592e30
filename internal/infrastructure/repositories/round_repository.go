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

// RoundRepository persists snapshot rounds and their per-user line items.
// Line items are immutable except for the credited flag, which flips exactly
// once via a conditional update.
type RoundRepository struct {
	db *sqlx.DB
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db *sqlx.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

// CreateWithEntries persists a pending round and all its line items in one
// transaction. Either the whole preview lands or none of it does.
func (r *RoundRepository) CreateWithEntries(ctx context.Context, round *entities.SnapshotRound, entries []*entities.RoundEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	roundQuery := `
		INSERT INTO snapshot_rounds (id, status, user_count, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, roundQuery, round.ID, round.Status, round.UserCount, round.TotalAmount, round.CreatedAt); err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}

	entryQuery := `
		INSERT INTO round_entries (id, round_id, user_id, balance, tier_id, tier_name, rate, profit, credited, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, entryQuery,
			entry.ID, entry.RoundID, entry.UserID, entry.Balance,
			entry.TierID, entry.TierName, entry.Rate, entry.Profit, entry.CreatedAt); err != nil {
			return fmt.Errorf("failed to create round entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit round creation: %w", err)
	}

	return nil
}

// GetByID retrieves a round header
func (r *RoundRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.SnapshotRound, error) {
	query := `
		SELECT id, status, user_count, total_amount, created_at, distributed_at
		FROM snapshot_rounds
		WHERE id = $1
	`

	var round entities.SnapshotRound
	err := r.db.GetContext(ctx, &round, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("round")
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	return &round, nil
}

// List returns rounds newest first
func (r *RoundRepository) List(ctx context.Context, limit, offset int) ([]*entities.SnapshotRound, error) {
	query := `
		SELECT id, status, user_count, total_amount, created_at, distributed_at
		FROM snapshot_rounds
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var rounds []*entities.SnapshotRound
	if err := r.db.SelectContext(ctx, &rounds, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}

	return rounds, nil
}

// GetEntries returns all line items of a round
func (r *RoundRepository) GetEntries(ctx context.Context, roundID uuid.UUID) ([]*entities.RoundEntry, error) {
	query := `
		SELECT id, round_id, user_id, balance, tier_id, tier_name, rate, profit, credited, credited_at, created_at
		FROM round_entries
		WHERE round_id = $1
		ORDER BY created_at
	`

	var entries []*entities.RoundEntry
	if err := r.db.SelectContext(ctx, &entries, query, roundID); err != nil {
		return nil, fmt.Errorf("failed to get round entries: %w", err)
	}

	return entries, nil
}

// GetUserEntries returns a user's line items newest first
func (r *RoundRepository) GetUserEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.RoundEntry, error) {
	query := `
		SELECT id, round_id, user_id, balance, tier_id, tier_name, rate, profit, credited, credited_at, created_at
		FROM round_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var entries []*entities.RoundEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get user round entries: %w", err)
	}

	return entries, nil
}

// MarkEntryCredited flips the credited flag, returning false when another
// worker already flipped it. This conditional update is the serialization
// point that makes per-entry crediting exactly-once.
func (r *RoundRepository) MarkEntryCredited(ctx context.Context, ext sqlx.ExtContext, entryID uuid.UUID) (bool, error) {
	query := `
		UPDATE round_entries
		SET credited = true, credited_at = $2
		WHERE id = $1 AND credited = false
	`

	result, err := ext.ExecContext(ctx, query, entryID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to mark entry credited: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// SetDistributed moves a pending round to its distributed terminal state
func (r *RoundRepository) SetDistributed(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID, at time.Time) error {
	query := `
		UPDATE snapshot_rounds
		SET status = $2, distributed_at = $3
		WHERE id = $1 AND status = $4
	`

	result, err := ext.ExecContext(ctx, query, roundID, entities.RoundStatusDistributed, at, entities.RoundStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark round distributed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domainerrors.ErrRoundAlreadyProcessed
	}

	metrics.RoundsDistributed.Inc()
	return nil
}

// SetCancelled moves a pending round to its cancelled terminal state.
// Runs on ext so the caller can delete the round's line items in the same
// transaction.
func (r *RoundRepository) SetCancelled(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID) error {
	query := `
		UPDATE snapshot_rounds
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	result, err := ext.ExecContext(ctx, query, roundID, entities.RoundStatusCancelled, entities.RoundStatusPending)
	if err != nil {
		return fmt.Errorf("failed to cancel round: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domainerrors.ErrRoundAlreadyProcessed
	}

	return nil
}

// DeleteUncreditedEntries removes a cancelled round's unpaid line items.
// Credited rows are never touched; they back ledger credits already made.
func (r *RoundRepository) DeleteUncreditedEntries(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID) (int64, error) {
	query := `DELETE FROM round_entries WHERE round_id = $1 AND credited = false`

	result, err := ext.ExecContext(ctx, query, roundID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete round entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected, nil
}

// HasPendingRound reports whether an undistributed round exists
func (r *RoundRepository) HasPendingRound(ctx context.Context) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM snapshot_rounds WHERE status = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, entities.RoundStatusPending); err != nil {
		return false, fmt.Errorf("failed to check pending rounds: %w", err)
	}

	return exists, nil
}
