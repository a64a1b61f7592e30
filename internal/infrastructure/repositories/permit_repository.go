package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/softstake/softstake_service/internal/domain/entities"
)

// PermitRepository handles token permit persistence
type PermitRepository struct {
	db *sqlx.DB
}

// NewPermitRepository creates a new permit repository
func NewPermitRepository(db *sqlx.DB) *PermitRepository {
	return &PermitRepository{db: db}
}

// Create stores a new permit authorization
func (r *PermitRepository) Create(ctx context.Context, permit *entities.TokenPermit) error {
	query := `
		INSERT INTO token_permits (id, user_id, wallet_address, signature, deadline, consumed, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		permit.ID,
		permit.UserID,
		entities.NormalizeWalletAddress(permit.WalletAddress),
		permit.Signature,
		permit.Deadline,
		permit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create permit: %w", err)
	}

	return nil
}

// HasValidPermit reports whether the wallet has an unexpired, unconsumed
// permit on file.
func (r *PermitRepository) HasValidPermit(ctx context.Context, walletAddress string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM token_permits
			WHERE wallet_address = $1 AND consumed = false AND deadline > $2
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, entities.NormalizeWalletAddress(walletAddress), time.Now()); err != nil {
		return false, fmt.Errorf("failed to check permit: %w", err)
	}

	return exists, nil
}

// Consume marks the wallet's usable permits as consumed
func (r *PermitRepository) Consume(ctx context.Context, walletAddress string) error {
	query := `
		UPDATE token_permits
		SET consumed = true, consumed_at = $1
		WHERE wallet_address = $2 AND consumed = false
	`

	if _, err := r.db.ExecContext(ctx, query, time.Now(), entities.NormalizeWalletAddress(walletAddress)); err != nil {
		return fmt.Errorf("failed to consume permit: %w", err)
	}

	return nil
}
