package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
)

// UserRepository handles user persistence
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user. The referrer reference is fixed here and
// never updated afterwards.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (id, email, referral_code, referrer_id, is_admin, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.ReferralCode,
		user.ReferrerID,
		user.IsAdmin,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domainerrors.AlreadyExistsError("user")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	query := `
		SELECT id, email, wallet_address, referral_code, referrer_id, is_admin, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user entities.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("user")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetByWallet retrieves a user by bound wallet address
func (r *UserRepository) GetByWallet(ctx context.Context, address string) (*entities.User, error) {
	query := `
		SELECT id, email, wallet_address, referral_code, referrer_id, is_admin, is_active, created_at, updated_at
		FROM users
		WHERE wallet_address = $1
	`

	var user entities.User
	err := r.db.GetContext(ctx, &user, query, entities.NormalizeWalletAddress(address))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("user")
		}
		return nil, fmt.Errorf("failed to get user by wallet: %w", err)
	}

	return &user, nil
}

// GetByReferralCode retrieves a user by their referral code
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*entities.User, error) {
	query := `
		SELECT id, email, wallet_address, referral_code, referrer_id, is_admin, is_active, created_at, updated_at
		FROM users
		WHERE referral_code = $1
	`

	var user entities.User
	err := r.db.GetContext(ctx, &user, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("user")
		}
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}

	return &user, nil
}

// BindWallet binds a wallet address to a user. The partial unique index on
// wallet_address enforces one-wallet-one-user; a user who already has a
// wallet keeps it (the update only fills a NULL column).
func (r *UserRepository) BindWallet(ctx context.Context, userID uuid.UUID, address string) error {
	query := `
		UPDATE users
		SET wallet_address = $1, updated_at = $2
		WHERE id = $3 AND wallet_address IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, entities.NormalizeWalletAddress(address), time.Now(), userID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domainerrors.AlreadyExistsError("wallet binding")
		}
		return fmt.Errorf("failed to bind wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read bind result: %w", err)
	}
	if rows == 0 {
		return domainerrors.AlreadyExistsError("wallet binding")
	}

	return nil
}

// GetReferrerID returns the user's direct referrer, or nil when the user
// has none.
func (r *UserRepository) GetReferrerID(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	query := `SELECT referrer_id FROM users WHERE id = $1`

	var referrerID *uuid.UUID
	err := r.db.GetContext(ctx, &referrerID, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("user")
		}
		return nil, fmt.Errorf("failed to get referrer: %w", err)
	}

	return referrerID, nil
}

// GetChildren returns the users directly referred by the given users.
// Used by the breadth-first descendant traversal, one query per depth.
func (r *UserRepository) GetChildren(ctx context.Context, referrerIDs []uuid.UUID) ([]*entities.User, error) {
	if len(referrerIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, email, wallet_address, referral_code, referrer_id, is_admin, is_active, created_at, updated_at
		FROM users
		WHERE referrer_id = ANY($1)
	`

	var users []*entities.User
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(referrerIDs)); err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}

	return users, nil
}

// ListWalletBound returns all active users with a bound wallet address.
// This is the candidate set for a snapshot round; permit eligibility is
// checked separately.
func (r *UserRepository) ListWalletBound(ctx context.Context) ([]*entities.User, error) {
	query := `
		SELECT id, email, wallet_address, referral_code, referrer_id, is_admin, is_active, created_at, updated_at
		FROM users
		WHERE wallet_address IS NOT NULL AND is_active = true
		ORDER BY created_at
	`

	var users []*entities.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list wallet-bound users: %w", err)
	}

	return users, nil
}
