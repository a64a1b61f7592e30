package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
)

// CommunityRepository persists community level state, pool claims and the
// daily stipend ledger. Uniqueness constraints on (user, level) and
// (user, date) are the idempotency guards for claims and stipends.
type CommunityRepository struct {
	db *sqlx.DB
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db *sqlx.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// GetStatus retrieves a user's community status, returning a zero-valued
// row when the user has never been classified.
func (r *CommunityRepository) GetStatus(ctx context.Context, userID uuid.UUID) (*entities.CommunityStatus, error) {
	query := `
		SELECT user_id, real_level, current_level, is_admin_override, override_level,
		       is_influencer, team_volume, volume_refreshed_at, total_earned, created_at, updated_at
		FROM community_status
		WHERE user_id = $1
	`

	var status entities.CommunityStatus
	err := r.db.GetContext(ctx, &status, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			now := time.Now()
			return &entities.CommunityStatus{
				UserID:       userID,
				RealLevel:    0,
				CurrentLevel: 0,
				TeamVolume:   decimal.Zero,
				TotalEarned:  decimal.Zero,
				CreatedAt:    now,
				UpdatedAt:    now,
			}, nil
		}
		return nil, fmt.Errorf("failed to get community status: %w", err)
	}

	return &status, nil
}

// UpsertStatus writes the refreshed classification. Override fields are
// preserved as passed; callers are responsible for the pinning rules.
func (r *CommunityRepository) UpsertStatus(ctx context.Context, status *entities.CommunityStatus) error {
	query := `
		INSERT INTO community_status (user_id, real_level, current_level, is_admin_override, override_level,
		                              is_influencer, team_volume, volume_refreshed_at, total_earned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			real_level = EXCLUDED.real_level,
			current_level = EXCLUDED.current_level,
			is_admin_override = EXCLUDED.is_admin_override,
			override_level = EXCLUDED.override_level,
			is_influencer = EXCLUDED.is_influencer,
			team_volume = EXCLUDED.team_volume,
			volume_refreshed_at = EXCLUDED.volume_refreshed_at,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query,
		status.UserID, status.RealLevel, status.CurrentLevel, status.IsAdminOverride, status.OverrideLevel,
		status.IsInfluencer, status.TeamVolume, status.VolumeRefreshed, status.TotalEarned, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert community status: %w", err)
	}

	return nil
}

// SetOverride pins or unpins a user's current level
func (r *CommunityRepository) SetOverride(ctx context.Context, userID uuid.UUID, level *int) error {
	var query string
	var args []interface{}
	if level != nil {
		query = `
			UPDATE community_status
			SET is_admin_override = true, override_level = $2, current_level = $2, updated_at = $3
			WHERE user_id = $1
		`
		args = []interface{}{userID, *level, time.Now()}
	} else {
		query = `
			UPDATE community_status
			SET is_admin_override = false, override_level = NULL, current_level = real_level, updated_at = $2
			WHERE user_id = $1
		`
		args = []interface{}{userID, time.Now()}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set level override: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domainerrors.NotFoundError("community status")
	}

	return nil
}

// SetInfluencer toggles the influencer flag
func (r *CommunityRepository) SetInfluencer(ctx context.Context, userID uuid.UUID, influencer bool) error {
	query := `
		UPDATE community_status
		SET is_influencer = $2, updated_at = $3
		WHERE user_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, influencer, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set influencer flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domainerrors.NotFoundError("community status")
	}

	return nil
}

// AddTotalEarned accumulates stipend and pool payouts into the lifetime
// counter. Runs on ext so it joins the crediting transaction.
func (r *CommunityRepository) AddTotalEarned(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE community_status
		SET total_earned = total_earned + $2, updated_at = $3
		WHERE user_id = $1
	`

	if _, err := ext.ExecContext(ctx, query, userID, amount, time.Now()); err != nil {
		return fmt.Errorf("failed to add community earnings: %w", err)
	}

	return nil
}

// ListUserIDsWithLevel returns users whose effective level is at least min,
// for the daily stipend sweep.
func (r *CommunityRepository) ListUserIDsWithLevel(ctx context.Context, min int) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM community_status WHERE current_level >= $1`

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, min); err != nil {
		return nil, fmt.Errorf("failed to list leveled users: %w", err)
	}

	return ids, nil
}

// CreatePoolClaim inserts a claim row. The (user_id, level) unique
// constraint rejects a second claim for the same level.
func (r *CommunityRepository) CreatePoolClaim(ctx context.Context, ext sqlx.ExtContext, claim *entities.PoolClaim) error {
	query := `
		INSERT INTO pool_claims (id, user_id, level, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := ext.ExecContext(ctx, query, claim.ID, claim.UserID, claim.Level, claim.Amount, claim.Status, claim.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domainerrors.AlreadyExistsError("pool claim")
		}
		return fmt.Errorf("failed to create pool claim: %w", err)
	}

	return nil
}

// GetClaimedLevels returns the levels a user has already claimed
func (r *CommunityRepository) GetClaimedLevels(ctx context.Context, userID uuid.UUID) ([]int, error) {
	query := `SELECT level FROM pool_claims WHERE user_id = $1 ORDER BY level`

	var levels []int
	if err := r.db.SelectContext(ctx, &levels, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get claimed levels: %w", err)
	}

	return levels, nil
}

// GetPoolClaims returns a user's claim history newest first
func (r *CommunityRepository) GetPoolClaims(ctx context.Context, userID uuid.UUID) ([]*entities.PoolClaim, error) {
	query := `
		SELECT id, user_id, level, amount, status, created_at
		FROM pool_claims
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var claims []*entities.PoolClaim
	if err := r.db.SelectContext(ctx, &claims, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get pool claims: %w", err)
	}

	return claims, nil
}

// CreateDailyEarning inserts the stipend idempotency row, returning false
// when the (user, date) row already exists.
func (r *CommunityRepository) CreateDailyEarning(ctx context.Context, ext sqlx.ExtContext, record *entities.DailyEarningRecord) (bool, error) {
	query := `
		INSERT INTO daily_earnings (id, user_id, earn_date, level, amount, credited, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, earn_date) DO NOTHING
	`

	result, err := ext.ExecContext(ctx, query,
		record.ID, record.UserID, record.EarnDate, record.Level, record.Amount, record.Credited, record.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create daily earning: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// HasDailyEarning reports whether a user was already paid for a date
func (r *CommunityRepository) HasDailyEarning(ctx context.Context, userID uuid.UUID, date time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM daily_earnings WHERE user_id = $1 AND earn_date = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, date); err != nil {
		return false, fmt.Errorf("failed to check daily earning: %w", err)
	}

	return exists, nil
}

// GetDailyEarnings returns a user's stipend history newest first
func (r *CommunityRepository) GetDailyEarnings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.DailyEarningRecord, error) {
	query := `
		SELECT id, user_id, earn_date, level, amount, credited, created_at
		FROM daily_earnings
		WHERE user_id = $1
		ORDER BY earn_date DESC
		LIMIT $2 OFFSET $3
	`

	var records []*entities.DailyEarningRecord
	if err := r.db.SelectContext(ctx, &records, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get daily earnings: %w", err)
	}

	return records, nil
}
