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
)

// SettingsRepository handles the admin-mutable engine configuration:
// distribution interval, withdrawal minimums, tier and level bands and the
// commission rate table.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetPlatformSettings retrieves the singleton settings row
func (r *SettingsRepository) GetPlatformSettings(ctx context.Context) (*entities.PlatformSettings, error) {
	query := `
		SELECT distribution_interval_seconds, last_distribution_at, updated_at
		FROM platform_settings
		WHERE id = 1
	`

	var settings entities.PlatformSettings
	err := r.db.GetContext(ctx, &settings, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("platform settings")
		}
		return nil, fmt.Errorf("failed to get platform settings: %w", err)
	}

	return &settings, nil
}

// UpdateDistributionInterval changes the round cooldown
func (r *SettingsRepository) UpdateDistributionInterval(ctx context.Context, seconds int64) error {
	query := `
		UPDATE platform_settings
		SET distribution_interval_seconds = $1, updated_at = $2
		WHERE id = 1
	`

	if _, err := r.db.ExecContext(ctx, query, seconds, time.Now()); err != nil {
		return fmt.Errorf("failed to update distribution interval: %w", err)
	}

	return nil
}

// SetLastDistributionAt re-arms the cooldown gate. Runs on ext so the
// profit engine can bind it to the round's distribution transaction.
func (r *SettingsRepository) SetLastDistributionAt(ctx context.Context, ext sqlx.ExtContext, at time.Time) error {
	query := `
		UPDATE platform_settings
		SET last_distribution_at = $1, updated_at = $1
		WHERE id = 1
	`

	if _, err := ext.ExecContext(ctx, query, at); err != nil {
		return fmt.Errorf("failed to set last distribution time: %w", err)
	}

	return nil
}

// GetTierBands retrieves all profit tiers ordered by lower bound
func (r *SettingsRepository) GetTierBands(ctx context.Context) ([]entities.TierBand, error) {
	query := `
		SELECT id, name, min_balance, max_balance, rate, created_at, updated_at
		FROM tier_bands
		ORDER BY min_balance
	`

	var bands []entities.TierBand
	if err := r.db.SelectContext(ctx, &bands, query); err != nil {
		return nil, fmt.Errorf("failed to get tier bands: %w", err)
	}

	return bands, nil
}

// UpsertTierBand creates or updates a profit tier
func (r *SettingsRepository) UpsertTierBand(ctx context.Context, band *entities.TierBand) error {
	query := `
		INSERT INTO tier_bands (id, name, min_balance, max_balance, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			min_balance = EXCLUDED.min_balance,
			max_balance = EXCLUDED.max_balance,
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at
	`

	if band.ID == uuid.Nil {
		band.ID = uuid.New()
	}
	if _, err := r.db.ExecContext(ctx, query, band.ID, band.Name, band.MinBalance, band.MaxBalance, band.Rate, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert tier band: %w", err)
	}

	return nil
}

// DeleteTierBand removes a profit tier
func (r *SettingsRepository) DeleteTierBand(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tier_bands WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete tier band: %w", err)
	}
	return nil
}

// GetLevelBands retrieves all community levels ordered ascending
func (r *SettingsRepository) GetLevelBands(ctx context.Context) ([]entities.LevelBand, error) {
	query := `
		SELECT id, level, unlock_threshold, influencer_threshold, reward_pool, daily_rate, created_at, updated_at
		FROM level_bands
		ORDER BY level
	`

	var bands []entities.LevelBand
	if err := r.db.SelectContext(ctx, &bands, query); err != nil {
		return nil, fmt.Errorf("failed to get level bands: %w", err)
	}

	return bands, nil
}

// GetLevelBand retrieves a single level's configuration
func (r *SettingsRepository) GetLevelBand(ctx context.Context, level int) (*entities.LevelBand, error) {
	query := `
		SELECT id, level, unlock_threshold, influencer_threshold, reward_pool, daily_rate, created_at, updated_at
		FROM level_bands
		WHERE level = $1
	`

	var band entities.LevelBand
	err := r.db.GetContext(ctx, &band, query, level)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError("level band")
		}
		return nil, fmt.Errorf("failed to get level band: %w", err)
	}

	return &band, nil
}

// UpsertLevelBand creates or updates a community level
func (r *SettingsRepository) UpsertLevelBand(ctx context.Context, band *entities.LevelBand) error {
	query := `
		INSERT INTO level_bands (id, level, unlock_threshold, influencer_threshold, reward_pool, daily_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (level) DO UPDATE SET
			unlock_threshold = EXCLUDED.unlock_threshold,
			influencer_threshold = EXCLUDED.influencer_threshold,
			reward_pool = EXCLUDED.reward_pool,
			daily_rate = EXCLUDED.daily_rate,
			updated_at = EXCLUDED.updated_at
	`

	if band.ID == uuid.Nil {
		band.ID = uuid.New()
	}
	if _, err := r.db.ExecContext(ctx, query, band.ID, band.Level, band.UnlockThreshold, band.InfluencerThreshold, band.RewardPool, band.DailyRate, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert level band: %w", err)
	}

	return nil
}

// GetCommissionRates returns the rate table keyed by ancestor depth
func (r *SettingsRepository) GetCommissionRates(ctx context.Context) (map[int]decimal.Decimal, error) {
	query := `SELECT depth, rate, updated_at FROM commission_rates ORDER BY depth`

	var rows []entities.CommissionRate
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get commission rates: %w", err)
	}

	rates := make(map[int]decimal.Decimal, len(rows))
	for _, row := range rows {
		rates[row.Depth] = row.Rate
	}

	return rates, nil
}

// SetCommissionRate sets the rate for one ancestor depth
func (r *SettingsRepository) SetCommissionRate(ctx context.Context, depth int, rate decimal.Decimal) error {
	if depth < 1 || depth > entities.MaxCommissionDepth {
		return domainerrors.ValidationError("depth", fmt.Sprintf("depth must be between 1 and %d", entities.MaxCommissionDepth))
	}

	query := `
		INSERT INTO commission_rates (depth, rate, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (depth) DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, depth, rate, time.Now()); err != nil {
		return fmt.Errorf("failed to set commission rate: %w", err)
	}

	return nil
}

// GetWithdrawalMinimum returns the per-asset withdrawal floor, zero when
// none is configured.
func (r *SettingsRepository) GetWithdrawalMinimum(ctx context.Context, asset entities.AssetType) (decimal.Decimal, error) {
	query := `SELECT minimum FROM withdrawal_minimums WHERE asset_type = $1`

	var minimum decimal.Decimal
	err := r.db.GetContext(ctx, &minimum, query, asset)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get withdrawal minimum: %w", err)
	}

	return minimum, nil
}

// SetWithdrawalMinimum sets the per-asset withdrawal floor
func (r *SettingsRepository) SetWithdrawalMinimum(ctx context.Context, asset entities.AssetType, minimum decimal.Decimal) error {
	query := `
		INSERT INTO withdrawal_minimums (asset_type, minimum, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset_type) DO UPDATE SET minimum = EXCLUDED.minimum, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, asset, minimum, time.Now()); err != nil {
		return fmt.Errorf("failed to set withdrawal minimum: %w", err)
	}

	return nil
}
