package entities

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetType identifies a ledger asset
type AssetType string

const (
	AssetUSDC AssetType = "USDC"
)

// IsValid checks if the asset type is supported
func (a AssetType) IsValid() bool {
	return a == AssetUSDC
}

// TierBand is an admin-configured profit tier: balances in [MinBalance,
// MaxBalance) earn Rate per snapshot round. Bands must not overlap; values
// outside every band earn nothing.
type TierBand struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	MinBalance decimal.Decimal `json:"min_balance" db:"min_balance"`
	MaxBalance decimal.Decimal `json:"max_balance" db:"max_balance"`
	Rate       decimal.Decimal `json:"rate" db:"rate"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// Contains reports whether value falls inside the band's half-open range
func (b *TierBand) Contains(value decimal.Decimal) bool {
	return value.GreaterThanOrEqual(b.MinBalance) && value.LessThan(b.MaxBalance)
}

// SortTierBands orders bands ascending by lower bound. Classification
// iterates in this order so overlapping admin input still yields a single
// deterministic match.
func SortTierBands(bands []TierBand) {
	sort.Slice(bands, func(i, j int) bool {
		return bands[i].MinBalance.LessThan(bands[j].MinBalance)
	})
}

// LevelBand is an admin-configured community level. Thresholds form a
// staircase: a user's level is the highest band whose unlock threshold is
// at or below their effective volume. Influencers unlock against the
// reduced threshold column.
type LevelBand struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	Level               int             `json:"level" db:"level"`
	UnlockThreshold     decimal.Decimal `json:"unlock_threshold" db:"unlock_threshold"`
	InfluencerThreshold decimal.Decimal `json:"influencer_threshold" db:"influencer_threshold"`
	RewardPool          decimal.Decimal `json:"reward_pool" db:"reward_pool"`
	DailyRate           decimal.Decimal `json:"daily_rate" db:"daily_rate"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// ThresholdFor returns the unlock threshold applicable to the user
func (b *LevelBand) ThresholdFor(influencer bool) decimal.Decimal {
	if influencer {
		return b.InfluencerThreshold
	}
	return b.UnlockThreshold
}

// DailyAmount is the stipend paid per day at this level
func (b *LevelBand) DailyAmount() decimal.Decimal {
	return b.RewardPool.Mul(b.DailyRate)
}

// SortLevelBands orders level bands ascending by level number
func SortLevelBands(bands []LevelBand) {
	sort.Slice(bands, func(i, j int) bool {
		return bands[i].Level < bands[j].Level
	})
}

// CommissionRate maps an ancestor generation (1..MaxCommissionDepth) to the
// share of the source profit paid as referral commission.
type CommissionRate struct {
	Depth     int             `json:"depth" db:"depth"`
	Rate      decimal.Decimal `json:"rate" db:"rate"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

const (
	// MaxCommissionDepth bounds the upward commission cascade
	MaxCommissionDepth = 6
	// TeamVolumeDepth bounds the descendant aggregation for unlock volume
	TeamVolumeDepth = 3
)

// PlatformSettings holds the admin-mutable engine parameters that do not
// fit a band table: the round cooldown and the moment the cooldown was last
// re-armed.
type PlatformSettings struct {
	DistributionIntervalSeconds int64      `json:"distribution_interval_seconds" db:"distribution_interval_seconds"`
	LastDistributionAt          *time.Time `json:"last_distribution_at,omitempty" db:"last_distribution_at"`
	UpdatedAt                   time.Time  `json:"updated_at" db:"updated_at"`
}

// WithdrawalMinimum is the per-asset floor for withdrawal requests
type WithdrawalMinimum struct {
	AssetType AssetType       `json:"asset_type" db:"asset_type"`
	Minimum   decimal.Decimal `json:"minimum" db:"minimum"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
