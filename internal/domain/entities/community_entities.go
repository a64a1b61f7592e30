package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommunityStatus tracks a user's community level state. RealLevel is
// always the staircase classification of effective volume; CurrentLevel
// follows it unless an admin override pins it. TeamVolume is a display
// cache refreshed on every status query.
type CommunityStatus struct {
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	RealLevel       int             `json:"real_level" db:"real_level"`
	CurrentLevel    int             `json:"current_level" db:"current_level"`
	IsAdminOverride bool            `json:"is_admin_override" db:"is_admin_override"`
	OverrideLevel   *int            `json:"override_level,omitempty" db:"override_level"`
	IsInfluencer    bool            `json:"is_influencer" db:"is_influencer"`
	TeamVolume      decimal.Decimal `json:"team_volume" db:"team_volume"`
	VolumeRefreshed *time.Time      `json:"volume_refreshed_at,omitempty" db:"volume_refreshed_at"`
	TotalEarned     decimal.Decimal `json:"total_earned" db:"total_earned"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// ClaimStatus is the lifecycle state of a pool claim
type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusCompleted ClaimStatus = "completed"
)

// PoolClaim is a one-time reward claim for a surpassed community level.
// Unique per (user, level).
type PoolClaim struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Level     int             `json:"level" db:"level"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Status    ClaimStatus     `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// DailyEarningRecord is the idempotency guard for the daily stipend: one
// row per (user, calendar date).
type DailyEarningRecord struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	EarnDate  time.Time       `json:"earn_date" db:"earn_date"`
	Level     int             `json:"level" db:"level"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Credited  bool            `json:"credited" db:"credited"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// CommunityStatusView is the status payload returned to users: persisted
// state plus the freshly computed volume figures and claimable levels.
type CommunityStatusView struct {
	Status          *CommunityStatus `json:"status"`
	EffectiveVolume decimal.Decimal  `json:"effective_volume"`
	TaskBonus       decimal.Decimal  `json:"task_bonus"`
	ClaimableLevels []int            `json:"claimable_levels"`
}

// DailyEarningPreview is one would-be stipend line from a preview run
type DailyEarningPreview struct {
	UserID          uuid.UUID       `json:"user_id"`
	Level           int             `json:"level"`
	Amount          decimal.Decimal `json:"amount"`
	AlreadyCredited bool            `json:"already_credited"`
}

// DailyEarningResult summarizes one distribution run
type DailyEarningResult struct {
	EarnDate    time.Time       `json:"earn_date"`
	Credited    int             `json:"credited"`
	Skipped     int             `json:"skipped"`
	Failed      int             `json:"failed"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
