package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerBalance is the authoritative per-user, per-asset balance row.
// Available is the only spendable figure; the lifetime counters are
// monotonically non-decreasing. The row must always satisfy
//
//	available >= 0
//	total_withdrawn + available <= total_earned + commission_earned
//
// which holds by construction because every mutation is a single
// conditional SQL statement.
type LedgerBalance struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	UserID           uuid.UUID       `json:"user_id" db:"user_id"`
	AssetType        AssetType       `json:"asset_type" db:"asset_type"`
	Available        decimal.Decimal `json:"available" db:"available"`
	TotalEarned      decimal.Decimal `json:"total_earned" db:"total_earned"`
	CommissionEarned decimal.Decimal `json:"commission_earned" db:"commission_earned"`
	TotalWithdrawn   decimal.Decimal `json:"total_withdrawn" db:"total_withdrawn"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// CreditKind selects which lifetime counter a credit increments alongside
// the available balance.
type CreditKind string

const (
	// CreditKindEarning covers round profit, pool claims and daily stipends
	CreditKindEarning CreditKind = "earning"
	// CreditKindCommission covers referral cascade payouts
	CreditKindCommission CreditKind = "commission"
)

// IsValid checks if the credit kind is known
func (k CreditKind) IsValid() bool {
	return k == CreditKindEarning || k == CreditKindCommission
}
