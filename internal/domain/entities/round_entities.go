package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoundStatus is the lifecycle state of a snapshot round
type RoundStatus string

const (
	RoundStatusPending     RoundStatus = "pending"
	RoundStatusDistributed RoundStatus = "distributed"
	RoundStatusCancelled   RoundStatus = "cancelled"
)

// IsValid checks if the round status is known
func (s RoundStatus) IsValid() bool {
	return s == RoundStatusPending || s == RoundStatusDistributed || s == RoundStatusCancelled
}

// IsTerminal reports whether no further transitions are allowed
func (s RoundStatus) IsTerminal() bool {
	return s == RoundStatusDistributed || s == RoundStatusCancelled
}

// SnapshotRound is one batch computation of tiered profit. A round is
// created pending with its line items and either distributed (credits
// applied) or cancelled; both outcomes are terminal.
type SnapshotRound struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Status        RoundStatus     `json:"status" db:"status"`
	UserCount     int             `json:"user_count" db:"user_count"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	DistributedAt *time.Time      `json:"distributed_at,omitempty" db:"distributed_at"`
}

// RoundEntry is one user's immutable line item inside a round. The credited
// flag is the only mutable field and flips exactly once.
type RoundEntry struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	RoundID    uuid.UUID       `json:"round_id" db:"round_id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	Balance    decimal.Decimal `json:"balance" db:"balance"`
	TierID     uuid.UUID       `json:"tier_id" db:"tier_id"`
	TierName   string          `json:"tier_name" db:"tier_name"`
	Rate       decimal.Decimal `json:"rate" db:"rate"`
	Profit     decimal.Decimal `json:"profit" db:"profit"`
	Credited   bool            `json:"credited" db:"credited"`
	CreditedAt *time.Time      `json:"credited_at,omitempty" db:"credited_at"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// RoundPreview is returned by StartRound for operator inspection before any
// ledger is touched.
type RoundPreview struct {
	Round   *SnapshotRound `json:"round"`
	Entries []*RoundEntry  `json:"entries"`
	Skipped int            `json:"skipped"`
}

// DistributionResult summarizes one DistributeRound invocation
type DistributionResult struct {
	RoundID           uuid.UUID       `json:"round_id"`
	Credited          int             `json:"credited"`
	AlreadyCredited   int             `json:"already_credited"`
	Failed            int             `json:"failed"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	CommissionRows    int             `json:"commission_rows"`
	TotalCommission   decimal.Decimal `json:"total_commission"`
}

// ReferralCommission records one ancestor's cut of one line item's profit.
// Rows are immutable; commissions are credited at creation and never go
// through a second confirmation step.
type ReferralCommission struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	RoundID      uuid.UUID       `json:"round_id" db:"round_id"`
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	SourceUserID uuid.UUID       `json:"source_user_id" db:"source_user_id"`
	Depth        int             `json:"depth" db:"depth"`
	SourceProfit decimal.Decimal `json:"source_profit" db:"source_profit"`
	Rate         decimal.Decimal `json:"rate" db:"rate"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Credited     bool            `json:"credited" db:"credited"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
