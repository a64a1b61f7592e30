package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TokenPermit is an off-chain token authorization on file for a wallet.
// A permit is usable while it is unexpired and unconsumed; round
// eligibility requires exactly one usable permit.
type TokenPermit struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	WalletAddress string     `json:"wallet_address" db:"wallet_address"`
	Signature     string     `json:"signature" db:"signature"`
	Deadline      time.Time  `json:"deadline" db:"deadline"`
	Consumed      bool       `json:"consumed" db:"consumed"`
	ConsumedAt    *time.Time `json:"consumed_at,omitempty" db:"consumed_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// IsUsable reports whether the permit is unexpired and unconsumed at t
func (p *TokenPermit) IsUsable(t time.Time) bool {
	return !p.Consumed && p.Deadline.After(t)
}

// TaskStatus is the review state of a task submission
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusApproved TaskStatus = "approved"
	TaskStatusRejected TaskStatus = "rejected"
)

// TaskSubmission is an externally-defined quest completion. Approved
// submissions contribute their bonus volume to the user's unlock progress.
type TaskSubmission struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	TaskName    string          `json:"task_name" db:"task_name"`
	BonusVolume decimal.Decimal `json:"bonus_volume" db:"bonus_volume"`
	Status      TaskStatus      `json:"status" db:"status"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
