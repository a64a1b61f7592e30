package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the lifecycle state of a withdrawal request.
//
// pending -> processing -> completed
// pending -> processing -> failed
//
// A request left in processing means the outcome of the on-chain transfer
// was indeterminate (e.g. a timeout after broadcast); it is never resolved
// automatically and waits for operator reconciliation.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
)

// IsValid checks if the withdrawal status is known
func (s WithdrawalStatus) IsValid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusProcessing, WithdrawalStatusCompleted, WithdrawalStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status allows no further transitions
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusCompleted || s == WithdrawalStatusFailed
}

// WithdrawalRequest is a user's request to move available balance on-chain.
// Creation debits the available balance optimistically; a failed execution
// refunds that debit exactly once.
type WithdrawalRequest struct {
	ID                 uuid.UUID        `json:"id" db:"id"`
	UserID             uuid.UUID        `json:"user_id" db:"user_id"`
	AssetType          AssetType        `json:"asset_type" db:"asset_type"`
	Amount             decimal.Decimal  `json:"amount" db:"amount"`
	DestinationAddress string           `json:"destination_address" db:"destination_address"`
	Status             WithdrawalStatus `json:"status" db:"status"`
	TxHash             *string          `json:"tx_hash,omitempty" db:"tx_hash"`
	ErrorMessage       *string          `json:"error_message,omitempty" db:"error_message"`
	Refunded           bool             `json:"refunded" db:"refunded"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}

// RequestWithdrawalInput is the user-facing withdrawal payload
type RequestWithdrawalInput struct {
	UserID    uuid.UUID       `json:"-"`
	AssetType AssetType       `json:"asset_type" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
}

// RequestWithdrawalResponse acknowledges a withdrawal request; callers poll
// status afterwards.
type RequestWithdrawalResponse struct {
	WithdrawalID uuid.UUID        `json:"withdrawal_id"`
	Status       WithdrawalStatus `json:"status"`
	TxHash       *string          `json:"tx_hash,omitempty"`
}
