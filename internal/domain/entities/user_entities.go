package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a platform account. A user binds at most one wallet and
// the wallet binds at most one user; the referrer reference is set at
// registration and never changes afterwards.
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	WalletAddress *string    `json:"wallet_address,omitempty" db:"wallet_address"`
	ReferralCode  string     `json:"referral_code" db:"referral_code"`
	ReferrerID    *uuid.UUID `json:"referrer_id,omitempty" db:"referrer_id"`
	IsAdmin       bool       `json:"is_admin" db:"is_admin"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// HasWallet reports whether the user has a bound wallet address
func (u *User) HasWallet() bool {
	return u.WalletAddress != nil && *u.WalletAddress != ""
}

// NormalizeWalletAddress lowercases an EVM address for storage so the
// one-wallet-one-user uniqueness constraint is case-insensitive.
func NormalizeWalletAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// CreateUserRequest is the registration payload
type CreateUserRequest struct {
	Email        string `json:"email" validate:"required,email"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// BindWalletRequest binds a wallet address to the authenticated user
type BindWalletRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
}

// Ancestor is one hop of a user's upward referral chain
type Ancestor struct {
	UserID uuid.UUID `json:"user_id"`
	Depth  int       `json:"depth"`
}

// Descendant is one member of a user's downward referral tree
type Descendant struct {
	UserID        uuid.UUID `json:"user_id"`
	Depth         int       `json:"depth"`
	WalletAddress *string   `json:"wallet_address,omitempty"`
}
