package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/pkg/logger"
)

// UserStore persists platform accounts
type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByWallet(ctx context.Context, address string) (*entities.User, error)
	GetByReferralCode(ctx context.Context, code string) (*entities.User, error)
	BindWallet(ctx context.Context, userID uuid.UUID, address string) error
}

// PermitStore persists token permits
type PermitStore interface {
	Create(ctx context.Context, permit *entities.TokenPermit) error
	HasValidPermit(ctx context.Context, walletAddress string) (bool, error)
}

// UserService handles registration, wallet binding and permit intake. The
// referrer reference is resolved from the invite code at registration and
// never changes afterwards.
type UserService struct {
	userRepo UserStore
	permits  PermitStore
	logger   *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo UserStore, permits PermitStore, log *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		permits:  permits,
		logger:   log,
	}
}

const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateReferralCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate referral code: %w", err)
	}
	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(referralCodeAlphabet[int(b)%len(referralCodeAlphabet)])
	}
	return sb.String(), nil
}

// Register creates a new account. An invalid invite code fails the
// registration rather than silently creating an orphan.
func (s *UserService) Register(ctx context.Context, req *entities.CreateUserRequest) (*entities.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, domainerrors.ValidationError("email", "email is required")
	}

	var referrerID *uuid.UUID
	if req.ReferralCode != "" {
		referrer, err := s.userRepo.GetByReferralCode(ctx, strings.ToUpper(strings.TrimSpace(req.ReferralCode)))
		if err != nil {
			if domainerrors.IsNotFound(err) {
				return nil, domainerrors.ValidationError("referral_code", "unknown referral code")
			}
			return nil, err
		}
		referrerID = &referrer.ID
	}

	code, err := generateReferralCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &entities.User{
		ID:           uuid.New(),
		Email:        email,
		ReferralCode: code,
		ReferrerID:   referrerID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "referred", referrerID != nil)
	return user, nil
}

// BindWallet attaches an EVM wallet address to the user. One wallet per
// user, one user per wallet, and the binding is permanent.
func (s *UserService) BindWallet(ctx context.Context, userID uuid.UUID, address string) (*entities.User, error) {
	if !common.IsHexAddress(address) {
		return nil, domainerrors.ValidationError("wallet_address", "not a valid EVM address")
	}

	if err := s.userRepo.BindWallet(ctx, userID, address); err != nil {
		return nil, err
	}

	s.logger.Info("wallet bound", "user_id", userID)
	return s.userRepo.GetByID(ctx, userID)
}

// GetUser returns an account by ID
func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*entities.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// SubmitPermit files a token permit for the user's bound wallet. The
// permit must outlive the present moment to be of any use.
func (s *UserService) SubmitPermit(ctx context.Context, userID uuid.UUID, signature string, deadline time.Time) (*entities.TokenPermit, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasWallet() {
		return nil, domainerrors.NoWalletBoundError()
	}
	if signature == "" {
		return nil, domainerrors.ValidationError("signature", "signature is required")
	}
	if !deadline.After(time.Now()) {
		return nil, domainerrors.ValidationError("deadline", "deadline must be in the future")
	}

	permit := &entities.TokenPermit{
		ID:            uuid.New(),
		UserID:        userID,
		WalletAddress: *user.WalletAddress,
		Signature:     signature,
		Deadline:      deadline,
		CreatedAt:     time.Now(),
	}
	if err := s.permits.Create(ctx, permit); err != nil {
		return nil, err
	}

	s.logger.Info("permit filed", "user_id", userID, "deadline", deadline)
	return permit, nil
}

// HasUsablePermit reports whether the user's wallet holds a usable permit
func (s *UserService) HasUsablePermit(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !user.HasWallet() {
		return false, nil
	}
	return s.permits.HasValidPermit(ctx, *user.WalletAddress)
}
