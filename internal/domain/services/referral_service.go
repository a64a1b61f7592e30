package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/pkg/logger"
)

// ReferralGraphRepository is the persistence surface for referral traversal
type ReferralGraphRepository interface {
	GetReferrerID(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	GetChildren(ctx context.Context, referrerIDs []uuid.UUID) ([]*entities.User, error)
}

// WalletBalanceReader reads a wallet's token balance, cached or fresh
type WalletBalanceReader interface {
	GetWalletBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// ReferralService resolves the referral graph in both directions: the
// bounded ancestor chain for the commission cascade and the bounded
// descendant tree for team volume. The referrer link is immutable, so the
// graph is a forest; the visited guards below make traversal robust even
// against corrupted data.
type ReferralService struct {
	userRepo ReferralGraphRepository
	balances WalletBalanceReader
	logger   *logger.Logger
}

// NewReferralService creates a new referral service
func NewReferralService(userRepo ReferralGraphRepository, balances WalletBalanceReader, log *logger.Logger) *ReferralService {
	return &ReferralService{
		userRepo: userRepo,
		balances: balances,
		logger:   log,
	}
}

// AncestorChain walks up from the user through at most maxDepth referrers.
// The user's direct referrer has depth 1. The chain stops early at a root
// or at a repeated node.
func (s *ReferralService) AncestorChain(ctx context.Context, userID uuid.UUID, maxDepth int) ([]entities.Ancestor, error) {
	visited := map[uuid.UUID]bool{userID: true}
	ancestors := make([]entities.Ancestor, 0, maxDepth)

	current := userID
	for depth := 1; depth <= maxDepth; depth++ {
		referrerID, err := s.userRepo.GetReferrerID(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve ancestor at depth %d: %w", depth, err)
		}
		if referrerID == nil {
			break
		}
		if visited[*referrerID] {
			s.logger.Warn("referral cycle detected", "user_id", userID, "repeated_id", *referrerID, "depth", depth)
			break
		}
		visited[*referrerID] = true

		ancestors = append(ancestors, entities.Ancestor{UserID: *referrerID, Depth: depth})
		current = *referrerID
	}

	return ancestors, nil
}

// Descendants walks down from the user through at most maxDepth referral
// generations, breadth first, one query per generation.
func (s *ReferralService) Descendants(ctx context.Context, userID uuid.UUID, maxDepth int) ([]entities.Descendant, error) {
	visited := map[uuid.UUID]bool{userID: true}
	var descendants []entities.Descendant

	frontier := []uuid.UUID{userID}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		children, err := s.userRepo.GetChildren(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve descendants at depth %d: %w", depth, err)
		}

		frontier = frontier[:0]
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true

			descendants = append(descendants, entities.Descendant{
				UserID:        child.ID,
				Depth:         depth,
				WalletAddress: child.WalletAddress,
			})
			frontier = append(frontier, child.ID)
		}
	}

	return descendants, nil
}

// TeamVolume sums the on-chain balances of every wallet-bound descendant
// within the team volume depth. Unreadable wallets are skipped rather than
// failing the whole aggregation.
func (s *ReferralService) TeamVolume(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	descendants, err := s.Descendants(ctx, userID, entities.TeamVolumeDepth)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, d := range descendants {
		if d.WalletAddress == nil || *d.WalletAddress == "" {
			continue
		}
		balance, err := s.balances.GetWalletBalance(ctx, *d.WalletAddress)
		if err != nil {
			s.logger.Warn("skipping unreadable wallet in team volume", "user_id", d.UserID, "error", err)
			continue
		}
		total = total.Add(balance)
	}

	return total, nil
}
