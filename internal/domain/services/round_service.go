package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// snapshotConcurrency bounds the number of in-flight permit checks and
// balance reads during StartRound.
const snapshotConcurrency = 8

// TxRunner runs a function inside one database transaction
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ext sqlx.ExtContext) error) error
}

// SnapshotUserRepository lists the candidate users for a round
type SnapshotUserRepository interface {
	ListWalletBound(ctx context.Context) ([]*entities.User, error)
}

// PermitChecker reports whether a wallet holds a usable token permit
type PermitChecker interface {
	HasValidPermit(ctx context.Context, walletAddress string) (bool, error)
}

// RoundSettingsRepository is the engine configuration surface for rounds
type RoundSettingsRepository interface {
	GetPlatformSettings(ctx context.Context) (*entities.PlatformSettings, error)
	GetTierBands(ctx context.Context) ([]entities.TierBand, error)
	GetCommissionRates(ctx context.Context) (map[int]decimal.Decimal, error)
	SetLastDistributionAt(ctx context.Context, ext sqlx.ExtContext, at time.Time) error
}

// RoundStore persists rounds and line items
type RoundStore interface {
	CreateWithEntries(ctx context.Context, round *entities.SnapshotRound, entries []*entities.RoundEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.SnapshotRound, error)
	List(ctx context.Context, limit, offset int) ([]*entities.SnapshotRound, error)
	GetEntries(ctx context.Context, roundID uuid.UUID) ([]*entities.RoundEntry, error)
	MarkEntryCredited(ctx context.Context, ext sqlx.ExtContext, entryID uuid.UUID) (bool, error)
	SetDistributed(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID, at time.Time) error
	SetCancelled(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID) error
	DeleteUncreditedEntries(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID) (int64, error)
	HasPendingRound(ctx context.Context) (bool, error)
}

// CommissionStore persists cascade payouts
type CommissionStore interface {
	Create(ctx context.Context, ext sqlx.ExtContext, commission *entities.ReferralCommission) error
	DeleteByRound(ctx context.Context, ext sqlx.ExtContext, roundID uuid.UUID) (int64, error)
}

// LedgerCreditor applies ledger credits inside a caller transaction
type LedgerCreditor interface {
	Credit(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, asset entities.AssetType, amount decimal.Decimal, kind entities.CreditKind) error
}

// AncestorResolver resolves the upward referral chain
type AncestorResolver interface {
	AncestorChain(ctx context.Context, userID uuid.UUID, maxDepth int) ([]entities.Ancestor, error)
}

// FreshBalanceReader reads live on-chain balances for snapshots
type FreshBalanceReader interface {
	ReadFresh(ctx context.Context, address string) (decimal.Decimal, error)
}

// RoundService runs the snapshot-round profit engine: StartRound freezes
// eligible balances into immutable line items, DistributeRound credits each
// line item exactly once and cascades referral commissions off the full
// source profit. DistributeRound is safe to re-invoke; already-credited
// entries are skipped.
type RoundService struct {
	userRepo     SnapshotUserRepository
	permits      PermitChecker
	settingsRepo RoundSettingsRepository
	roundRepo    RoundStore
	commissions  CommissionStore
	ledger       LedgerCreditor
	referrals    AncestorResolver
	balances     FreshBalanceReader
	tx           TxRunner
	logger       *logger.Logger
}

// NewRoundService creates a new round service
func NewRoundService(
	userRepo SnapshotUserRepository,
	permits PermitChecker,
	settingsRepo RoundSettingsRepository,
	roundRepo RoundStore,
	commissions CommissionStore,
	ledger LedgerCreditor,
	referrals AncestorResolver,
	balances FreshBalanceReader,
	tx TxRunner,
	log *logger.Logger,
) *RoundService {
	return &RoundService{
		userRepo:     userRepo,
		permits:      permits,
		settingsRepo: settingsRepo,
		roundRepo:    roundRepo,
		commissions:  commissions,
		ledger:       ledger,
		referrals:    referrals,
		balances:     balances,
		tx:           tx,
		logger:       log,
	}
}

// StartRound snapshots eligible users into a new pending round. The
// cooldown gate measures from the last distribution, not the last attempt,
// so a failed attempt does not consume the interval.
func (s *RoundService) StartRound(ctx context.Context) (*entities.RoundPreview, error) {
	settings, err := s.settingsRepo.GetPlatformSettings(ctx)
	if err != nil {
		return nil, err
	}

	if settings.LastDistributionAt != nil {
		elapsed := time.Since(*settings.LastDistributionAt)
		interval := time.Duration(settings.DistributionIntervalSeconds) * time.Second
		if elapsed < interval {
			remaining := int64((interval - elapsed).Seconds())
			if remaining < 1 {
				remaining = 1
			}
			return nil, domainerrors.TooEarlyError(remaining)
		}
	}

	pending, err := s.roundRepo.HasPendingRound(ctx)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, domainerrors.AlreadyExistsError("pending round")
	}

	bands, err := s.settingsRepo.GetTierBands(ctx)
	if err != nil {
		return nil, err
	}
	if len(bands) == 0 {
		return nil, domainerrors.ValidationError("tiers", "no profit tiers configured")
	}

	users, err := s.userRepo.ListWalletBound(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	round := &entities.SnapshotRound{
		ID:          uuid.New(),
		Status:      entities.RoundStatusPending,
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
	}

	// Permit checks and balance reads have no ordering dependency, so they
	// run concurrently; results land in a slot per user to keep the
	// preview order stable.
	type snapshotRead struct {
		balance decimal.Decimal
		ok      bool
	}
	reads := make([]snapshotRead, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotConcurrency)
	for i, user := range users {
		g.Go(func() error {
			usable, err := s.permits.HasValidPermit(gctx, *user.WalletAddress)
			if err != nil {
				return err
			}
			if !usable {
				return nil
			}

			balance, err := s.balances.ReadFresh(gctx, *user.WalletAddress)
			if err != nil {
				s.logger.Warn("skipping user with unreadable balance", "user_id", user.ID, "error", err)
				return nil
			}

			reads[i] = snapshotRead{balance: balance, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []*entities.RoundEntry
	skipped := 0
	for i, user := range users {
		read := reads[i]
		if !read.ok {
			skipped++
			continue
		}

		tier := ClassifyTier(bands, read.balance)
		if tier == nil {
			skipped++
			continue
		}

		profit := read.balance.Mul(tier.Rate)
		if !profit.IsPositive() {
			skipped++
			continue
		}

		entries = append(entries, &entities.RoundEntry{
			ID:        uuid.New(),
			RoundID:   round.ID,
			UserID:    user.ID,
			Balance:   read.balance,
			TierID:    tier.ID,
			TierName:  tier.Name,
			Rate:      tier.Rate,
			Profit:    profit,
			CreatedAt: now,
		})
		round.TotalAmount = round.TotalAmount.Add(profit)
	}
	round.UserCount = len(entries)

	if err := s.roundRepo.CreateWithEntries(ctx, round, entries); err != nil {
		return nil, err
	}

	s.logger.Info("snapshot round created",
		"round_id", round.ID,
		"entries", len(entries),
		"skipped", skipped,
		"total", round.TotalAmount.String())

	return &entities.RoundPreview{Round: round, Entries: entries, Skipped: skipped}, nil
}

// DistributeRound credits every uncredited line item of a pending round and
// cascades referral commissions. Each entry is settled in its own
// transaction around the credited-flag flip, so a crash mid-distribution
// loses at most nothing: re-invoking resumes with the uncredited remainder.
func (s *RoundService) DistributeRound(ctx context.Context, roundID uuid.UUID) (*entities.DistributionResult, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status.IsTerminal() {
		return nil, domainerrors.RoundAlreadyProcessedError(string(round.Status))
	}

	rates, err := s.settingsRepo.GetCommissionRates(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.roundRepo.GetEntries(ctx, roundID)
	if err != nil {
		return nil, err
	}

	result := &entities.DistributionResult{
		RoundID:         roundID,
		TotalProfit:     decimal.Zero,
		TotalCommission: decimal.Zero,
	}

	for _, entry := range entries {
		if entry.Credited {
			result.AlreadyCredited++
			continue
		}

		entry := entry
		var flipped bool
		var commissionRows int
		commissionTotal := decimal.Zero

		err := s.tx.RunInTx(ctx, func(ext sqlx.ExtContext) error {
			var err error
			flipped, err = s.roundRepo.MarkEntryCredited(ctx, ext, entry.ID)
			if err != nil {
				return err
			}
			if !flipped {
				return nil
			}

			if err := s.ledger.Credit(ctx, ext, entry.UserID, entities.AssetUSDC, entry.Profit, entities.CreditKindEarning); err != nil {
				return err
			}

			commissionRows, commissionTotal, err = s.cascadeCommissions(ctx, ext, entry, rates)
			return err
		})
		if err != nil {
			result.Failed++
			s.logger.Error("failed to credit round entry",
				"round_id", roundID,
				"entry_id", entry.ID,
				"user_id", entry.UserID,
				"error", err)
			continue
		}
		if !flipped {
			result.AlreadyCredited++
			continue
		}

		result.Credited++
		result.TotalProfit = result.TotalProfit.Add(entry.Profit)
		result.CommissionRows += commissionRows
		result.TotalCommission = result.TotalCommission.Add(commissionTotal)
	}

	if result.Failed > 0 {
		s.logger.Warn("distribution incomplete, round left pending for retry",
			"round_id", roundID, "failed", result.Failed)
		return result, nil
	}

	err = s.tx.RunInTx(ctx, func(ext sqlx.ExtContext) error {
		now := time.Now()
		if err := s.roundRepo.SetDistributed(ctx, ext, roundID, now); err != nil {
			return err
		}
		return s.settingsRepo.SetLastDistributionAt(ctx, ext, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("round distributed",
		"round_id", roundID,
		"credited", result.Credited,
		"already_credited", result.AlreadyCredited,
		"total_profit", result.TotalProfit.String(),
		"total_commission", result.TotalCommission.String())

	return result, nil
}

// cascadeCommissions pays each ancestor of the entry's user their depth
// rate of the full entry profit. Missing wallet or level checks do not
// apply here; commission eligibility is purely positional.
func (s *RoundService) cascadeCommissions(ctx context.Context, ext sqlx.ExtContext, entry *entities.RoundEntry, rates map[int]decimal.Decimal) (int, decimal.Decimal, error) {
	ancestors, err := s.referrals.AncestorChain(ctx, entry.UserID, entities.MaxCommissionDepth)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to resolve ancestors: %w", err)
	}

	rows := 0
	total := decimal.Zero
	for _, ancestor := range ancestors {
		rate, ok := rates[ancestor.Depth]
		if !ok || !rate.IsPositive() {
			continue
		}

		amount := entry.Profit.Mul(rate)
		if !amount.IsPositive() {
			continue
		}

		commission := &entities.ReferralCommission{
			ID:           uuid.New(),
			RoundID:      entry.RoundID,
			UserID:       ancestor.UserID,
			SourceUserID: entry.UserID,
			Depth:        ancestor.Depth,
			SourceProfit: entry.Profit,
			Rate:         rate,
			Amount:       amount,
			Credited:     true,
			CreatedAt:    time.Now(),
		}
		if err := s.commissions.Create(ctx, ext, commission); err != nil {
			return 0, decimal.Zero, err
		}
		if err := s.ledger.Credit(ctx, ext, ancestor.UserID, entities.AssetUSDC, amount, entities.CreditKindCommission); err != nil {
			return 0, decimal.Zero, err
		}

		rows++
		total = total.Add(amount)
	}

	return rows, total, nil
}

// CancelRound cancels a pending round before any entry was credited,
// removing its line items and any commission rows in the same transaction
// as the status flip. A partially credited round cannot be cancelled: its
// commission rows back ledger credits already paid, so the only way
// forward is re-invoking DistributeRound for the remainder.
func (s *RoundService) CancelRound(ctx context.Context, roundID uuid.UUID) error {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return err
	}
	if round.Status.IsTerminal() {
		return domainerrors.RoundAlreadyProcessedError(string(round.Status))
	}

	entries, err := s.roundRepo.GetEntries(ctx, roundID)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Credited {
			return domainerrors.RoundAlreadyProcessedError("partially distributed")
		}
	}

	var removedEntries, removedCommissions int64
	err = s.tx.RunInTx(ctx, func(ext sqlx.ExtContext) error {
		if err := s.roundRepo.SetCancelled(ctx, ext, roundID); err != nil {
			return err
		}
		removedEntries, err = s.roundRepo.DeleteUncreditedEntries(ctx, ext, roundID)
		if err != nil {
			return err
		}
		removedCommissions, err = s.commissions.DeleteByRound(ctx, ext, roundID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("round cancelled",
		"round_id", roundID,
		"removed_entries", removedEntries,
		"removed_commissions", removedCommissions)
	return nil
}

// GetRound returns a round with its line items
func (s *RoundService) GetRound(ctx context.Context, roundID uuid.UUID) (*entities.SnapshotRound, []*entities.RoundEntry, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.roundRepo.GetEntries(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}
	return round, entries, nil
}

// ListRounds returns rounds newest first
func (s *RoundService) ListRounds(ctx context.Context, limit, offset int) ([]*entities.SnapshotRound, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.roundRepo.List(ctx, limit, offset)
}
