package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
	"github.com/softstake/softstake_service/pkg/logger"
)

// CommunityStore persists community level state, claims and stipends
type CommunityStore interface {
	GetStatus(ctx context.Context, userID uuid.UUID) (*entities.CommunityStatus, error)
	UpsertStatus(ctx context.Context, status *entities.CommunityStatus) error
	SetOverride(ctx context.Context, userID uuid.UUID, level *int) error
	SetInfluencer(ctx context.Context, userID uuid.UUID, influencer bool) error
	AddTotalEarned(ctx context.Context, ext sqlx.ExtContext, userID uuid.UUID, amount decimal.Decimal) error
	ListUserIDsWithLevel(ctx context.Context, min int) ([]uuid.UUID, error)
	CreatePoolClaim(ctx context.Context, ext sqlx.ExtContext, claim *entities.PoolClaim) error
	GetClaimedLevels(ctx context.Context, userID uuid.UUID) ([]int, error)
	GetPoolClaims(ctx context.Context, userID uuid.UUID) ([]*entities.PoolClaim, error)
	CreateDailyEarning(ctx context.Context, ext sqlx.ExtContext, record *entities.DailyEarningRecord) (bool, error)
	HasDailyEarning(ctx context.Context, userID uuid.UUID, date time.Time) (bool, error)
	GetDailyEarnings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.DailyEarningRecord, error)
}

// LevelSettingsRepository is the level configuration surface
type LevelSettingsRepository interface {
	GetLevelBands(ctx context.Context) ([]entities.LevelBand, error)
	GetLevelBand(ctx context.Context, level int) (*entities.LevelBand, error)
}

// TeamVolumeResolver computes a user's referral team volume
type TeamVolumeResolver interface {
	TeamVolume(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// TaskBonusRepository sums approved task bonus volume
type TaskBonusRepository interface {
	ApprovedBonusSum(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// CommunityService maintains community levels and pays their rewards.
// Levels are recomputed from live volume on every refresh, so they fall as
// well as rise; an admin override pins the effective level while the real
// classification keeps tracking volume underneath.
type CommunityService struct {
	communityRepo CommunityStore
	settingsRepo  LevelSettingsRepository
	referrals     TeamVolumeResolver
	tasks         TaskBonusRepository
	ledger        LedgerCreditor
	tx            TxRunner
	logger        *logger.Logger
}

// NewCommunityService creates a new community service
func NewCommunityService(
	communityRepo CommunityStore,
	settingsRepo LevelSettingsRepository,
	referrals TeamVolumeResolver,
	tasks TaskBonusRepository,
	ledger LedgerCreditor,
	tx TxRunner,
	log *logger.Logger,
) *CommunityService {
	return &CommunityService{
		communityRepo: communityRepo,
		settingsRepo:  settingsRepo,
		referrals:     referrals,
		tasks:         tasks,
		ledger:        ledger,
		tx:            tx,
		logger:        log,
	}
}

// RefreshStatus recomputes the user's classification from live team volume
// plus approved task bonuses, persists it and returns the full view. The
// effective level follows the real level unless an override pins it.
func (s *CommunityService) RefreshStatus(ctx context.Context, userID uuid.UUID) (*entities.CommunityStatusView, error) {
	status, err := s.communityRepo.GetStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	teamVolume, err := s.referrals.TeamVolume(ctx, userID)
	if err != nil {
		return nil, err
	}
	taskBonus, err := s.tasks.ApprovedBonusSum(ctx, userID)
	if err != nil {
		return nil, err
	}
	effectiveVolume := teamVolume.Add(taskBonus)

	bands, err := s.settingsRepo.GetLevelBands(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	status.RealLevel = ClassifyLevel(bands, effectiveVolume, status.IsInfluencer)
	status.TeamVolume = teamVolume
	status.VolumeRefreshed = &now
	if status.IsAdminOverride && status.OverrideLevel != nil {
		status.CurrentLevel = *status.OverrideLevel
	} else {
		status.CurrentLevel = status.RealLevel
	}

	if err := s.communityRepo.UpsertStatus(ctx, status); err != nil {
		return nil, err
	}

	var claimable []int
	if !status.IsAdminOverride {
		claimable, err = s.claimableLevels(ctx, userID, bands, effectiveVolume, status.IsInfluencer)
		if err != nil {
			return nil, err
		}
	}

	return &entities.CommunityStatusView{
		Status:          status,
		EffectiveVolume: effectiveVolume,
		TaskBonus:       taskBonus,
		ClaimableLevels: claimable,
	}, nil
}

func (s *CommunityService) claimableLevels(ctx context.Context, userID uuid.UUID, bands []entities.LevelBand, volume decimal.Decimal, influencer bool) ([]int, error) {
	claimed, err := s.communityRepo.GetClaimedLevels(ctx, userID)
	if err != nil {
		return nil, err
	}
	claimedSet := make(map[int]bool, len(claimed))
	for _, level := range claimed {
		claimedSet[level] = true
	}

	var claimable []int
	for _, level := range SurpassedLevels(bands, volume, influencer) {
		if !claimedSet[level] {
			claimable = append(claimable, level)
		}
	}
	return claimable, nil
}

// ClaimPool pays the one-time reward pool for a surpassed level. Claims are
// checked against the freshly refreshed classification, not the possibly
// pinned effective level, and are suspended entirely while an override is
// active.
func (s *CommunityService) ClaimPool(ctx context.Context, userID uuid.UUID, level int) (*entities.PoolClaim, error) {
	view, err := s.RefreshStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	if view.Status.IsAdminOverride {
		return nil, domainerrors.NotClaimableError(level, "admin override active")
	}
	if level <= 0 || level >= view.Status.RealLevel {
		return nil, domainerrors.NotClaimableError(level, "level not yet surpassed")
	}

	band, err := s.settingsRepo.GetLevelBand(ctx, level)
	if err != nil {
		return nil, err
	}
	if !band.RewardPool.IsPositive() {
		return nil, domainerrors.NotClaimableError(level, "level has no reward pool")
	}

	claim := &entities.PoolClaim{
		ID:        uuid.New(),
		UserID:    userID,
		Level:     level,
		Amount:    band.RewardPool,
		Status:    entities.ClaimStatusCompleted,
		CreatedAt: time.Now(),
	}

	err = s.tx.RunInTx(ctx, func(ext sqlx.ExtContext) error {
		if err := s.communityRepo.CreatePoolClaim(ctx, ext, claim); err != nil {
			return err
		}
		if err := s.ledger.Credit(ctx, ext, userID, entities.AssetUSDC, claim.Amount, entities.CreditKindEarning); err != nil {
			return err
		}
		return s.communityRepo.AddTotalEarned(ctx, ext, userID, claim.Amount)
	})
	if err != nil {
		if domainerrors.IsAlreadyExists(err) {
			return nil, domainerrors.NotClaimableError(level, "level already claimed")
		}
		return nil, err
	}

	s.logger.Info("pool claim paid", "user_id", userID, "level", level, "amount", claim.Amount.String())
	return claim, nil
}

// PreviewDaily lists the stipends a distribution for date would pay,
// without touching the ledger.
func (s *CommunityService) PreviewDaily(ctx context.Context, date time.Time) ([]*entities.DailyEarningPreview, error) {
	date = truncateToDay(date)

	userIDs, err := s.communityRepo.ListUserIDsWithLevel(ctx, 1)
	if err != nil {
		return nil, err
	}
	bandsByLevel, err := s.levelBandIndex(ctx)
	if err != nil {
		return nil, err
	}

	previews := make([]*entities.DailyEarningPreview, 0, len(userIDs))
	for _, userID := range userIDs {
		status, err := s.communityRepo.GetStatus(ctx, userID)
		if err != nil {
			return nil, err
		}
		band, ok := bandsByLevel[status.CurrentLevel]
		if !ok {
			continue
		}

		paid, err := s.communityRepo.HasDailyEarning(ctx, userID, date)
		if err != nil {
			return nil, err
		}

		previews = append(previews, &entities.DailyEarningPreview{
			UserID:          userID,
			Level:           status.CurrentLevel,
			Amount:          band.DailyAmount(),
			AlreadyCredited: paid,
		})
	}

	return previews, nil
}

// DistributeDaily pays the per-level stipend for one calendar date. The
// (user, date) unique row is the idempotency guard: re-running a date skips
// users already paid.
func (s *CommunityService) DistributeDaily(ctx context.Context, date time.Time) (*entities.DailyEarningResult, error) {
	date = truncateToDay(date)

	userIDs, err := s.communityRepo.ListUserIDsWithLevel(ctx, 1)
	if err != nil {
		return nil, err
	}
	bandsByLevel, err := s.levelBandIndex(ctx)
	if err != nil {
		return nil, err
	}

	result := &entities.DailyEarningResult{EarnDate: date, TotalAmount: decimal.Zero}
	for _, userID := range userIDs {
		status, err := s.communityRepo.GetStatus(ctx, userID)
		if err != nil {
			result.Failed++
			s.logger.Error("failed to load status for stipend", "user_id", userID, "error", err)
			continue
		}
		band, ok := bandsByLevel[status.CurrentLevel]
		if !ok {
			result.Skipped++
			continue
		}
		amount := band.DailyAmount()
		if !amount.IsPositive() {
			result.Skipped++
			continue
		}

		var inserted bool
		err = s.tx.RunInTx(ctx, func(ext sqlx.ExtContext) error {
			var err error
			inserted, err = s.communityRepo.CreateDailyEarning(ctx, ext, &entities.DailyEarningRecord{
				ID:        uuid.New(),
				UserID:    userID,
				EarnDate:  date,
				Level:     status.CurrentLevel,
				Amount:    amount,
				Credited:  true,
				CreatedAt: time.Now(),
			})
			if err != nil || !inserted {
				return err
			}
			if err := s.ledger.Credit(ctx, ext, userID, entities.AssetUSDC, amount, entities.CreditKindEarning); err != nil {
				return err
			}
			return s.communityRepo.AddTotalEarned(ctx, ext, userID, amount)
		})
		if err != nil {
			result.Failed++
			s.logger.Error("failed to pay daily stipend", "user_id", userID, "error", err)
			continue
		}
		if !inserted {
			result.Skipped++
			continue
		}

		result.Credited++
		result.TotalAmount = result.TotalAmount.Add(amount)
	}

	s.logger.Info("daily stipends distributed",
		"date", date.Format("2006-01-02"),
		"credited", result.Credited,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"total", result.TotalAmount.String())

	return result, nil
}

// SetOverride pins the user's effective level; a nil level restores
// tracking of the real classification.
func (s *CommunityService) SetOverride(ctx context.Context, userID uuid.UUID, level *int) error {
	if level != nil && *level < 0 {
		return domainerrors.ValidationError("level", "override level must not be negative")
	}
	if err := s.communityRepo.SetOverride(ctx, userID, level); err != nil {
		return err
	}
	if level != nil {
		s.logger.Info("level override set", "user_id", userID, "level", *level)
	} else {
		s.logger.Info("level override cleared", "user_id", userID)
	}
	return nil
}

// SetInfluencer toggles the reduced unlock thresholds for a user
func (s *CommunityService) SetInfluencer(ctx context.Context, userID uuid.UUID, influencer bool) error {
	if err := s.communityRepo.SetInfluencer(ctx, userID, influencer); err != nil {
		return err
	}
	s.logger.Info("influencer flag updated", "user_id", userID, "influencer", influencer)
	return nil
}

// GetPoolClaims returns a user's claim history
func (s *CommunityService) GetPoolClaims(ctx context.Context, userID uuid.UUID) ([]*entities.PoolClaim, error) {
	return s.communityRepo.GetPoolClaims(ctx, userID)
}

// GetDailyEarnings returns a user's stipend history
func (s *CommunityService) GetDailyEarnings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.DailyEarningRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.communityRepo.GetDailyEarnings(ctx, userID, limit, offset)
}

func (s *CommunityService) levelBandIndex(ctx context.Context) (map[int]entities.LevelBand, error) {
	bands, err := s.settingsRepo.GetLevelBands(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[int]entities.LevelBand, len(bands))
	for _, band := range bands {
		index[band.Level] = band
	}
	return index, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
