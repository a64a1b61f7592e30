package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/pkg/logger"
)

// SettingsRepositoryInterface defines the admin-mutable engine parameters
type SettingsRepositoryInterface interface {
	GetPlatformSettings(ctx context.Context) (*entities.PlatformSettings, error)
	UpdateDistributionInterval(ctx context.Context, seconds int64) error
	GetTierBands(ctx context.Context) ([]entities.TierBand, error)
	UpsertTierBand(ctx context.Context, band *entities.TierBand) error
	DeleteTierBand(ctx context.Context, id uuid.UUID) error
	GetLevelBands(ctx context.Context) ([]entities.LevelBand, error)
	UpsertLevelBand(ctx context.Context, band *entities.LevelBand) error
	GetCommissionRates(ctx context.Context) (map[int]decimal.Decimal, error)
	SetCommissionRate(ctx context.Context, depth int, rate decimal.Decimal) error
	GetWithdrawalMinimum(ctx context.Context, asset entities.AssetType) (decimal.Decimal, error)
	SetWithdrawalMinimum(ctx context.Context, asset entities.AssetType, minimum decimal.Decimal) error
}

// SettingsHandlers handles platform configuration endpoints
type SettingsHandlers struct {
	settingsRepo SettingsRepositoryInterface
	logger       *logger.Logger
}

// NewSettingsHandlers creates a new SettingsHandlers instance
func NewSettingsHandlers(settingsRepo SettingsRepositoryInterface, log *logger.Logger) *SettingsHandlers {
	return &SettingsHandlers{
		settingsRepo: settingsRepo,
		logger:       log,
	}
}

// GetSettings handles GET /api/v1/admin/settings
func (h *SettingsHandlers) GetSettings(c *gin.Context) {
	settings, err := h.settingsRepo.GetPlatformSettings(c.Request.Context())
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, settings)
}

// UpdateInterval handles PUT /api/v1/admin/settings/interval
func (h *SettingsHandlers) UpdateInterval(c *gin.Context) {
	var req struct {
		IntervalSeconds int64 `json:"interval_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}
	if req.IntervalSeconds <= 0 {
		SendInvalidField(c, "interval_seconds", "Interval must be positive")
		return
	}

	if err := h.settingsRepo.UpdateDistributionInterval(c.Request.Context(), req.IntervalSeconds); err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("distribution interval updated", "interval_seconds", req.IntervalSeconds)
	SendSuccess(c, gin.H{"interval_seconds": req.IntervalSeconds})
}

// tierBandRequest carries decimal fields as strings so precision survives
// the JSON round trip.
type tierBandRequest struct {
	ID         *uuid.UUID `json:"id,omitempty"`
	Name       string     `json:"name"`
	MinBalance string     `json:"min_balance"`
	MaxBalance string     `json:"max_balance"`
	Rate       string     `json:"rate"`
}

// ListTierBands handles GET /api/v1/admin/tiers
func (h *SettingsHandlers) ListTierBands(c *gin.Context) {
	bands, err := h.settingsRepo.GetTierBands(c.Request.Context())
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"tiers": bands})
}

// UpsertTierBand handles PUT /api/v1/admin/tiers
func (h *SettingsHandlers) UpsertTierBand(c *gin.Context) {
	var req tierBandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}
	if req.Name == "" {
		SendInvalidField(c, "name", "Tier name is required")
		return
	}

	minBalance, err := decimal.NewFromString(req.MinBalance)
	if err != nil {
		SendInvalidField(c, "min_balance", "Must be a decimal string")
		return
	}
	maxBalance, err := decimal.NewFromString(req.MaxBalance)
	if err != nil {
		SendInvalidField(c, "max_balance", "Must be a decimal string")
		return
	}
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		SendInvalidField(c, "rate", "Must be a decimal string")
		return
	}
	if !maxBalance.GreaterThan(minBalance) {
		SendInvalidField(c, "max_balance", "Upper bound must exceed lower bound")
		return
	}
	if rate.IsNegative() {
		SendInvalidField(c, "rate", "Rate cannot be negative")
		return
	}

	band := &entities.TierBand{
		Name:       req.Name,
		MinBalance: minBalance,
		MaxBalance: maxBalance,
		Rate:       rate,
	}
	if req.ID != nil {
		band.ID = *req.ID
	}

	if err := h.settingsRepo.UpsertTierBand(c.Request.Context(), band); err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("tier band upserted", "tier_id", band.ID, "name", band.Name)
	SendSuccess(c, band)
}

// DeleteTierBand handles DELETE /api/v1/admin/tiers/:tierId
func (h *SettingsHandlers) DeleteTierBand(c *gin.Context) {
	tierID, err := uuid.Parse(c.Param("tierId"))
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, "Invalid tier ID format")
		return
	}

	if err := h.settingsRepo.DeleteTierBand(c.Request.Context(), tierID); err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"tier_id": tierID})
}

type levelBandRequest struct {
	Level               int    `json:"level"`
	UnlockThreshold     string `json:"unlock_threshold"`
	InfluencerThreshold string `json:"influencer_threshold"`
	RewardPool          string `json:"reward_pool"`
	DailyRate           string `json:"daily_rate"`
}

// ListLevelBands handles GET /api/v1/admin/levels
func (h *SettingsHandlers) ListLevelBands(c *gin.Context) {
	bands, err := h.settingsRepo.GetLevelBands(c.Request.Context())
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"levels": bands})
}

// UpsertLevelBand handles PUT /api/v1/admin/levels
func (h *SettingsHandlers) UpsertLevelBand(c *gin.Context) {
	var req levelBandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}
	if req.Level < 1 {
		SendInvalidField(c, "level", "Level must be a positive integer")
		return
	}

	unlock, err := decimal.NewFromString(req.UnlockThreshold)
	if err != nil {
		SendInvalidField(c, "unlock_threshold", "Must be a decimal string")
		return
	}
	influencer, err := decimal.NewFromString(req.InfluencerThreshold)
	if err != nil {
		SendInvalidField(c, "influencer_threshold", "Must be a decimal string")
		return
	}
	pool, err := decimal.NewFromString(req.RewardPool)
	if err != nil {
		SendInvalidField(c, "reward_pool", "Must be a decimal string")
		return
	}
	dailyRate, err := decimal.NewFromString(req.DailyRate)
	if err != nil {
		SendInvalidField(c, "daily_rate", "Must be a decimal string")
		return
	}

	band := &entities.LevelBand{
		Level:               req.Level,
		UnlockThreshold:     unlock,
		InfluencerThreshold: influencer,
		RewardPool:          pool,
		DailyRate:           dailyRate,
	}

	if err := h.settingsRepo.UpsertLevelBand(c.Request.Context(), band); err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("level band upserted", "level", band.Level)
	SendSuccess(c, band)
}

// ListCommissionRates handles GET /api/v1/admin/commission-rates
func (h *SettingsHandlers) ListCommissionRates(c *gin.Context) {
	rates, err := h.settingsRepo.GetCommissionRates(c.Request.Context())
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"rates": rates})
}

// SetCommissionRate handles PUT /api/v1/admin/commission-rates
func (h *SettingsHandlers) SetCommissionRate(c *gin.Context) {
	var req struct {
		Depth int    `json:"depth"`
		Rate  string `json:"rate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		SendInvalidField(c, "rate", "Must be a decimal string")
		return
	}
	if rate.IsNegative() {
		SendInvalidField(c, "rate", "Rate cannot be negative")
		return
	}

	if err := h.settingsRepo.SetCommissionRate(c.Request.Context(), req.Depth, rate); err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("commission rate set", "depth", req.Depth, "rate", rate.String())
	SendSuccess(c, gin.H{"depth": req.Depth, "rate": rate})
}

// GetWithdrawalMinimum handles GET /api/v1/admin/withdrawal-minimums/:asset
func (h *SettingsHandlers) GetWithdrawalMinimum(c *gin.Context) {
	asset := entities.AssetType(c.Param("asset"))
	if !asset.IsValid() {
		SendInvalidField(c, "asset", "Unsupported asset type")
		return
	}

	minimum, err := h.settingsRepo.GetWithdrawalMinimum(c.Request.Context(), asset)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"asset_type": asset, "minimum": minimum})
}

// SetWithdrawalMinimum handles PUT /api/v1/admin/withdrawal-minimums
func (h *SettingsHandlers) SetWithdrawalMinimum(c *gin.Context) {
	var req struct {
		AssetType entities.AssetType `json:"asset_type"`
		Minimum   string             `json:"minimum"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}
	if !req.AssetType.IsValid() {
		SendInvalidField(c, "asset_type", "Unsupported asset type")
		return
	}

	minimum, err := decimal.NewFromString(req.Minimum)
	if err != nil || minimum.IsNegative() {
		SendInvalidField(c, "minimum", "Must be a non-negative decimal string")
		return
	}

	if err := h.settingsRepo.SetWithdrawalMinimum(c.Request.Context(), req.AssetType, minimum); err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("withdrawal minimum set", "asset_type", req.AssetType, "minimum", minimum.String())
	SendSuccess(c, gin.H{"asset_type": req.AssetType, "minimum": minimum})
}
