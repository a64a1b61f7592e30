package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/pkg/logger"
)

// ReferralServiceInterface defines the referral graph read operations
type ReferralServiceInterface interface {
	Descendants(ctx context.Context, userID uuid.UUID, maxDepth int) ([]entities.Descendant, error)
	TeamVolume(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// ReferralHandlers serves a user's referral tree and volume
type ReferralHandlers struct {
	referralService ReferralServiceInterface
	logger          *logger.Logger
}

// NewReferralHandlers creates a new ReferralHandlers instance
func NewReferralHandlers(referralService ReferralServiceInterface, log *logger.Logger) *ReferralHandlers {
	return &ReferralHandlers{
		referralService: referralService,
		logger:          log,
	}
}

// GetTeam handles GET /api/v1/referrals/team
func (h *ReferralHandlers) GetTeam(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	members, err := h.referralService.Descendants(c.Request.Context(), userID, entities.TeamVolumeDepth)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	volume, err := h.referralService.TeamVolume(c.Request.Context(), userID)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, gin.H{
		"members":     members,
		"team_volume": volume,
	})
}
