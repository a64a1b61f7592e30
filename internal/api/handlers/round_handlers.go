package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/pkg/logger"
)

// RoundServiceInterface defines the round lifecycle operations
type RoundServiceInterface interface {
	StartRound(ctx context.Context) (*entities.RoundPreview, error)
	DistributeRound(ctx context.Context, roundID uuid.UUID) (*entities.DistributionResult, error)
	CancelRound(ctx context.Context, roundID uuid.UUID) error
	GetRound(ctx context.Context, roundID uuid.UUID) (*entities.SnapshotRound, []*entities.RoundEntry, error)
	ListRounds(ctx context.Context, limit, offset int) ([]*entities.SnapshotRound, error)
}

// RoundHandlers handles operator-driven snapshot rounds
type RoundHandlers struct {
	roundService RoundServiceInterface
	logger       *logger.Logger
}

// NewRoundHandlers creates a new RoundHandlers instance
func NewRoundHandlers(roundService RoundServiceInterface, log *logger.Logger) *RoundHandlers {
	return &RoundHandlers{
		roundService: roundService,
		logger:       log,
	}
}

// StartRound handles POST /api/v1/admin/rounds
func (h *RoundHandlers) StartRound(c *gin.Context) {
	preview, err := h.roundService.StartRound(c.Request.Context())
	if err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("round created",
		"round_id", preview.Round.ID,
		"user_count", preview.Round.UserCount,
		"total_amount", preview.Round.TotalAmount.String(),
	)
	SendCreated(c, preview)
}

// DistributeRound handles POST /api/v1/admin/rounds/:roundId/distribute
func (h *RoundHandlers) DistributeRound(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}

	result, err := h.roundService.DistributeRound(c.Request.Context(), roundID)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, result)
}

// CancelRound handles POST /api/v1/admin/rounds/:roundId/cancel
func (h *RoundHandlers) CancelRound(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}

	if err := h.roundService.CancelRound(c.Request.Context(), roundID); err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"round_id": roundID, "status": entities.RoundStatusCancelled})
}

// GetRound handles GET /api/v1/admin/rounds/:roundId
func (h *RoundHandlers) GetRound(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}

	round, entries, err := h.roundService.GetRound(c.Request.Context(), roundID)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, entities.RoundPreview{Round: round, Entries: entries})
}

// ListRounds handles GET /api/v1/admin/rounds
func (h *RoundHandlers) ListRounds(c *gin.Context) {
	limit, offset := paginationParams(c)

	rounds, err := h.roundService.ListRounds(c.Request.Context(), limit, offset)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"rounds": rounds})
}

func parseRoundID(c *gin.Context) (uuid.UUID, bool) {
	roundID, err := uuid.Parse(c.Param("roundId"))
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, "Invalid round ID format")
		return uuid.Nil, false
	}
	return roundID, true
}

// paginationParams reads limit/offset query parameters; services clamp
// the values they accept.
func paginationParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
