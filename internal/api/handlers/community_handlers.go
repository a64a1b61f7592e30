package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/pkg/logger"
)

// CommunityServiceInterface defines community level operations
type CommunityServiceInterface interface {
	RefreshStatus(ctx context.Context, userID uuid.UUID) (*entities.CommunityStatusView, error)
	ClaimPool(ctx context.Context, userID uuid.UUID, level int) (*entities.PoolClaim, error)
	GetPoolClaims(ctx context.Context, userID uuid.UUID) ([]*entities.PoolClaim, error)
	GetDailyEarnings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.DailyEarningRecord, error)
	PreviewDaily(ctx context.Context, date time.Time) ([]*entities.DailyEarningPreview, error)
	DistributeDaily(ctx context.Context, date time.Time) (*entities.DailyEarningResult, error)
	SetOverride(ctx context.Context, userID uuid.UUID, level *int) error
	SetInfluencer(ctx context.Context, userID uuid.UUID, influencer bool) error
}

// TaskServiceInterface defines quest submission operations
type TaskServiceInterface interface {
	Submit(ctx context.Context, userID uuid.UUID, taskName string, bonusVolume decimal.Decimal) (*entities.TaskSubmission, error)
	Review(ctx context.Context, id uuid.UUID, approve bool) (*entities.TaskSubmission, error)
	ListUserTasks(ctx context.Context, userID uuid.UUID) ([]*entities.TaskSubmission, error)
	ListPending(ctx context.Context, limit, offset int) ([]*entities.TaskSubmission, error)
}

// CommunityHandlers handles community status, pool claims, daily stipends
// and task submissions
type CommunityHandlers struct {
	communityService CommunityServiceInterface
	taskService      TaskServiceInterface
	logger           *logger.Logger
}

// NewCommunityHandlers creates a new CommunityHandlers instance
func NewCommunityHandlers(communityService CommunityServiceInterface, taskService TaskServiceInterface, log *logger.Logger) *CommunityHandlers {
	return &CommunityHandlers{
		communityService: communityService,
		taskService:      taskService,
		logger:           log,
	}
}

// GetStatus handles GET /api/v1/community/status
func (h *CommunityHandlers) GetStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := h.communityService.RefreshStatus(c.Request.Context(), userID)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, view)
}

// ClaimPool handles POST /api/v1/community/claims
func (h *CommunityHandlers) ClaimPool(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req struct {
		Level int `json:"level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}
	if req.Level < 1 {
		SendInvalidField(c, "level", "Level must be a positive integer")
		return
	}

	claim, err := h.communityService.ClaimPool(c.Request.Context(), userID, req.Level)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("pool claimed", "user_id", userID, "level", req.Level, "amount", claim.Amount.String())
	SendCreated(c, claim)
}

// GetPoolClaims handles GET /api/v1/community/claims
func (h *CommunityHandlers) GetPoolClaims(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	claims, err := h.communityService.GetPoolClaims(c.Request.Context(), userID)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"claims": claims})
}

// GetDailyEarnings handles GET /api/v1/community/daily-earnings
func (h *CommunityHandlers) GetDailyEarnings(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	limit, offset := paginationParams(c)

	earnings, err := h.communityService.GetDailyEarnings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"earnings": earnings})
}

// SubmitTask handles POST /api/v1/community/tasks
func (h *CommunityHandlers) SubmitTask(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req entities.SubmitTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}
	bonus, err := decimal.NewFromString(req.BonusVolume)
	if err != nil {
		SendInvalidField(c, "bonus_volume", "Bonus volume must be a decimal string")
		return
	}

	submission, err := h.taskService.Submit(c.Request.Context(), userID, req.TaskName, bonus)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendCreated(c, submission)
}

// ListMyTasks handles GET /api/v1/community/tasks
func (h *CommunityHandlers) ListMyTasks(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListUserTasks(c.Request.Context(), userID)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"tasks": tasks})
}

// Admin operations

// PreviewDaily handles GET /api/v1/admin/daily-earnings/preview
func (h *CommunityHandlers) PreviewDaily(c *gin.Context) {
	date, ok := parseEarnDate(c)
	if !ok {
		return
	}

	preview, err := h.communityService.PreviewDaily(c.Request.Context(), date)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"earn_date": date.Format("2006-01-02"), "entries": preview})
}

// DistributeDaily handles POST /api/v1/admin/daily-earnings/distribute
func (h *CommunityHandlers) DistributeDaily(c *gin.Context) {
	date, ok := parseEarnDate(c)
	if !ok {
		return
	}

	result, err := h.communityService.DistributeDaily(c.Request.Context(), date)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("daily earnings distributed",
		"earn_date", result.EarnDate.Format("2006-01-02"),
		"credited", result.Credited,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	SendSuccess(c, result)
}

// SetOverride handles PUT /api/v1/admin/users/:userId/level-override
func (h *CommunityHandlers) SetOverride(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req struct {
		Level *int `json:"level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	if err := h.communityService.SetOverride(c.Request.Context(), userID, req.Level); err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"user_id": userID, "override_level": req.Level})
}

// ClearOverride handles DELETE /api/v1/admin/users/:userId/level-override
func (h *CommunityHandlers) ClearOverride(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := h.communityService.SetOverride(c.Request.Context(), userID, nil); err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"user_id": userID, "override_level": nil})
}

// SetInfluencer handles PUT /api/v1/admin/users/:userId/influencer
func (h *CommunityHandlers) SetInfluencer(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req struct {
		Influencer bool `json:"influencer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	if err := h.communityService.SetInfluencer(c.Request.Context(), userID, req.Influencer); err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"user_id": userID, "influencer": req.Influencer})
}

// ListPendingTasks handles GET /api/v1/admin/tasks
func (h *CommunityHandlers) ListPendingTasks(c *gin.Context) {
	limit, offset := paginationParams(c)

	tasks, err := h.taskService.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"tasks": tasks})
}

// ReviewTask handles POST /api/v1/admin/tasks/:taskId/review
func (h *CommunityHandlers) ReviewTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, "Invalid task ID format")
		return
	}

	var req struct {
		Approve bool `json:"approve"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	submission, err := h.taskService.Review(c.Request.Context(), taskID, req.Approve)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, submission)
}

// parseEarnDate reads the date query parameter, defaulting to today (UTC)
func parseEarnDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now().UTC(), true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidDate, "Date must be formatted YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}
