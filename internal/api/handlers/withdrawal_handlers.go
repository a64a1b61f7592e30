package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/pkg/logger"
)

// WithdrawalServiceInterface defines the withdrawal operations
type WithdrawalServiceInterface interface {
	Request(ctx context.Context, input *entities.RequestWithdrawalInput) (*entities.RequestWithdrawalResponse, error)
	GetWithdrawal(ctx context.Context, userID, id uuid.UUID) (*entities.WithdrawalRequest, error)
	ListUserWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.WithdrawalRequest, error)
	ListStuck(ctx context.Context, limit, offset int) ([]*entities.WithdrawalRequest, error)
	Resolve(ctx context.Context, id uuid.UUID, confirmed bool, txHash string) (*entities.WithdrawalRequest, error)
}

// WithdrawalHandlers handles withdrawal requests and their resolution
type WithdrawalHandlers struct {
	withdrawalService WithdrawalServiceInterface
	logger            *logger.Logger
}

// NewWithdrawalHandlers creates a new WithdrawalHandlers instance
func NewWithdrawalHandlers(withdrawalService WithdrawalServiceInterface, log *logger.Logger) *WithdrawalHandlers {
	return &WithdrawalHandlers{
		withdrawalService: withdrawalService,
		logger:            log,
	}
}

// RequestWithdrawal handles POST /api/v1/withdrawals
func (h *WithdrawalHandlers) RequestWithdrawal(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var input entities.RequestWithdrawalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}
	input.UserID = userID

	response, err := h.withdrawalService.Request(c.Request.Context(), &input)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("withdrawal requested",
		"withdrawal_id", response.WithdrawalID,
		"user_id", userID,
		"amount", input.Amount.String(),
		"status", response.Status,
	)
	SendAccepted(c, response)
}

// GetWithdrawal handles GET /api/v1/withdrawals/:withdrawalId
func (h *WithdrawalHandlers) GetWithdrawal(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	withdrawalID, ok := parseWithdrawalID(c)
	if !ok {
		return
	}

	withdrawal, err := h.withdrawalService.GetWithdrawal(c.Request.Context(), userID, withdrawalID)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, withdrawal)
}

// ListWithdrawals handles GET /api/v1/withdrawals
func (h *WithdrawalHandlers) ListWithdrawals(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	limit, offset := paginationParams(c)

	withdrawals, err := h.withdrawalService.ListUserWithdrawals(c.Request.Context(), userID, limit, offset)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"withdrawals": withdrawals})
}

// ListStuck handles GET /api/v1/admin/withdrawals/stuck
func (h *WithdrawalHandlers) ListStuck(c *gin.Context) {
	limit, offset := paginationParams(c)

	withdrawals, err := h.withdrawalService.ListStuck(c.Request.Context(), limit, offset)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"withdrawals": withdrawals})
}

// ResolveWithdrawal handles POST /api/v1/admin/withdrawals/:withdrawalId/resolve
func (h *WithdrawalHandlers) ResolveWithdrawal(c *gin.Context) {
	withdrawalID, ok := parseWithdrawalID(c)
	if !ok {
		return
	}

	var req struct {
		Confirmed bool   `json:"confirmed"`
		TxHash    string `json:"tx_hash"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	withdrawal, err := h.withdrawalService.Resolve(c.Request.Context(), withdrawalID, req.Confirmed, req.TxHash)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("withdrawal resolved",
		"withdrawal_id", withdrawalID,
		"confirmed", req.Confirmed,
		"status", withdrawal.Status,
	)
	SendSuccess(c, withdrawal)
}

func parseWithdrawalID(c *gin.Context) (uuid.UUID, bool) {
	withdrawalID, err := uuid.Parse(c.Param("withdrawalId"))
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, "Invalid withdrawal ID format")
		return uuid.Nil, false
	}
	return withdrawalID, true
}
