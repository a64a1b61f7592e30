package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/pkg/logger"
)

// LedgerReader exposes the balance rows to the API
type LedgerReader interface {
	GetByUser(ctx context.Context, userID uuid.UUID) ([]*entities.LedgerBalance, error)
}

// CommissionReader exposes a user's referral commission history
type CommissionReader interface {
	GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.ReferralCommission, error)
	SumByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// LedgerHandlers serves balances and commission history
type LedgerHandlers struct {
	ledgerRepo     LedgerReader
	commissionRepo CommissionReader
	logger         *logger.Logger
}

// NewLedgerHandlers creates a new LedgerHandlers instance
func NewLedgerHandlers(ledgerRepo LedgerReader, commissionRepo CommissionReader, log *logger.Logger) *LedgerHandlers {
	return &LedgerHandlers{
		ledgerRepo:     ledgerRepo,
		commissionRepo: commissionRepo,
		logger:         log,
	}
}

// GetBalances handles GET /api/v1/ledger/balances
func (h *LedgerHandlers) GetBalances(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	balances, err := h.ledgerRepo.GetByUser(c.Request.Context(), userID)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"balances": balances})
}

// GetCommissions handles GET /api/v1/ledger/commissions
func (h *LedgerHandlers) GetCommissions(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	limit, offset := paginationParams(c)

	commissions, err := h.commissionRepo.GetByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	total, err := h.commissionRepo.SumByUser(c.Request.Context(), userID)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	SendSuccess(c, gin.H{
		"commissions": commissions,
		"total":       total,
	})
}
