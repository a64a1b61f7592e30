package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/softstake/softstake_service/internal/api/middleware"
	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/internal/infrastructure/config"
	"github.com/softstake/softstake_service/pkg/auth"
	"github.com/softstake/softstake_service/pkg/logger"
)

// UserServiceInterface defines the user operations the handlers need
type UserServiceInterface interface {
	Register(ctx context.Context, req *entities.CreateUserRequest) (*entities.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*entities.User, error)
	BindWallet(ctx context.Context, userID uuid.UUID, address string) (*entities.User, error)
	SubmitPermit(ctx context.Context, userID uuid.UUID, signature string, deadline time.Time) (*entities.TokenPermit, error)
	HasUsablePermit(ctx context.Context, userID uuid.UUID) (bool, error)
}

// UserHandlers handles registration, wallet binding and permits
type UserHandlers struct {
	userService UserServiceInterface
	jwtConfig   config.JWTConfig
	validator   *validator.Validate
	logger      *logger.Logger
}

// NewUserHandlers creates a new UserHandlers instance
func NewUserHandlers(userService UserServiceInterface, jwtConfig config.JWTConfig, log *logger.Logger) *UserHandlers {
	return &UserHandlers{
		userService: userService,
		jwtConfig:   jwtConfig,
		validator:   validator.New(),
		logger:      log,
	}
}

// Register handles POST /api/v1/auth/register
func (h *UserHandlers) Register(c *gin.Context) {
	var req entities.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		SendInvalidField(c, "email", "A valid email address is required")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	token, expiresAt, err := auth.GenerateToken(user.ID, user.IsAdmin, h.jwtConfig.Secret, h.jwtConfig.Issuer, h.jwtConfig.AccessTTL)
	if err != nil {
		h.logger.Error("token generation failed", "error", err, "user_id", user.ID)
		SendInternalError(c, ErrCodeTokenGenFailed, "Failed to issue access token")
		return
	}

	SendCreated(c, entities.AuthResponse{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandlers) GetMe(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, user)
}

// BindWallet handles POST /api/v1/users/me/wallet
func (h *UserHandlers) BindWallet(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req entities.BindWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}
	if req.WalletAddress == "" {
		SendInvalidField(c, "wallet_address", "Wallet address is required")
		return
	}

	user, err := h.userService.BindWallet(c.Request.Context(), userID, req.WalletAddress)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	h.logger.Info("wallet bound", "user_id", userID, "wallet_address", *user.WalletAddress)
	SendSuccess(c, user)
}

// SubmitPermit handles POST /api/v1/users/me/permit
func (h *UserHandlers) SubmitPermit(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req entities.SubmitPermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest)
		return
	}

	permit, err := h.userService.SubmitPermit(c.Request.Context(), userID, req.Signature, req.Deadline)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendCreated(c, permit)
}

// PermitStatus handles GET /api/v1/users/me/permit
func (h *UserHandlers) PermitStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	usable, err := h.userService.HasUsablePermit(c.Request.Context(), userID)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	SendSuccess(c, gin.H{"usable": usable})
}

// requireUserID pulls the authenticated caller's ID out of the context,
// sending a 401 when absent.
func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		SendUnauthorized(c, MsgUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}
