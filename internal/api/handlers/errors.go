package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/softstake/softstake_service/internal/domain/entities"
	domainerrors "github.com/softstake/softstake_service/internal/domain/errors"
)

// Error codes as constants for consistent error responses across handlers
const (
	// Authentication & Authorization errors
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInvalidToken  = "INVALID_TOKEN"
	ErrCodeAdminRequired = "ADMIN_PRIVILEGES_REQUIRED"

	// Validation errors
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeValidationError = "VALIDATION_ERROR"
	ErrCodeInvalidID       = "INVALID_ID"
	ErrCodeInvalidAmount   = "INVALID_AMOUNT"
	ErrCodeInvalidAddress  = "INVALID_ADDRESS"
	ErrCodeInvalidLevel    = "INVALID_LEVEL"
	ErrCodeInvalidDate     = "INVALID_DATE"

	// Resource errors
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeRoundNotFound      = "ROUND_NOT_FOUND"
	ErrCodeWithdrawalNotFound = "WITHDRAWAL_NOT_FOUND"
	ErrCodeAlreadyExists      = "ALREADY_EXISTS"
	ErrCodeConflict           = "CONFLICT"

	// Operation errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeOperationFailed    = "OPERATION_FAILED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeTokenGenFailed     = "TOKEN_GENERATION_FAILED"
)

// Common error messages
const (
	MsgInvalidRequest     = "Invalid request payload"
	MsgUnauthorized       = "Authentication required"
	MsgInternalError      = "Internal server error"
	MsgUserNotFound       = "User not found"
	MsgServiceUnavailable = "Service temporarily unavailable"
)

// SendBadRequest sends a 400 Bad Request error
func SendBadRequest(c *gin.Context, code, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: det,
	})
}

// SendUnauthorized sends a 401 Unauthorized error
func SendUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, entities.ErrorResponse{
		Code:    ErrCodeUnauthorized,
		Message: message,
	})
}

// SendForbidden sends a 403 Forbidden error
func SendForbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, entities.ErrorResponse{
		Code:    ErrCodeForbidden,
		Message: message,
	})
}

// SendNotFound sends a 404 Not Found error
func SendNotFound(c *gin.Context, code, message string) {
	c.JSON(http.StatusNotFound, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendConflict sends a 409 Conflict error
func SendConflict(c *gin.Context, code, message string) {
	c.JSON(http.StatusConflict, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendInternalError sends a 500 Internal Server Error
func SendInternalError(c *gin.Context, code, message string) {
	c.JSON(http.StatusInternalServerError, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendSuccess sends a 200 OK response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a 201 Created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendAccepted sends a 202 Accepted response with data
func SendAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}

// SendInvalidField sends an error for a specific invalid field
func SendInvalidField(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:    ErrCodeValidationError,
		Message: message,
		Details: map[string]interface{}{
			"field": field,
		},
	})
}

// SendDomainError maps a domain error onto the appropriate HTTP status.
// Precondition violations map to 409 because the request was well formed
// and rejected only by current state.
func SendDomainError(c *gin.Context, err error) {
	code := domainerrors.GetErrorCode(err)
	details := domainerrors.GetErrorDetails(err)
	body := entities.ErrorResponse{
		Code:    code,
		Message: err.Error(),
		Details: details,
	}

	switch {
	case domainerrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, body)
	case domainerrors.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, body)
	case domainerrors.IsAlreadyExists(err) ||
		domainerrors.IsPrecondition(err) ||
		errors.Is(err, domainerrors.ErrConflict):
		c.JSON(http.StatusConflict, body)
	default:
		c.JSON(http.StatusInternalServerError, entities.ErrorResponse{
			Code:    ErrCodeInternalError,
			Message: MsgInternalError,
		})
	}
}
