package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jobdeck/api/internal/middleware"
	"github.com/jobdeck/api/internal/pkg/apperror"
	"github.com/jobdeck/api/internal/pkg/response"
	"github.com/jobdeck/api/internal/service/twofactor"
)

// TwoFactorService is the service surface consumed by the HTTP layer
type TwoFactorService interface {
	Setup(ctx context.Context, userID uuid.UUID, accountLabel, clientIP, userAgent string) (*twofactor.SetupResponse, error)
	Enable(ctx context.Context, userID uuid.UUID, code, clientIP, userAgent string) error
	VerifyLogin(ctx context.Context, userID uuid.UUID, code, clientIP, userAgent string) (*twofactor.VerifyResult, error)
	Disable(ctx context.Context, userID uuid.UUID, code, clientIP, userAgent string) error
	RegenerateBackupCodes(ctx context.Context, userID uuid.UUID, code, clientIP, userAgent string) ([]string, error)
}

// TwoFactorHandler handles two-factor HTTP requests
type TwoFactorHandler struct {
	service TwoFactorService
}

// NewTwoFactorHandler creates a new two-factor handler
func NewTwoFactorHandler(service TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{service: service}
}

type setupRequest struct {
	AccountLabel string `json:"account_label" binding:"required"`
}

type codeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Setup handles POST /api/v1/2fa/setup
func (h *TwoFactorHandler) Setup(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.InternalError("Missing authenticated user", "Try again later"))
		return
	}

	var req setupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ValidationError("Invalid request body", "Provide account_label"))
		return
	}

	resp, err := h.service.Setup(c.Request.Context(), userID, req.AccountLabel, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.ErrorFromErr(c, err)
		return
	}

	response.Success(c, resp)
}

// Enable handles POST /api/v1/2fa/enable
func (h *TwoFactorHandler) Enable(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.InternalError("Missing authenticated user", "Try again later"))
		return
	}

	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ValidationError("Invalid request body", "Provide a verification code"))
		return
	}

	if err := h.service.Enable(c.Request.Context(), userID, req.Code, c.ClientIP(), c.Request.UserAgent()); err != nil {
		response.ErrorFromErr(c, err)
		return
	}

	response.Success(c, gin.H{"enabled": true})
}

// Verify handles POST /api/v1/2fa/verify
func (h *TwoFactorHandler) Verify(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.InternalError("Missing authenticated user", "Try again later"))
		return
	}

	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ValidationError("Invalid request body", "Provide a verification code"))
		return
	}

	result, err := h.service.VerifyLogin(c.Request.Context(), userID, req.Code, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.ErrorFromErr(c, err)
		return
	}

	response.Success(c, result)
}

// Disable handles POST /api/v1/2fa/disable
func (h *TwoFactorHandler) Disable(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.InternalError("Missing authenticated user", "Try again later"))
		return
	}

	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ValidationError("Invalid request body", "Provide a verification code"))
		return
	}

	if err := h.service.Disable(c.Request.Context(), userID, req.Code, c.ClientIP(), c.Request.UserAgent()); err != nil {
		response.ErrorFromErr(c, err)
		return
	}

	response.Success(c, gin.H{"enabled": false})
}

// RegenerateBackupCodes handles POST /api/v1/2fa/backup-codes/regenerate
func (h *TwoFactorHandler) RegenerateBackupCodes(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.InternalError("Missing authenticated user", "Try again later"))
		return
	}

	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ValidationError("Invalid request body", "Provide a TOTP code"))
		return
	}

	codes, err := h.service.RegenerateBackupCodes(c.Request.Context(), userID, req.Code, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.ErrorFromErr(c, err)
		return
	}

	response.Success(c, gin.H{"backup_codes": codes})
}
