package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/confession-platform-api/internal/infra/config"
	"github.com/arklim/confession-platform-api/internal/infra/logger"
	"github.com/arklim/confession-platform-api/internal/transport/http/middleware"
	"github.com/arklim/confession-platform-api/internal/usecase"
)

const resetAcknowledgment = "If the account exists, reset instructions have been sent"

// PasswordHandler exposes endpoints for password management.
type PasswordHandler struct {
	passwords  *usecase.PasswordService
	dispatcher NotificationDispatcher
	resetCfg   config.ResetSettings
	logger     *zap.Logger
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(passwords *usecase.PasswordService, dispatcher NotificationDispatcher, resetCfg config.ResetSettings, log *zap.Logger) *PasswordHandler {
	if dispatcher == nil {
		dispatcher = noopDispatcher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordHandler{
		passwords:  passwords,
		dispatcher: dispatcher,
		resetCfg:   resetCfg,
		logger:     log,
	}
}

// ChangePassword godoc
// @Summary Change the password for the authenticated account
// @Description Rotates the credential after verifying the current password.
// @Tags Password
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body PasswordChangeRequest true "Password change request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/change [put]
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	if h.passwords == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "password service unavailable"))
		return
	}

	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid change password payload"))
		return
	}

	input := usecase.ChangePasswordInput{
		AccountID:       accountID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		IP:              c.ClientIP(),
		UserAgent:       c.Request.UserAgent(),
	}

	if err := h.passwords.ChangePassword(c.Request.Context(), input); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrCurrentPasswordInvalid, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrPasswordReuse, Status: http.StatusBadRequest, Message: "password was used recently"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// RequestReset godoc
// @Summary Initiate a password reset
// @Description Starts the reset flow. The response is identical whether or not the email matches an account.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Password reset request"
// @Success 200 {object} PasswordResetResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/reset/request [post]
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	if h.passwords == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "password service unavailable"))
		return
	}

	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password reset request"))
		return
	}

	input := usecase.RequestResetInput{
		Email:     strings.TrimSpace(req.Email),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	result, err := h.passwords.RequestReset(c.Request.Context(), input)
	if err != nil {
		var rateErr *usecase.RateLimitExceededError
		if errors.As(err, &rateErr) {
			retryAfter := int(rateErr.RetryAfter.Round(time.Second) / time.Second)
			if retryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(retryAfter))
			}
			c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many password reset requests"))
			return
		}

		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to initiate password reset"))
		return
	}

	if result.TokenIssued {
		h.dispatchReset(c.Request.Context(), result)
	}

	// Same body either way so the endpoint cannot confirm account existence.
	c.JSON(http.StatusOK, PasswordResetResponse{
		Message:   resetAcknowledgment,
		RequestID: result.RequestID,
	})
}

// ConfirmReset godoc
// @Summary Complete a password reset
// @Description Consumes a single-use reset token and sets the new password.
// @Tags Password
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body PasswordResetConfirmRequest true "Password reset confirm request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/reset/confirm/{token} [post]
func (h *PasswordHandler) ConfirmReset(c *gin.Context) {
	if h.passwords == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "password service unavailable"))
		return
	}

	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "reset token is required"))
		return
	}

	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confirm reset payload"))
		return
	}

	input := usecase.ConfirmResetInput{
		Token:       token,
		NewPassword: req.NewPassword,
		IP:          c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	}

	if err := h.passwords.ConfirmReset(c.Request.Context(), input); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "reset token invalid or expired"},
			{Err: usecase.ErrPasswordReuse, Status: http.StatusBadRequest, Message: "password was used recently"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "failed to confirm password reset")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password reset"})
}

// dispatchReset hands the reset link to the delivery channel. The token is
// already persisted, so a dispatch failure degrades delivery only: it is
// logged and the generic 200 still goes out.
func (h *PasswordHandler) dispatchReset(ctx context.Context, result *usecase.ResetRequestResult) {
	if h.dispatcher == nil || result == nil || !result.TokenIssued {
		return
	}

	err := h.dispatcher.SendPasswordReset(ctx, PasswordResetNotification{
		Recipient: result.Destination,
		ResetLink: h.resetLink(result.Token),
		Expires:   result.ExpiresAt,
	})
	if err != nil {
		h.logger.Warn("password reset dispatch failed",
			zap.String("request_id", result.RequestID),
			zap.String("recipient", logger.MaskEmail(result.Destination)),
			zap.Error(err),
		)
	}
}

func (h *PasswordHandler) resetLink(token string) string {
	base := strings.TrimRight(h.resetCfg.LinkBase, "/")
	if base == "" {
		return token
	}
	return fmt.Sprintf("%s/%s", base, url.PathEscape(token))
}
