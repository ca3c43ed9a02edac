package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/confession-platform-api/internal/transport/http/middleware"
	"github.com/arklim/confession-platform-api/internal/usecase"
)

// ProfileHandler exposes the authenticated account's profile.
type ProfileHandler struct {
	profiles *usecase.ProfileService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *usecase.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// RegisterRoutes binds profile routes. Callers must already be authenticated.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.get)
	r.PUT("", h.update)
}

// GetProfile godoc
// @Summary Fetch the caller's profile
// @Tags Profile
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/profile [get]
func (h *ProfileHandler) get(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.profiles.Get(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, usecase.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "account not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load profile"))
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Account: newAccountSummary(*account)})
}

// UpdateProfile godoc
// @Summary Update the caller's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body ProfileUpdateRequest true "Profile update payload"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/profile [put]
func (h *ProfileHandler) update(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	account, err := h.profiles.Update(c.Request.Context(), accountID, strings.TrimSpace(req.Nickname), strings.TrimSpace(req.Email))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidNickname, Status: http.StatusBadRequest, Message: "nickname must be 1-10 characters of letters, digits, underscore, or hyphen"},
			{Err: usecase.ErrNicknameTaken, Status: http.StatusConflict, Message: "nickname already taken"},
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Account: newAccountSummary(*account)})
}
