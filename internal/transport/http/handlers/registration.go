package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/confession-platform-api/internal/repository"
	"github.com/arklim/confession-platform-api/internal/transport/http/middleware"
	"github.com/arklim/confession-platform-api/internal/usecase"
)

// RegistrationHandler exposes the signup endpoint.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds registration routes.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, signupMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, signupMiddlewares...)
	chain = append(chain, h.signup)
	r.POST("/signup", chain...)
}

// Signup godoc
// @Summary Register a new account
// @Description Creates an account with the supplied nickname, email, and password.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request payload"
// @Success 201 {object} SignupResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} NicknameConflictResponse
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/signup [post]
func (h *RegistrationHandler) signup(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid signup payload"))
		return
	}

	account, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Nickname: strings.TrimSpace(req.Nickname),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		h.respondSignupError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SignupResponse{Account: newAccountSummary(account)})
}

func (h *RegistrationHandler) respondSignupError(c *gin.Context, err error) {
	var nicknameErr *usecase.NicknameTakenError
	if errors.As(err, &nicknameErr) {
		c.JSON(http.StatusConflict, NicknameConflictResponse{
			Error:       "nickname already taken",
			TraceID:     middleware.GetTraceID(c),
			Suggestions: nicknameErr.Suggestions,
		})
		return
	}

	RespondWithMappedError(c, err, []ErrorCase{
		{Err: usecase.ErrInvalidNickname, Status: http.StatusBadRequest, Message: "nickname must be 1-10 characters of letters, digits, underscore, or hyphen"},
		{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
		{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
		{Err: usecase.ErrNicknameTaken, Status: http.StatusConflict, Message: "nickname already taken"},
		{Err: repository.ErrDuplicate, Status: http.StatusConflict, Message: "nickname or email already exists"},
	}, http.StatusInternalServerError, "failed to register account")
}
