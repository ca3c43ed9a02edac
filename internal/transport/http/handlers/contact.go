package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/confession-platform-api/internal/usecase"
)

// ContactHandler accepts contact form submissions.
type ContactHandler struct {
	contacts *usecase.ContactService
}

// NewContactHandler constructs ContactHandler.
func NewContactHandler(contacts *usecase.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// Submit godoc
// @Summary Submit a contact form message
// @Tags Contact
// @Accept json
// @Produce json
// @Param request body ContactRequest true "Contact payload"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/contact [post]
func (h *ContactHandler) Submit(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid contact payload"))
		return
	}

	_, err := h.contacts.Submit(c.Request.Context(), usecase.ContactInput{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to store contact message"))
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "message received"})
}
