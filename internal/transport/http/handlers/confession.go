package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/confession-platform-api/internal/transport/http/middleware"
	"github.com/arklim/confession-platform-api/internal/usecase"
)

// ConfessionHandler exposes confession CRUD endpoints. Reads are public;
// writes require an authenticated caller.
type ConfessionHandler struct {
	confessions *usecase.ConfessionService
}

// NewConfessionHandler constructs ConfessionHandler.
func NewConfessionHandler(confessions *usecase.ConfessionService) *ConfessionHandler {
	return &ConfessionHandler{confessions: confessions}
}

// RegisterRoutes binds confession routes.
func (h *ConfessionHandler) RegisterRoutes(r *gin.RouterGroup, requireIdentity gin.HandlerFunc) {
	r.GET("", h.list)
	r.GET("/:id", h.get)
	r.POST("", requireIdentity, h.create)
	r.PUT("/:id", requireIdentity, h.update)
	r.DELETE("/:id", requireIdentity, h.delete)
}

// ListConfessions godoc
// @Summary List confessions, newest first
// @Tags Confessions
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Param author query string false "Filter by author account ID"
// @Success 200 {object} ConfessionListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/confessions [get]
func (h *ConfessionHandler) list(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 0)
	offset := parseIntQuery(c, "offset", 0)
	author := strings.TrimSpace(c.Query("author"))

	page, err := h.confessions.List(c.Request.Context(), author, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list confessions"))
		return
	}

	items := make([]ConfessionPayload, 0, len(page.Items))
	for _, confession := range page.Items {
		items = append(items, newConfessionPayload(confession))
	}

	c.JSON(http.StatusOK, ConfessionListResponse{
		Confessions: items,
		Total:       page.Total,
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
}

// GetConfession godoc
// @Summary Fetch a single confession
// @Tags Confessions
// @Produce json
// @Param id path string true "Confession ID"
// @Success 200 {object} ConfessionPayload
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/confessions/{id} [get]
func (h *ConfessionHandler) get(c *gin.Context) {
	confession, err := h.confessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrConfessionNotFound, Status: http.StatusNotFound, Message: "confession not found"},
		}, http.StatusInternalServerError, "failed to load confession")
		return
	}

	c.JSON(http.StatusOK, newConfessionPayload(*confession))
}

// CreateConfession godoc
// @Summary Publish a new confession
// @Tags Confessions
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body ConfessionRequest true "Confession payload"
// @Success 201 {object} ConfessionPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/confessions [post]
func (h *ConfessionHandler) create(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ConfessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confession payload"))
		return
	}

	confession, err := h.confessions.Create(c.Request.Context(), usecase.CreateConfessionInput{
		AuthorID:  accountID,
		Title:     strings.TrimSpace(req.Title),
		Content:   strings.TrimSpace(req.Content),
		Category:  strings.TrimSpace(req.Category),
		ImageURL:  req.ImageURL,
		Anonymous: req.Anonymous,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "failed to create confession"))
		return
	}

	c.JSON(http.StatusCreated, newConfessionPayload(*confession))
}

// UpdateConfession godoc
// @Summary Edit an owned confession
// @Tags Confessions
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param id path string true "Confession ID"
// @Param request body ConfessionRequest true "Confession payload"
// @Success 200 {object} ConfessionPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/confessions/{id} [put]
func (h *ConfessionHandler) update(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ConfessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confession payload"))
		return
	}

	confession, err := h.confessions.Update(c.Request.Context(), usecase.UpdateConfessionInput{
		ID:        c.Param("id"),
		AuthorID:  accountID,
		Title:     strings.TrimSpace(req.Title),
		Content:   strings.TrimSpace(req.Content),
		Category:  strings.TrimSpace(req.Category),
		ImageURL:  req.ImageURL,
		Anonymous: req.Anonymous,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrConfessionNotFound, Status: http.StatusNotFound, Message: "confession not found"},
			{Err: usecase.ErrNotOwner, Status: http.StatusForbidden, Message: "confession belongs to another account"},
		}, http.StatusInternalServerError, "failed to update confession")
		return
	}

	c.JSON(http.StatusOK, newConfessionPayload(*confession))
}

// DeleteConfession godoc
// @Summary Delete an owned confession
// @Tags Confessions
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param id path string true "Confession ID"
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/confessions/{id} [delete]
func (h *ConfessionHandler) delete(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.confessions.Delete(c.Request.Context(), c.Param("id"), accountID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrConfessionNotFound, Status: http.StatusNotFound, Message: "confession not found"},
			{Err: usecase.ErrNotOwner, Status: http.StatusForbidden, Message: "confession belongs to another account"},
		}, http.StatusInternalServerError, "failed to delete confession")
		return
	}

	c.Status(http.StatusNoContent)
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
