package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jnv-alumni-api/internal/dto"
	"github.com/noah-isme/jnv-alumni-api/internal/models"
	"github.com/noah-isme/jnv-alumni-api/pkg/response"
)

type suggestionService interface {
	Submit(ctx context.Context, requesterID, requesterEmail string, req dto.SuggestionRequest) (*models.AlumniSuggestion, error)
	List(ctx context.Context, viewerID string, page, pageSize int) ([]models.AlumniSuggestion, *models.Pagination, error)
	Complete(ctx context.Context, viewerID, id string, req dto.CompleteSuggestionRequest) (*models.SuggestionHistory, error)
	History(ctx context.Context, viewerID string, page, pageSize int) ([]models.SuggestionHistory, *models.Pagination, error)
}

// SuggestionHandler collects suggested alumni and lets administrators resolve them.
type SuggestionHandler struct {
	service suggestionService
}

// NewSuggestionHandler constructs the handler.
func NewSuggestionHandler(service suggestionService) *SuggestionHandler {
	return &SuggestionHandler{service: service}
}

// Submit godoc
// @Summary Suggest an alumnus to invite
// @Tags Suggestions
// @Accept json
// @Produce json
// @Param payload body dto.SuggestionRequest true "Suggestion"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /suggestions [post]
func (h *SuggestionHandler) Submit(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid suggestion payload"))
		return
	}
	suggestion, err := h.service.Submit(c.Request.Context(), claims.UserID, claims.Email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, suggestion)
}

// List godoc
// @Summary Open suggestions
// @Tags Suggestions
// @Produce json
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/suggestions [get]
func (h *SuggestionHandler) List(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), claims.UserID, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Complete godoc
// @Summary Resolve a suggestion
// @Tags Suggestions
// @Accept json
// @Produce json
// @Param id path string true "Suggestion ID"
// @Param payload body dto.CompleteSuggestionRequest true "Outcome"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/suggestions/{id}/complete [post]
func (h *SuggestionHandler) Complete(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CompleteSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid completion payload"))
		return
	}
	history, err := h.service.Complete(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// History godoc
// @Summary Resolved suggestions
// @Tags Suggestions
// @Produce json
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/suggestions/history [get]
func (h *SuggestionHandler) History(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.History(c.Request.Context(), claims.UserID, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

func pageParams(c *gin.Context) (int, int, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return 0, 0, err
	}
	size, err := queryInt(c, "pageSize")
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}
