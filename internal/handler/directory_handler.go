package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jnv-alumni-api/internal/dto"
	"github.com/noah-isme/jnv-alumni-api/internal/middleware"
	"github.com/noah-isme/jnv-alumni-api/internal/models"
	"github.com/noah-isme/jnv-alumni-api/internal/service"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
	"github.com/noah-isme/jnv-alumni-api/pkg/export"
	"github.com/noah-isme/jnv-alumni-api/pkg/response"
)

type directoryService interface {
	List(ctx context.Context, viewerID string, filter models.AlumniFilter) (*service.DirectoryPage, bool, error)
	Pending(ctx context.Context, viewerID string) ([]models.DirectoryEntry, bool, error)
	Facets(ctx context.Context, viewerID string) (*models.DirectoryFacets, bool, error)
	Schools(ctx context.Context, viewerID string) ([]models.SchoolSummary, bool, error)
	SchoolMembers(ctx context.Context, viewerID, slug string, filter models.AlumniFilter) (*service.DirectoryPage, bool, error)
	Export(ctx context.Context, viewerID string, format export.Format) (*service.ExportFile, error)
}

// DirectoryHandler serves the role-filtered alumni directory.
type DirectoryHandler struct {
	service directoryService
}

// NewDirectoryHandler constructs the handler.
func NewDirectoryHandler(service directoryService) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

// List godoc
// @Summary Approved alumni directory
// @Tags Directory
// @Produce json
// @Param search query string false "Name, school, city, profession or organisation"
// @Param passedOutYear query int false "Batch"
// @Param profession query string false "Profession"
// @Param role query string false "alumni or teacher"
// @Param sortBy query string false "fullName, passedOutYear or createdAt"
// @Param sortOrder query string false "asc or desc"
// @Param page query int false "Page"
// @Param perPage query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /directory [get]
func (h *DirectoryHandler) List(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := directoryFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, hit, err := h.service.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, page.Entries, &page.Pagination, middleware.ResponseMeta(c))
}

// Pending godoc
// @Summary Records awaiting approval
// @Tags Alumni
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /alumni/pending [get]
func (h *DirectoryHandler) Pending(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, hit, err := h.service.Pending(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, entries, nil, middleware.ResponseMeta(c))
}

// Facets godoc
// @Summary Common professions and cities
// @Tags Directory
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/facets [get]
func (h *DirectoryHandler) Facets(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	facets, hit, err := h.service.Facets(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, facets, nil, middleware.ResponseMeta(c))
}

// Schools godoc
// @Summary Schools with approved members
// @Tags Directory
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/schools [get]
func (h *DirectoryHandler) Schools(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	schools, hit, err := h.service.Schools(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, schools, nil, middleware.ResponseMeta(c))
}

// SchoolMembers godoc
// @Summary Approved members of one school
// @Tags Directory
// @Produce json
// @Param slug path string true "School slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/schools/{slug} [get]
func (h *DirectoryHandler) SchoolMembers(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := directoryFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, hit, err := h.service.SchoolMembers(c.Request.Context(), claims.UserID, c.Param("slug"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, page.Entries, &page.Pagination, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Export the directory
// @Tags Directory
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/export [get]
func (h *DirectoryHandler) Export(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, err.Error()), map[string]string{"format": "must be csv or pdf"}))
		return
	}
	file, err := h.service.Export(c.Request.Context(), claims.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

func directoryFilter(c *gin.Context) (models.AlumniFilter, error) {
	var query dto.DirectoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return models.AlumniFilter{}, bindError(err, "invalid directory query")
	}
	filter := models.AlumniFilter{
		Search:        strings.TrimSpace(query.Search),
		PassedOutYear: query.PassedOutYear,
		Profession:    strings.TrimSpace(query.Profession),
		SortBy:        query.SortBy,
		SortOrder:     strings.ToLower(query.SortOrder),
		Page:          query.Page,
		PageSize:      query.PerPage,
	}
	if role := strings.ToLower(strings.TrimSpace(query.Role)); role != "" {
		filter.Role = models.AlumniCategory(role)
		if !filter.Role.Valid() {
			return models.AlumniFilter{}, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "invalid directory query"), map[string]string{"role": "must be alumni or teacher"})
		}
	}
	return filter, nil
}
