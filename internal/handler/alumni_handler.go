package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jnv-alumni-api/internal/dto"
	"github.com/noah-isme/jnv-alumni-api/internal/models"
	"github.com/noah-isme/jnv-alumni-api/pkg/response"
)

type registrationService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*models.AlumniRecord, error)
}

type alumniService interface {
	Me(ctx context.Context, userID string) (*models.AlumniRecord, error)
	Get(ctx context.Context, viewerID, id string) (*models.DirectoryEntry, error)
	Support(ctx context.Context, endorserID, targetID string) (*dto.SupportResponse, error)
	Approve(ctx context.Context, approverID, targetID string) (*models.AlumniRecord, error)
	UpdateProfile(ctx context.Context, ownerID string, req dto.UpdateProfileRequest) (*models.AlumniRecord, error)
	RecordDonation(ctx context.Context, actorID, targetID string, req dto.DonationRequest) (*models.AlumniRecord, error)
	SetUserRole(ctx context.Context, actorID, targetID string, req dto.SetRoleRequest) (*models.AlumniRecord, error)
}

// AlumniHandler exposes registration, endorsement and profile endpoints.
type AlumniHandler struct {
	registration registrationService
	alumni       alumniService
}

// NewAlumniHandler constructs the handler.
func NewAlumniHandler(registration registrationService, alumni alumniService) *AlumniHandler {
	return &AlumniHandler{registration: registration, alumni: alumni}
}

// Register godoc
// @Summary Register an alumni record
// @Description Creates an account and a pending record awaiting approval
// @Tags Alumni
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /alumni/register [post]
func (h *AlumniHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid registration payload"))
		return
	}

	record, err := h.registration.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Me godoc
// @Summary Own alumni record
// @Tags Alumni
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /alumni/me [get]
func (h *AlumniHandler) Me(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.alumni.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// UpdateProfile godoc
// @Summary Update own profile
// @Tags Alumni
// @Accept json
// @Produce json
// @Param payload body dto.UpdateProfileRequest true "Profile"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /alumni/me [put]
func (h *AlumniHandler) UpdateProfile(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid profile payload"))
		return
	}
	record, err := h.alumni.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Get godoc
// @Summary Get an alumni record
// @Description Mobile numbers are visible to privileged viewers and the owner
// @Tags Alumni
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /alumni/{id} [get]
func (h *AlumniHandler) Get(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.alumni.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Support godoc
// @Summary Endorse a pending record
// @Tags Alumni
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /alumni/{id}/support [post]
func (h *AlumniHandler) Support(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.alumni.Support(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Approve godoc
// @Summary Approve a pending record
// @Tags Alumni
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /alumni/{id}/approve [post]
func (h *AlumniHandler) Approve(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.alumni.Approve(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// RecordDonation godoc
// @Summary Record a donation
// @Tags Alumni
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.DonationRequest true "Donation"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /alumni/{id}/donation [put]
func (h *AlumniHandler) RecordDonation(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid donation payload"))
		return
	}
	record, err := h.alumni.RecordDonation(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// SetUserRole godoc
// @Summary Change a record's user role
// @Tags Alumni
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.SetRoleRequest true "Role"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /alumni/{id}/role [put]
func (h *AlumniHandler) SetUserRole(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid role payload"))
		return
	}
	record, err := h.alumni.SetUserRole(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
