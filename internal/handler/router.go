package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/jnv-alumni-api/internal/middleware"
	"github.com/noah-isme/jnv-alumni-api/internal/models"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Auth       *AuthHandler
	Alumni     *AlumniHandler
	Directory  *DirectoryHandler
	Contact    *ContactHandler
	Suggestion *SuggestionHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts the ops endpoints at the root and the API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, tokens middleware.TokenValidator, audit middleware.AuditRecorder, logger *zap.Logger) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	authn := middleware.JWT(tokens)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password", h.Auth.ResetPassword)
	auth.POST("/logout", authn, h.Auth.Logout)
	auth.POST("/change-password", authn, h.Auth.ChangePassword)
	auth.GET("/me", authn, h.Auth.Me)

	api.POST("/alumni/register", h.Alumni.Register)
	api.POST("/contact", h.Contact.Submit)

	alumni := api.Group("/alumni", authn)
	alumni.GET("/me", h.Alumni.Me)
	alumni.PUT("/me", h.Alumni.UpdateProfile)
	alumni.GET("/pending", h.Directory.Pending)
	alumni.GET("/:id", h.Alumni.Get)
	alumni.POST("/:id/support", h.Alumni.Support)
	alumni.POST("/:id/approve", middleware.RequirePrivileged(), h.Alumni.Approve)
	alumni.PUT("/:id/donation", middleware.RequireRoles(models.RoleTreasurer, models.RoleAdmin), h.Alumni.RecordDonation)
	alumni.PUT("/:id/role", middleware.RequireRoles(models.RoleAdmin), h.Alumni.SetUserRole)

	directory := api.Group("/directory", authn)
	directory.GET("", h.Directory.List)
	directory.GET("/facets", h.Directory.Facets)
	directory.GET("/schools", h.Directory.Schools)
	directory.GET("/schools/:slug", h.Directory.SchoolMembers)
	directory.GET("/export",
		middleware.RequirePrivileged(),
		middleware.Audit(audit, logger, models.AuditActionDirectoryExport, models.AuditResourceDirectory),
		h.Directory.Export)

	api.POST("/suggestions", authn, h.Suggestion.Submit)

	admin := api.Group("/admin", authn, middleware.RequirePrivileged())
	admin.GET("/contact", h.Contact.List)
	admin.DELETE("/contact/:id", h.Contact.Delete)
	admin.GET("/suggestions", h.Suggestion.List)
	admin.GET("/suggestions/history", h.Suggestion.History)
	admin.POST("/suggestions/:id/complete", h.Suggestion.Complete)
}
