package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/certified-copy-api/internal/middleware"
	"github.com/noah-isme/certified-copy-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth         *AuthHandler
	Applications *ApplicationHandler
	Review       *ReviewHandler
	Documents    *DocumentHandler
	Dashboard    *DashboardHandler
	Exports      *ExportHandler
	Reference    *ReferenceHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes mounts the portal API on group.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator, logger *zap.Logger) {
	citizen := models.RoleCitizen
	staff := models.RoleStaff
	admin := models.RoleAdmin

	group.POST("/auth/login", h.Auth.Login)
	group.GET("/reference", h.Reference.Get)
	group.GET("/documents/download", h.Documents.Download)

	secured := group.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.GET("/auth/me", h.Auth.Me)

	apps := secured.Group("/applications")
	apps.POST("", middleware.RequireRoles(citizen), h.Applications.Submit)
	apps.GET("", h.Applications.List)
	apps.GET("/:id", h.Applications.Get)
	apps.GET("/:id/document-link", h.Documents.Link)
	apps.DELETE("/:id", middleware.RequireRoles(admin), middleware.Audit(logger, "application.delete"), h.Applications.Delete)

	review := apps.Group("")
	review.Use(middleware.RequireRoles(staff, admin))
	review.POST("/:id/start-review", middleware.Audit(logger, "application.start_review"), h.Review.StartReview)
	review.POST("/:id/release", middleware.Audit(logger, "application.release"), h.Review.Release)
	review.POST("/:id/approve", middleware.Audit(logger, "application.approve"), h.Review.Approve)
	review.POST("/:id/reject", middleware.Audit(logger, "application.reject"), h.Review.Reject)

	secured.POST("/documents", middleware.RequireRoles(staff, admin), middleware.Audit(logger, "document.upload"), h.Documents.Upload)

	secured.GET("/dashboard/staff", middleware.RequireRoles(staff, admin), h.Dashboard.Staff)
	secured.GET("/dashboard/admin", middleware.RequireRoles(admin), h.Dashboard.Admin)
	secured.GET("/stats", middleware.RequireRoles(admin), h.Dashboard.Statistics)
	secured.GET("/exports/applications", middleware.RequireRoles(admin), h.Exports.Applications)
	secured.GET("/metrics/summary", middleware.RequireRoles(admin), h.Metrics.Summary)
}
