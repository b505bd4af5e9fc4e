package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-scheduler-api/internal/handler"
	"github.com/noah-isme/lab-scheduler-api/internal/middleware"
	"github.com/noah-isme/lab-scheduler-api/internal/models"
	"github.com/noah-isme/lab-scheduler-api/pkg/config"
	"github.com/noah-isme/lab-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lab-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lab-scheduler-api/pkg/middleware/requestid"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Auth      gin.HandlerFunc
	Audit     AuditFactory
	Metrics   gin.HandlerFunc
	Schedules *handler.ScheduleHandler
	Labs      *handler.LabHandler
	Ops       *handler.MetricsHandler
}

// AuditFactory builds the audit middleware for one action on one resource.
type AuditFactory func(action, resource string) gin.HandlerFunc

// New assembles the gin engine with global middleware and every route.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics)
	}

	r.GET("/health", deps.Ops.Health)
	r.GET("/ready", deps.Ops.Ready)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, deps.Ops.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	audit := deps.Audit
	if audit == nil {
		audit = func(string, string) gin.HandlerFunc { return func(c *gin.Context) { c.Next() } }
	}

	api := r.Group(cfg.APIPrefix, deps.Auth)
	registerScheduleRoutes(api, deps.Schedules, audit)
	registerLabRoutes(api, deps.Labs, audit)
	return r
}

func registerScheduleRoutes(api *gin.RouterGroup, h *handler.ScheduleHandler, audit AuditFactory) {
	professor := middleware.RequireRoles(models.RoleProfessor)
	anyRole := middleware.RequireRoles(models.RoleProfessor, models.RoleLabAssistant, models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleLabAssistant, models.RoleAdmin)

	schedules := api.Group("/schedules")
	schedules.GET("/check-availability", anyRole, h.CheckAvailability)
	schedules.GET("/my-schedules", professor, h.ListMine)
	schedules.GET("/export", staff, h.Export)
	schedules.GET("", anyRole, h.List)
	schedules.POST("", professor, audit(models.AuditActionScheduleCreate, "schedule"), h.Create)
	schedules.GET("/:id", anyRole, h.Get)
	schedules.PUT("/:id", professor, audit(models.AuditActionScheduleUpdate, "schedule"), h.Update)
	schedules.DELETE("/:id", professor, audit(models.AuditActionScheduleCancel, "schedule"), h.Cancel)
}

func registerLabRoutes(api *gin.RouterGroup, h *handler.LabHandler, audit AuditFactory) {
	anyRole := middleware.RequireRoles(models.RoleProfessor, models.RoleLabAssistant, models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleLabAssistant, models.RoleAdmin)

	labs := api.Group("/labs")
	labs.GET("", anyRole, h.List)
	labs.POST("", staff, audit(models.AuditActionLabCreate, "lab"), h.Create)
	labs.GET("/:id", anyRole, h.Get)
	labs.GET("/:id/schedules", anyRole, h.Schedules)
}
