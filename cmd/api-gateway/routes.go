package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/simulacro-api/internal/handler"
	"github.com/noah-isme/simulacro-api/internal/middleware"
	"github.com/noah-isme/simulacro-api/internal/models"
	"github.com/noah-isme/simulacro-api/pkg/config"
)

type routeDeps struct {
	performance *handler.PerformanceHandler
	metrics     *handler.MetricsHandler
	tokens      middleware.TokenValidator
}

var (
	staffRoles      = []models.UserRole{models.RoleTeacher, models.RoleCoordinator, models.RoleRector, models.RoleAdmin}
	managementRoles = []models.UserRole{models.RoleCoordinator, models.RoleRector, models.RoleAdmin}
)

func registerRoutes(r *gin.Engine, cfg *config.Config, deps routeDeps) {
	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.tokens))

	students := api.Group("/students/:id", middleware.RequireRolesOrSelf("id", staffRoles...))
	students.GET("/score", deps.performance.StudentScore)
	students.GET("/progress", deps.performance.StudentProgress)
	students.GET("/diagnostics", deps.performance.StudentDiagnostics)

	rankings := api.Group("/rankings")
	rankings.GET("/students", middleware.RequireRoles(staffRoles...), deps.performance.StudentRanking)
	rankings.GET("/students/export", middleware.RequireRoles(staffRoles...), deps.performance.ExportStudentRanking)
	rankings.GET("/institutions", middleware.RequireRoles(managementRoles...), deps.performance.InstitutionRanking)
	rankings.GET("/campuses", middleware.RequireRoles(managementRoles...), deps.performance.CampusRanking)
	rankings.POST("/refresh", middleware.RequireRoles(models.RoleAdmin), deps.performance.RefreshRankings)

	api.GET("/averages", middleware.RequireRoles(staffRoles...), deps.performance.Averages)
	api.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), deps.metrics.System)
}
