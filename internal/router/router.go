package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lab-booking-api/api/swagger"
	"github.com/noah-isme/lab-booking-api/internal/handler"
	"github.com/noah-isme/lab-booking-api/internal/middleware"
	"github.com/noah-isme/lab-booking-api/internal/models"
	"github.com/noah-isme/lab-booking-api/internal/service"
	"github.com/noah-isme/lab-booking-api/pkg/config"
	"github.com/noah-isme/lab-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lab-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lab-booking-api/pkg/middleware/requestid"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Options carries the cross-cutting dependencies of the HTTP surface.
type Options struct {
	APIPrefix   string
	Env         string
	CORSOrigins []string
	Logger      *zap.Logger
	Metrics     *service.MetricsService
	Auth        tokenValidator
	RateLimiter *middleware.RateLimiter
}

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Availability *handler.AvailabilityHandler
	Bookings     *handler.BookingHandler
	Tests        *handler.LabTestHandler
	Doctors      *handler.DoctorHandler
	Schedules    *handler.ScheduleHandler
	Auth         *handler.AuthHandler
	Assistant    *handler.AssistantHandler
	Exports      *handler.ExportHandler
	Metrics      *handler.MetricsHandler
}

// New builds the gin engine with every route registered.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.CORSOrigins))
	r.Use(middleware.Metrics(opts.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	api := r.Group(prefix, middleware.WithResponseMeta())

	limited := []gin.HandlerFunc{}
	if opts.RateLimiter != nil {
		limited = append(limited, opts.RateLimiter.Handler())
	}
	with := func(extra []gin.HandlerFunc, final gin.HandlerFunc) []gin.HandlerFunc {
		chain := append([]gin.HandlerFunc{}, extra...)
		return append(chain, final)
	}

	api.GET("/tests", h.Tests.List)
	api.GET("/tests/:id", h.Tests.Get)
	api.GET("/doctors", h.Doctors.List)
	api.GET("/doctors/:id", h.Doctors.Get)
	api.GET("/available-slots/:testId/:date", h.Availability.Resolve)
	api.POST("/bookings", with(limited, h.Bookings.Create)...)
	api.GET("/exports/download", h.Exports.Download)

	assistant := api.Group("/assistant/sessions", limited...)
	assistant.POST("", h.Assistant.Start)
	assistant.GET("/:token", h.Assistant.Get)
	assistant.POST("/:token/select", h.Assistant.Select)
	assistant.POST("/:token/confirm", h.Assistant.Confirm)
	assistant.DELETE("/:token", h.Assistant.Cancel)

	authJWT := middleware.JWT(opts.Auth)
	auth := api.Group("/auth")
	auth.POST("/login", with(limited, h.Auth.Login)...)
	auth.POST("/change-password", authJWT, h.Auth.ChangePassword)
	auth.GET("/me", authJWT, h.Auth.Me)

	admin := api.Group("/admin", authJWT)

	desk := admin.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
	desk.GET("/bookings", h.Bookings.List)
	desk.GET("/bookings/:id", h.Bookings.Get)
	desk.PUT("/bookings/:id", h.Bookings.Update)
	desk.DELETE("/bookings/:id", h.Bookings.Delete)

	owner := admin.Group("", middleware.RequireRoles(models.RoleAdmin))
	owner.POST("/tests", h.Tests.Create)
	owner.PUT("/tests/:id", h.Tests.Update)
	owner.DELETE("/tests/:id", h.Tests.Delete)
	owner.GET("/tests/:id/schedules", h.Schedules.ListSchedules)
	owner.POST("/tests/:id/schedules", h.Schedules.CreateSchedule)
	owner.PUT("/tests/:id/schedules/:scheduleId", h.Schedules.UpdateSchedule)
	owner.POST("/tests/:id/schedules/:scheduleId/windows", h.Schedules.RegenerateWindows)
	owner.GET("/tests/:id/windows", h.Schedules.ListWindows)
	owner.GET("/schedules", h.Schedules.ListSchedules)
	owner.DELETE("/schedules/:scheduleId", h.Schedules.DeleteSchedule)

	owner.GET("/lab-schedule", h.Schedules.LabHours)
	owner.PUT("/lab-schedule/:day", h.Schedules.SetLabHours)
	owner.GET("/holidays/:scope", h.Schedules.ListHolidays)
	owner.POST("/holidays/:scope", h.Schedules.CreateHoliday)
	owner.PUT("/holidays/:scope/:id", h.Schedules.UpdateHoliday)
	owner.DELETE("/holidays/:scope/:id", h.Schedules.DeleteHoliday)

	owner.POST("/doctors", h.Doctors.Create)
	owner.PUT("/doctors/:id", h.Doctors.Update)
	owner.DELETE("/doctors/:id", h.Doctors.Delete)
	owner.GET("/assignments", h.Doctors.ListAssignments)
	owner.POST("/assignments", h.Doctors.CreateAssignment)
	owner.DELETE("/assignments/:id", h.Doctors.DeleteAssignment)

	owner.POST("/exports", h.Exports.Create)
	owner.GET("/exports/:id", h.Exports.Status)
	owner.GET("/metrics/summary", h.Metrics.Summary)

	return r
}
