package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/hswtrack/compliance-backend/internal/http/handlers"
	httpMW "github.com/hswtrack/compliance-backend/internal/http/middleware"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	BatchHandler    *httpH.BatchHandler
	PersonHandler   *httpH.PersonHandler
	TrainingHandler *httpH.TrainingHandler
	RecordHandler   *httpH.RecordHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "compliance-backend"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	admin := protected.Group("/")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireAdmin())
	}

	// Batches
	if cfg.BatchHandler != nil {
		protected.GET("/batches", cfg.BatchHandler.List)
		protected.GET("/batches/:id", cfg.BatchHandler.Get)
		protected.GET("/batches/:id/rows", cfg.BatchHandler.ListRows)

		admin.POST("/batches", cfg.BatchHandler.Upload)
		admin.POST("/batches/:id/process", cfg.BatchHandler.Process)
		admin.POST("/batches/:id/materialize", cfg.BatchHandler.Materialize)
		admin.POST("/batches/:id/retry", cfg.BatchHandler.Retry)
		admin.POST("/batches/:id/retry-failed", cfg.BatchHandler.RetryFailedRows)
	}

	// People
	if cfg.PersonHandler != nil {
		protected.GET("/people", cfg.PersonHandler.List)
		protected.GET("/people/resolve", cfg.PersonHandler.Resolve)
		protected.GET("/people/:id", cfg.PersonHandler.Get)
		protected.GET("/people/:id/records", cfg.PersonHandler.ListRecords)

		admin.POST("/people", cfg.PersonHandler.Create)
		admin.POST("/people/:id/aliases", cfg.PersonHandler.AddAlias)
		admin.DELETE("/people/:id/aliases", cfg.PersonHandler.RemoveAlias)
		admin.POST("/people/:id/merge", cfg.PersonHandler.Merge)
	}

	// Trainings
	if cfg.TrainingHandler != nil {
		protected.GET("/trainings", cfg.TrainingHandler.List)
		protected.GET("/trainings/:id", cfg.TrainingHandler.Get)
		protected.GET("/trainings/:id/fields", cfg.TrainingHandler.ListFieldDefs)
		protected.GET("/trainings/:id/records", cfg.TrainingHandler.ListRecords)

		admin.POST("/trainings", cfg.TrainingHandler.Create)
		admin.POST("/trainings/:id/fields", cfg.TrainingHandler.CreateFieldDef)
	}

	// Records
	if cfg.RecordHandler != nil {
		protected.GET("/records/:id", cfg.RecordHandler.Get)

		admin.POST("/records/:id/revoke", cfg.RecordHandler.Revoke)
		admin.POST("/records/sweep-expiry", cfg.RecordHandler.SweepExpiry)
	}

	return r
}
