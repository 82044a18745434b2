package app

import (
	apihttp "github.com/hswtrack/compliance-backend/internal/http"
	httpH "github.com/hswtrack/compliance-backend/internal/http/handlers"
	httpMW "github.com/hswtrack/compliance-backend/internal/http/middleware"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Batch    *httpH.BatchHandler
	Person   *httpH.PersonHandler
	Training *httpH.TrainingHandler
	Record   *httpH.RecordHandler
}

func wireHandlers(log *logger.Logger, services Services, repos Repos) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Batch:    httpH.NewBatchHandler(log, services.Staging, services.Pipeline),
		Person:   httpH.NewPersonHandler(log, services.Identity, services.Records, repos.Person, repos.Alias),
		Training: httpH.NewTrainingHandler(log, repos.Training, repos.FieldDef, services.Records),
		Record:   httpH.NewRecordHandler(log, services.Records),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *apihttp.Server {
	return apihttp.NewServer(apihttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		AuthMiddleware:  middleware.Auth,
		HealthHandler:   handlers.Health,
		BatchHandler:    handlers.Batch,
		PersonHandler:   handlers.Person,
		TrainingHandler: handlers.Training,
		RecordHandler:   handlers.Record,
	})
}
