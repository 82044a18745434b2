package app

import (
	"strings"

	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/ingestion/tabular"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/realtime/bus"
	"github.com/hswtrack/compliance-backend/internal/services"
	"github.com/hswtrack/compliance-backend/internal/templates"
	"github.com/hswtrack/compliance-backend/internal/utils"
)

type Services struct {
	Auth           services.AuthService
	Bootstrap      services.BootstrapService
	Identity       services.IdentityService
	Staging        services.StagingService
	Reconciliation services.ReconciliationService
	Pipeline       services.PipelineService
	Records        services.RecordService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, progress bus.Bus) Services {
	log.Info("Wiring services...")

	registry := templates.Load(log)
	validator := services.NewRowValidator()
	source := tabular.NewCSVSource()

	identity := services.NewIdentityService(db, log, r.Person, r.Alias, r.Record, r.Category, r.Group)
	staging := services.NewStagingService(db, log, source, registry, r.Batch, r.Row)
	reconciliation := services.NewReconciliationService(
		db, log, registry, identity,
		r.Batch, r.Row, r.Training, r.FieldDef, r.Record, r.FieldValue, r.Person, r.Department,
		r.Category, r.Group,
	)
	pipeline := services.NewPipelineService(db, log, registry, validator, staging, reconciliation, r.Batch, r.Row, progress)

	return Services{
		Auth:           services.NewAuthService(db, log, r.Account, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Bootstrap:      services.NewBootstrapService(db, log, r.Account),
		Identity:       identity,
		Staging:        staging,
		Reconciliation: reconciliation,
		Pipeline:       pipeline,
		Records:        services.NewRecordService(db, log, r.Record, r.FieldValue),
	}
}

// wireProgressBus picks redis when one is configured, the noop bus otherwise.
func wireProgressBus(log *logger.Logger) bus.Bus {
	if strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log)) == "" {
		log.Info("No REDIS_ADDR configured, progress events disabled")
		return bus.NewNoopBus()
	}
	b, err := bus.NewRedisBus(log)
	if err != nil {
		log.Warn("Redis bus init failed, progress events disabled", "error", err)
		return bus.NewNoopBus()
	}
	return b
}
