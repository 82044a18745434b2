package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "compliance", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Account{},
		&types.Department{},
		&types.Person{},
		&types.PersonAlias{},

		&types.ImportBatch{},
		&types.ImportRow{},

		&types.Training{},
		&types.TrainingFieldDef{},
		&types.TrainingRecord{},
		&types.TrainingRecordFieldValue{},
		&types.Category{},
		&types.PersonCategory{},
		&types.Group{},
		&types.GroupMember{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		name string
		sql  string
	}{
		{
			name: "fk_person_alias_person_id",
			sql: `ALTER TABLE "person_alias"
				ADD CONSTRAINT "fk_person_alias_person_id"
				FOREIGN KEY ("person_id") REFERENCES "person"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_import_row_batch_id",
			sql: `ALTER TABLE "import_row"
				ADD CONSTRAINT "fk_import_row_batch_id"
				FOREIGN KEY ("batch_id") REFERENCES "import_batch"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_training_record_person_id",
			sql: `ALTER TABLE "training_record"
				ADD CONSTRAINT "fk_training_record_person_id"
				FOREIGN KEY ("person_id") REFERENCES "person"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_training_record_training_id",
			sql: `ALTER TABLE "training_record"
				ADD CONSTRAINT "fk_training_record_training_id"
				FOREIGN KEY ("training_id") REFERENCES "training"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_training_record_field_value_record_id",
			sql: `ALTER TABLE "training_record_field_value"
				ADD CONSTRAINT "fk_training_record_field_value_record_id"
				FOREIGN KEY ("record_id") REFERENCES "training_record"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_person_category_person_id",
			sql: `ALTER TABLE "person_category"
				ADD CONSTRAINT "fk_person_category_person_id"
				FOREIGN KEY ("person_id") REFERENCES "person"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_person_group_member_group_id",
			sql: `ALTER TABLE "person_group_member"
				ADD CONSTRAINT "fk_person_group_member_group_id"
				FOREIGN KEY ("group_id") REFERENCES "person_group"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_person_group_member_person_id",
			sql: `ALTER TABLE "person_group_member"
				ADD CONSTRAINT "fk_person_group_member_person_id"
				FOREIGN KEY ("person_id") REFERENCES "person"("id")
				ON DELETE CASCADE`,
		},
	}
	for _, c := range constraints {
		var exists bool
		if err := s.db.Raw(
			`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, c.name,
		).Scan(&exists).Error; err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := s.db.Exec(c.sql).Error; err != nil {
			s.log.Error("Failed to add foreign key constraint", "constraint", c.name, "error", err)
			return err
		}
	}
	return nil
}
