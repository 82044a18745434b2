package app

import (
	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type Repos struct {
	Account    repos.AccountRepo
	Department repos.DepartmentRepo
	Person     repos.PersonRepo
	Alias      repos.AliasRepo

	Batch repos.BatchRepo
	Row   repos.RowRepo

	Training   repos.TrainingRepo
	FieldDef   repos.FieldDefRepo
	Record     repos.RecordRepo
	FieldValue repos.FieldValueRepo
	Category   repos.CategoryRepo
	Group      repos.GroupRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Account:    repos.NewAccountRepo(db, log),
		Department: repos.NewDepartmentRepo(db, log),
		Person:     repos.NewPersonRepo(db, log),
		Alias:      repos.NewAliasRepo(db, log),
		Batch:      repos.NewBatchRepo(db, log),
		Row:        repos.NewRowRepo(db, log),
		Training:   repos.NewTrainingRepo(db, log),
		FieldDef:   repos.NewFieldDefRepo(db, log),
		Record:     repos.NewRecordRepo(db, log),
		FieldValue: repos.NewFieldValueRepo(db, log),
		Category:   repos.NewCategoryRepo(db, log),
		Group:      repos.NewGroupRepo(db, log),
	}
}
