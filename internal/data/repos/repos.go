package repos

import (
	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/data/repos/identity"
	"github.com/hswtrack/compliance-backend/internal/data/repos/importing"
	"github.com/hswtrack/compliance-backend/internal/data/repos/training"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type PersonRepo = identity.PersonRepo
type AliasRepo = identity.AliasRepo
type DepartmentRepo = identity.DepartmentRepo
type AccountRepo = identity.AccountRepo

type BatchRepo = importing.BatchRepo
type RowRepo = importing.RowRepo

type TrainingRepo = training.TrainingRepo
type FieldDefRepo = training.FieldDefRepo
type RecordRepo = training.RecordRepo
type FieldValueRepo = training.FieldValueRepo
type CategoryRepo = training.CategoryRepo
type GroupRepo = training.GroupRepo

func NewPersonRepo(db *gorm.DB, baseLog *logger.Logger) PersonRepo {
	return identity.NewPersonRepo(db, baseLog)
}
func NewAliasRepo(db *gorm.DB, baseLog *logger.Logger) AliasRepo {
	return identity.NewAliasRepo(db, baseLog)
}
func NewDepartmentRepo(db *gorm.DB, baseLog *logger.Logger) DepartmentRepo {
	return identity.NewDepartmentRepo(db, baseLog)
}
func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	return identity.NewAccountRepo(db, baseLog)
}

func NewBatchRepo(db *gorm.DB, baseLog *logger.Logger) BatchRepo {
	return importing.NewBatchRepo(db, baseLog)
}
func NewRowRepo(db *gorm.DB, baseLog *logger.Logger) RowRepo {
	return importing.NewRowRepo(db, baseLog)
}

func NewTrainingRepo(db *gorm.DB, baseLog *logger.Logger) TrainingRepo {
	return training.NewTrainingRepo(db, baseLog)
}
func NewFieldDefRepo(db *gorm.DB, baseLog *logger.Logger) FieldDefRepo {
	return training.NewFieldDefRepo(db, baseLog)
}
func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return training.NewRecordRepo(db, baseLog)
}
func NewFieldValueRepo(db *gorm.DB, baseLog *logger.Logger) FieldValueRepo {
	return training.NewFieldValueRepo(db, baseLog)
}
func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return training.NewCategoryRepo(db, baseLog)
}
func NewGroupRepo(db *gorm.DB, baseLog *logger.Logger) GroupRepo {
	return training.NewGroupRepo(db, baseLog)
}
