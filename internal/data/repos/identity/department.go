package identity

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type DepartmentRepo interface {
	GetOrCreateByName(ctx context.Context, tx *gorm.DB, name string) (*types.Department, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Department, error)
}

type departmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDepartmentRepo(db *gorm.DB, baseLog *logger.Logger) DepartmentRepo {
	repoLog := baseLog.With("repo", "DepartmentRepo")
	return &departmentRepo{db: db, log: repoLog}
}

func (dr *departmentRepo) GetOrCreateByName(ctx context.Context, tx *gorm.DB, name string) (*types.Department, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	dept := types.Department{Name: name}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&dept).Error; err != nil {
		return nil, err
	}
	// OnConflict DoNothing leaves the struct without an id on conflict
	var out types.Department
	if err := transaction.WithContext(ctx).
		Where("name = ?", name).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (dr *departmentRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Department, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var results []*types.Department
	if err := transaction.WithContext(ctx).
		Order("name").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
