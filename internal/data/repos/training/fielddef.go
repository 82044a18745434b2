package training

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type FieldDefRepo interface {
	Create(ctx context.Context, tx *gorm.DB, def *types.TrainingFieldDef) (*types.TrainingFieldDef, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TrainingFieldDef, error)
	// ListForTraining returns the active global definitions plus the active
	// definitions scoped to the given training.
	ListForTraining(ctx context.Context, tx *gorm.DB, trainingID uuid.UUID) ([]*types.TrainingFieldDef, error)
	ListGlobal(ctx context.Context, tx *gorm.DB) ([]*types.TrainingFieldDef, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
}

type fieldDefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFieldDefRepo(db *gorm.DB, baseLog *logger.Logger) FieldDefRepo {
	repoLog := baseLog.With("repo", "FieldDefRepo")
	return &fieldDefRepo{db: db, log: repoLog}
}

func (fr *fieldDefRepo) Create(ctx context.Context, tx *gorm.DB, def *types.TrainingFieldDef) (*types.TrainingFieldDef, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if err := transaction.WithContext(ctx).Create(def).Error; err != nil {
		return nil, pkgerrors.AsConflict(err)
	}
	return def, nil
}

func (fr *fieldDefRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TrainingFieldDef, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var def types.TrainingFieldDef
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &def, nil
}

func (fr *fieldDefRepo) ListForTraining(ctx context.Context, tx *gorm.DB, trainingID uuid.UUID) ([]*types.TrainingFieldDef, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var defs []*types.TrainingFieldDef
	if err := transaction.WithContext(ctx).
		Where("active = ?", true).
		Where("training_id IS NULL OR training_id = ?", trainingID).
		Order("key").
		Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (fr *fieldDefRepo) ListGlobal(ctx context.Context, tx *gorm.DB) ([]*types.TrainingFieldDef, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var defs []*types.TrainingFieldDef
	if err := transaction.WithContext(ctx).
		Where("active = ? AND training_id IS NULL", true).
		Order("key").
		Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (fr *fieldDefRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.TrainingFieldDef{}).
		Where("id = ?", id).
		Updates(updates).Error
}
