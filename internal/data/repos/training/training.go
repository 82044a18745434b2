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

type TrainingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, training *types.Training) (*types.Training, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Training, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Training, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Training, error)
}

type trainingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrainingRepo(db *gorm.DB, baseLog *logger.Logger) TrainingRepo {
	repoLog := baseLog.With("repo", "TrainingRepo")
	return &trainingRepo{db: db, log: repoLog}
}

func (tr *trainingRepo) Create(ctx context.Context, tx *gorm.DB, training *types.Training) (*types.Training, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if err := transaction.WithContext(ctx).Create(training).Error; err != nil {
		return nil, pkgerrors.AsConflict(err)
	}
	return training, nil
}

func (tr *trainingRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Training, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var training types.Training
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&training).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &training, nil
}

func (tr *trainingRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Training, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var training types.Training
	if err := transaction.WithContext(ctx).
		Where("code = ?", code).
		First(&training).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &training, nil
}

func (tr *trainingRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Training{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (tr *trainingRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Training, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if limit <= 0 {
		limit = 50
	}
	var results []*types.Training
	if err := transaction.WithContext(ctx).
		Order("code").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
