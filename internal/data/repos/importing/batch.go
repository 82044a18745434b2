package importing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type BatchRepo interface {
	Create(ctx context.Context, tx *gorm.DB, batch *types.ImportBatch) (*types.ImportBatch, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ImportBatch, error)
	GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ImportBatch, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.ImportBatch, error)
	ExistsBySHA256(ctx context.Context, tx *gorm.DB, sha256 string) (bool, error)
}

type batchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBatchRepo(db *gorm.DB, baseLog *logger.Logger) BatchRepo {
	repoLog := baseLog.With("repo", "BatchRepo")
	return &batchRepo{db: db, log: repoLog}
}

func (br *batchRepo) Create(ctx context.Context, tx *gorm.DB, batch *types.ImportBatch) (*types.ImportBatch, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	if err := transaction.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, pkgerrors.AsConflict(err)
	}
	return batch, nil
}

func (br *batchRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ImportBatch, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var batch types.ImportBatch
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func (br *batchRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ImportBatch, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var batch types.ImportBatch
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func (br *batchRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ImportBatch{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (br *batchRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.ImportBatch, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	if limit <= 0 {
		limit = 50
	}
	var results []*types.ImportBatch
	if err := transaction.WithContext(ctx).
		Order("received_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (br *batchRepo) ExistsBySHA256(ctx context.Context, tx *gorm.DB, sha256 string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ImportBatch{}).
		Where("file_sha256 = ?", sha256).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
