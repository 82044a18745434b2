package training

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type RecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.TrainingRecord) (*types.TrainingRecord, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TrainingRecord, error)
	// GetForUpdate locks the (person, training) record row for the duration of
	// the surrounding transaction. Returns ErrNotFound when no record exists.
	GetForUpdate(ctx context.Context, tx *gorm.DB, personID, trainingID uuid.UUID) (*types.TrainingRecord, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	ListByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.TrainingRecord, error)
	ListByTraining(ctx context.Context, tx *gorm.DB, trainingID uuid.UUID, limit, offset int) ([]*types.TrainingRecord, error)
	ListByPersonAndStatus(ctx context.Context, tx *gorm.DB, personID uuid.UUID, status types.RecordStatus) ([]*types.TrainingRecord, error)
	// MarkExpired flips valid records whose expiry has passed to expired and
	// returns how many rows changed.
	MarkExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
	RepointPerson(ctx context.Context, tx *gorm.DB, fromPersonID, toPersonID uuid.UUID) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	repoLog := baseLog.With("repo", "RecordRepo")
	return &recordRepo{db: db, log: repoLog}
}

func (rr *recordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.TrainingRecord) (*types.TrainingRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, pkgerrors.AsConflict(err)
	}
	return record, nil
}

func (rr *recordRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TrainingRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var record types.TrainingRecord
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (rr *recordRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, personID, trainingID uuid.UUID) (*types.TrainingRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var record types.TrainingRecord
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("person_id = ? AND training_id = ?", personID, trainingID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (rr *recordRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.TrainingRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (rr *recordRepo) ListByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.TrainingRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var records []*types.TrainingRecord
	if err := transaction.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("completed_at DESC NULLS LAST").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (rr *recordRepo) ListByTraining(ctx context.Context, tx *gorm.DB, trainingID uuid.UUID, limit, offset int) ([]*types.TrainingRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if limit <= 0 {
		limit = 100
	}
	var records []*types.TrainingRecord
	if err := transaction.WithContext(ctx).
		Where("training_id = ?", trainingID).
		Order("completed_at DESC NULLS LAST").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (rr *recordRepo) ListByPersonAndStatus(ctx context.Context, tx *gorm.DB, personID uuid.UUID, status types.RecordStatus) ([]*types.TrainingRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var records []*types.TrainingRecord
	if err := transaction.WithContext(ctx).
		Where("person_id = ? AND status = ?", personID, status).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (rr *recordRepo) MarkExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	result := transaction.WithContext(ctx).
		Model(&types.TrainingRecord{}).
		Where("status = ? AND expiry_at IS NOT NULL AND expiry_at <= ?", types.RecordStatusValid, now).
		Updates(map[string]any{"status": types.RecordStatusExpired, "updated_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (rr *recordRepo) RepointPerson(ctx context.Context, tx *gorm.DB, fromPersonID, toPersonID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.TrainingRecord{}).
		Where("person_id = ?", fromPersonID).
		Update("person_id", toPersonID).Error
}

func (rr *recordRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.TrainingRecord{}).Error
}
