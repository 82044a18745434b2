package training

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type FieldValueRepo interface {
	// Upsert writes the value for (record, field def), replacing any previous
	// value regardless of which variant column it occupied.
	Upsert(ctx context.Context, tx *gorm.DB, value *types.TrainingRecordFieldValue) error
	ListByRecord(ctx context.Context, tx *gorm.DB, recordID uuid.UUID) ([]*types.TrainingRecordFieldValue, error)
	DeleteByRecord(ctx context.Context, tx *gorm.DB, recordID uuid.UUID) error
}

type fieldValueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFieldValueRepo(db *gorm.DB, baseLog *logger.Logger) FieldValueRepo {
	repoLog := baseLog.With("repo", "FieldValueRepo")
	return &fieldValueRepo{db: db, log: repoLog}
}

func (fv *fieldValueRepo) Upsert(ctx context.Context, tx *gorm.DB, value *types.TrainingRecordFieldValue) error {
	transaction := tx
	if transaction == nil {
		transaction = fv.db
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "record_id"}, {Name: "field_def_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"value_text", "value_number", "value_date", "value_boolean", "value_json", "updated_at",
			}),
		}).
		Create(value).Error; err != nil {
		return pkgerrors.AsConflict(err)
	}
	return nil
}

func (fv *fieldValueRepo) ListByRecord(ctx context.Context, tx *gorm.DB, recordID uuid.UUID) ([]*types.TrainingRecordFieldValue, error) {
	transaction := tx
	if transaction == nil {
		transaction = fv.db
	}
	var values []*types.TrainingRecordFieldValue
	if err := transaction.WithContext(ctx).
		Where("record_id = ?", recordID).
		Find(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (fv *fieldValueRepo) DeleteByRecord(ctx context.Context, tx *gorm.DB, recordID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = fv.db
	}
	return transaction.WithContext(ctx).
		Where("record_id = ?", recordID).
		Delete(&types.TrainingRecordFieldValue{}).Error
}
