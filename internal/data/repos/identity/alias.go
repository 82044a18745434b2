package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type AliasRepo interface {
	Create(ctx context.Context, tx *gorm.DB, aliases []*types.PersonAlias) error
	GetByValue(ctx context.Context, tx *gorm.DB, value string) (*types.PersonAlias, error)
	ListByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.PersonAlias, error)
	CountByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (int64, error)
	DeleteByValue(ctx context.Context, tx *gorm.DB, personID uuid.UUID, value string) (int64, error)
	RepointPerson(ctx context.Context, tx *gorm.DB, fromPersonID, toPersonID uuid.UUID) error
}

type aliasRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAliasRepo(db *gorm.DB, baseLog *logger.Logger) AliasRepo {
	repoLog := baseLog.With("repo", "AliasRepo")
	return &aliasRepo{db: db, log: repoLog}
}

func (ar *aliasRepo) Create(ctx context.Context, tx *gorm.DB, aliases []*types.PersonAlias) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if len(aliases) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).Create(&aliases).Error; err != nil {
		return pkgerrors.AsConflict(err)
	}
	return nil
}

func (ar *aliasRepo) GetByValue(ctx context.Context, tx *gorm.DB, value string) (*types.PersonAlias, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var alias types.PersonAlias
	if err := transaction.WithContext(ctx).
		Where("value = ?", value).
		First(&alias).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &alias, nil
}

func (ar *aliasRepo) ListByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.PersonAlias, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []*types.PersonAlias
	if err := transaction.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("created_at").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *aliasRepo) CountByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.PersonAlias{}).
		Where("person_id = ?", personID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (ar *aliasRepo) DeleteByValue(ctx context.Context, tx *gorm.DB, personID uuid.UUID, value string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	res := transaction.WithContext(ctx).
		Where("person_id = ? AND value = ?", personID, value).
		Delete(&types.PersonAlias{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (ar *aliasRepo) RepointPerson(ctx context.Context, tx *gorm.DB, fromPersonID, toPersonID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).
		Model(&types.PersonAlias{}).
		Where("person_id = ?", fromPersonID).
		Update("person_id", toPersonID).Error
}
