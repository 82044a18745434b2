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

type PersonRepo interface {
	Create(ctx context.Context, tx *gorm.DB, person *types.Person) (*types.Person, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Person, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Person, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Person, error)
}

type personRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonRepo(db *gorm.DB, baseLog *logger.Logger) PersonRepo {
	repoLog := baseLog.With("repo", "PersonRepo")
	return &personRepo{db: db, log: repoLog}
}

func (pr *personRepo) Create(ctx context.Context, tx *gorm.DB, person *types.Person) (*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Create(person).Error; err != nil {
		return nil, pkgerrors.AsConflict(err)
	}
	return person, nil
}

func (pr *personRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var person types.Person
	if err := transaction.WithContext(ctx).
		Preload("Aliases").
		Where("id = ?", id).
		First(&person).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &person, nil
}

func (pr *personRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Person
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *personRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Person{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (pr *personRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Person{}).Error
}

func (pr *personRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if limit <= 0 {
		limit = 50
	}
	var results []*types.Person
	if err := transaction.WithContext(ctx).
		Preload("Aliases").
		Order("created_at").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
