package training

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

type CategoryRepo interface {
	GetOrCreateBySlug(ctx context.Context, tx *gorm.DB, slug, name string, scope types.CategoryScope) (*types.Category, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Category, error)
	// EnsureMembership adds the person to the category if not already a member.
	EnsureMembership(ctx context.Context, tx *gorm.DB, personID, categoryID uuid.UUID) error
	ListByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.Category, error)
	// MergeMemberships moves memberships from one person to another, dropping
	// any that would duplicate an existing membership on the target.
	MergeMemberships(ctx context.Context, tx *gorm.DB, fromPersonID, toPersonID uuid.UUID) error
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	repoLog := baseLog.With("repo", "CategoryRepo")
	return &categoryRepo{db: db, log: repoLog}
}

func (cr *categoryRepo) GetOrCreateBySlug(ctx context.Context, tx *gorm.DB, slug, name string, scope types.CategoryScope) (*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	category := &types.Category{Slug: slug, Name: name, Scope: scope}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).
		Create(category).Error; err != nil {
		return nil, pkgerrors.AsConflict(err)
	}
	var out types.Category
	if err := transaction.WithContext(ctx).
		Where("slug = ?", slug).
		First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (cr *categoryRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var categories []*types.Category
	if err := transaction.WithContext(ctx).
		Order("slug").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (cr *categoryRepo) EnsureMembership(ctx context.Context, tx *gorm.DB, personID, categoryID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	membership := &types.PersonCategory{PersonID: personID, CategoryID: categoryID}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "person_id"}, {Name: "category_id"}},
			DoNothing: true,
		}).
		Create(membership).Error
}

func (cr *categoryRepo) ListByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var categories []*types.Category
	if err := transaction.WithContext(ctx).
		Joins("JOIN person_category pc ON pc.category_id = category.id").
		Where("pc.person_id = ?", personID).
		Order("category.slug").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (cr *categoryRepo) MergeMemberships(ctx context.Context, tx *gorm.DB, fromPersonID, toPersonID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	err := transaction.WithContext(ctx).Exec(`
		UPDATE person_category src
		SET person_id = ?
		WHERE src.person_id = ?
		  AND NOT EXISTS (
			SELECT 1 FROM person_category dst
			WHERE dst.person_id = ? AND dst.category_id = src.category_id
		  )`, toPersonID, fromPersonID, toPersonID).Error
	if err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Where("person_id = ?", fromPersonID).
		Delete(&types.PersonCategory{}).Error
}
