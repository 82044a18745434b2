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

type GroupRepo interface {
	GetOrCreateByName(ctx context.Context, tx *gorm.DB, name string) (*types.Group, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Group, error)
	EnsureMembership(ctx context.Context, tx *gorm.DB, groupID, personID uuid.UUID) error
	ListByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.Group, error)
	MergeMemberships(ctx context.Context, tx *gorm.DB, fromPersonID, toPersonID uuid.UUID) error
}

type groupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGroupRepo(db *gorm.DB, baseLog *logger.Logger) GroupRepo {
	repoLog := baseLog.With("repo", "GroupRepo")
	return &groupRepo{db: db, log: repoLog}
}

func (gr *groupRepo) GetOrCreateByName(ctx context.Context, tx *gorm.DB, name string) (*types.Group, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	group := &types.Group{Name: name}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(group).Error; err != nil {
		return nil, pkgerrors.AsConflict(err)
	}
	var out types.Group
	if err := transaction.WithContext(ctx).
		Where("name = ?", name).
		First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (gr *groupRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Group, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	var groups []*types.Group
	if err := transaction.WithContext(ctx).
		Order("name").
		Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (gr *groupRepo) EnsureMembership(ctx context.Context, tx *gorm.DB, groupID, personID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	member := &types.GroupMember{GroupID: groupID, PersonID: personID}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "person_id"}},
			DoNothing: true,
		}).
		Create(member).Error
}

func (gr *groupRepo) ListByPerson(ctx context.Context, tx *gorm.DB, personID uuid.UUID) ([]*types.Group, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	var groups []*types.Group
	if err := transaction.WithContext(ctx).
		Joins("JOIN person_group_member gm ON gm.group_id = person_group.id").
		Where("gm.person_id = ?", personID).
		Order("person_group.name").
		Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (gr *groupRepo) MergeMemberships(ctx context.Context, tx *gorm.DB, fromPersonID, toPersonID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	err := transaction.WithContext(ctx).Exec(`
		UPDATE person_group_member src
		SET person_id = ?
		WHERE src.person_id = ?
		  AND NOT EXISTS (
			SELECT 1 FROM person_group_member dst
			WHERE dst.person_id = ? AND dst.group_id = src.group_id
		  )`, toPersonID, fromPersonID, toPersonID).Error
	if err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Where("person_id = ?", fromPersonID).
		Delete(&types.GroupMember{}).Error
}
