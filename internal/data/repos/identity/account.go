package identity

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type AccountRepo interface {
	GetBySubject(ctx context.Context, tx *gorm.DB, subject string) (*types.Account, error)
	Upsert(ctx context.Context, tx *gorm.DB, account *types.Account) (*types.Account, error)
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	repoLog := baseLog.With("repo", "AccountRepo")
	return &accountRepo{db: db, log: repoLog}
}

func (ar *accountRepo) GetBySubject(ctx context.Context, tx *gorm.DB, subject string) (*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var account types.Account
	if err := transaction.WithContext(ctx).
		Where("subject = ?", subject).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (ar *accountRepo) Upsert(ctx context.Context, tx *gorm.DB, account *types.Account) (*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "role", "active", "updated_at"}),
		}).
		Create(account).Error; err != nil {
		return nil, err
	}
	var out types.Account
	if err := transaction.WithContext(ctx).
		Where("subject = ?", account.Subject).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
