package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/utils"
)

// BootstrapService seeds the deployment's initial operator account. It is
// invoked explicitly by deployment tooling, never by a migration hook, and is
// idempotent: re-running converges on the same account.
type BootstrapService interface {
	Run(ctx context.Context) error
	EnsureAccount(ctx context.Context, subject, displayName string, role types.AccountRole) (*types.Account, error)
}

type bootstrapService struct {
	db          *gorm.DB
	log         *logger.Logger
	accountRepo repos.AccountRepo
}

func NewBootstrapService(db *gorm.DB, log *logger.Logger, accountRepo repos.AccountRepo) BootstrapService {
	serviceLog := log.With("service", "BootstrapService")
	return &bootstrapService{db: db, log: serviceLog, accountRepo: accountRepo}
}

// Run seeds the admin declared by BOOTSTRAP_ADMIN_SUBJECT. Without that
// variable there is nothing to do, which keeps plain deployments quiet.
func (bs *bootstrapService) Run(ctx context.Context) error {
	subject := strings.TrimSpace(utils.GetEnv("BOOTSTRAP_ADMIN_SUBJECT", "", bs.log))
	if subject == "" {
		bs.log.Debug("no bootstrap admin configured, skipping")
		return nil
	}
	displayName := utils.GetEnv("BOOTSTRAP_ADMIN_NAME", "Administrator", bs.log)
	_, err := bs.EnsureAccount(ctx, subject, displayName, types.AccountRoleAdmin)
	return err
}

func (bs *bootstrapService) EnsureAccount(ctx context.Context, subject, displayName string, role types.AccountRole) (*types.Account, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject required", pkgerrors.ErrInvalidArgument)
	}

	var out *types.Account
	if err := bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := bs.accountRepo.Upsert(ctx, tx, &types.Account{
			Subject:     subject,
			DisplayName: displayName,
			Role:        role,
			Active:      true,
		})
		if err != nil {
			return err
		}
		out = account
		return nil
	}); err != nil {
		return nil, err
	}
	bs.log.Info("account ensured", "subject", subject, "role", role)
	return out, nil
}
