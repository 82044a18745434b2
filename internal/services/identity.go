package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/pkg/dbctx"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

// IdentityService owns the alias indirection: the strings spreadsheets use to
// name someone versus the durable Person they resolve to.
type IdentityService interface {
	Resolve(dbc dbctx.Context, alias string) (*types.Person, error)
	// ResolveFirst tries each candidate alias in order and returns the first
	// Person any of them resolves to. ErrNotFound when none match.
	ResolveFirst(dbc dbctx.Context, candidates []string) (*types.Person, error)
	CreatePerson(dbc dbctx.Context, primaryAlias string, person *types.Person) (*types.Person, error)
	AddAlias(dbc dbctx.Context, personID uuid.UUID, alias string) error
	RemoveAlias(ctx context.Context, personID uuid.UUID, alias string) error
	GetPerson(ctx context.Context, personID uuid.UUID) (*types.Person, error)
	// Merge re-points every alias and dependent record from donor to survivor,
	// then deletes the donor, all in one transaction.
	Merge(ctx context.Context, survivorID, donorID uuid.UUID) (*types.Person, error)
}

type identityService struct {
	db           *gorm.DB
	log          *logger.Logger
	personRepo   repos.PersonRepo
	aliasRepo    repos.AliasRepo
	recordRepo   repos.RecordRepo
	categoryRepo repos.CategoryRepo
	groupRepo    repos.GroupRepo
}

func NewIdentityService(
	db *gorm.DB,
	log *logger.Logger,
	personRepo repos.PersonRepo,
	aliasRepo repos.AliasRepo,
	recordRepo repos.RecordRepo,
	categoryRepo repos.CategoryRepo,
	groupRepo repos.GroupRepo,
) IdentityService {
	serviceLog := log.With("service", "IdentityService")
	return &identityService{
		db:           db,
		log:          serviceLog,
		personRepo:   personRepo,
		aliasRepo:    aliasRepo,
		recordRepo:   recordRepo,
		categoryRepo: categoryRepo,
		groupRepo:    groupRepo,
	}
}

// NormalizeAlias is the single place alias strings are canonicalized before
// any lookup or write, so "Bob@Example.COM " and "bob@example.com" collide.
func NormalizeAlias(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func (is *identityService) Resolve(dbc dbctx.Context, alias string) (*types.Person, error) {
	normalized := NormalizeAlias(alias)
	if normalized == "" {
		return nil, pkgerrors.ErrNotFound
	}
	found, err := is.aliasRepo.GetByValue(dbc.Ctx, dbc.Tx, normalized)
	if err != nil {
		return nil, err
	}
	return is.personRepo.GetByID(dbc.Ctx, dbc.Tx, found.PersonID)
}

func (is *identityService) ResolveFirst(dbc dbctx.Context, candidates []string) (*types.Person, error) {
	for _, candidate := range candidates {
		person, err := is.Resolve(dbc, candidate)
		if err == nil {
			return person, nil
		}
		if !errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, err
		}
	}
	return nil, pkgerrors.ErrNotFound
}

func (is *identityService) CreatePerson(dbc dbctx.Context, primaryAlias string, person *types.Person) (*types.Person, error) {
	normalized := NormalizeAlias(primaryAlias)
	if normalized == "" {
		return nil, fmt.Errorf("%w: primary alias required", pkgerrors.ErrInvalidArgument)
	}

	if _, err := is.aliasRepo.GetByValue(dbc.Ctx, dbc.Tx, normalized); err == nil {
		return nil, fmt.Errorf("%w: alias %q already resolves to a person", pkgerrors.ErrConflict, normalized)
	} else if !errors.Is(err, pkgerrors.ErrNotFound) {
		return nil, err
	}

	created, err := is.personRepo.Create(dbc.Ctx, dbc.Tx, person)
	if err != nil {
		return nil, err
	}
	alias := &types.PersonAlias{Value: normalized, PersonID: created.ID}
	if err := is.aliasRepo.Create(dbc.Ctx, dbc.Tx, []*types.PersonAlias{alias}); err != nil {
		return nil, err
	}
	created.Aliases = []types.PersonAlias{*alias}
	return created, nil
}

func (is *identityService) AddAlias(dbc dbctx.Context, personID uuid.UUID, alias string) error {
	normalized := NormalizeAlias(alias)
	if normalized == "" {
		return fmt.Errorf("%w: alias required", pkgerrors.ErrInvalidArgument)
	}

	existing, err := is.aliasRepo.GetByValue(dbc.Ctx, dbc.Tx, normalized)
	if err == nil {
		if existing.PersonID == personID {
			return nil
		}
		return fmt.Errorf("%w: alias %q already belongs to another person", pkgerrors.ErrConflict, normalized)
	}
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		return err
	}

	return is.aliasRepo.Create(dbc.Ctx, dbc.Tx, []*types.PersonAlias{{Value: normalized, PersonID: personID}})
}

func (is *identityService) RemoveAlias(ctx context.Context, personID uuid.UUID, alias string) error {
	normalized := NormalizeAlias(alias)
	return is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := is.aliasRepo.GetByValue(ctx, tx, normalized)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrNotFound) {
				return fmt.Errorf("%w: alias %q does not exist", pkgerrors.ErrInvariantViolation, normalized)
			}
			return err
		}
		if existing.PersonID != personID {
			return fmt.Errorf("%w: alias %q belongs to a different person", pkgerrors.ErrInvariantViolation, normalized)
		}
		count, err := is.aliasRepo.CountByPerson(ctx, tx, personID)
		if err != nil {
			return err
		}
		if count <= 1 {
			return fmt.Errorf("%w: cannot remove the last alias of a person", pkgerrors.ErrInvariantViolation)
		}
		affected, err := is.aliasRepo.DeleteByValue(ctx, tx, personID, normalized)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: alias %q vanished during removal", pkgerrors.ErrInvariantViolation, normalized)
		}
		return nil
	})
}

func (is *identityService) GetPerson(ctx context.Context, personID uuid.UUID) (*types.Person, error) {
	return is.personRepo.GetByID(ctx, nil, personID)
}

func (is *identityService) Merge(ctx context.Context, survivorID, donorID uuid.UUID) (*types.Person, error) {
	if survivorID == donorID {
		return nil, fmt.Errorf("%w: survivor and donor are the same person", pkgerrors.ErrInvalidArgument)
	}

	var survivor *types.Person
	if err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := is.personRepo.GetByID(ctx, tx, survivorID)
		if err != nil {
			return fmt.Errorf("load survivor: %w", err)
		}
		if _, err := is.personRepo.GetByID(ctx, tx, donorID); err != nil {
			return fmt.Errorf("load donor: %w", err)
		}

		if err := is.aliasRepo.RepointPerson(ctx, tx, donorID, survivorID); err != nil {
			return fmt.Errorf("repoint aliases: %w", err)
		}
		if err := is.mergeRecords(ctx, tx, donorID, survivorID); err != nil {
			return fmt.Errorf("repoint training records: %w", err)
		}
		if err := is.categoryRepo.MergeMemberships(ctx, tx, donorID, survivorID); err != nil {
			return fmt.Errorf("repoint category memberships: %w", err)
		}
		if err := is.groupRepo.MergeMemberships(ctx, tx, donorID, survivorID); err != nil {
			return fmt.Errorf("repoint group memberships: %w", err)
		}
		if err := is.personRepo.Delete(ctx, tx, donorID); err != nil {
			return fmt.Errorf("delete donor: %w", err)
		}

		survivor, err = is.personRepo.GetByID(ctx, tx, survivorID)
		return err
	}); err != nil {
		is.log.Warn("identity merge failed", "survivor", survivorID, "donor", donorID, "error", err)
		return nil, err
	}
	is.log.Info("identities merged", "survivor", survivorID, "donor", donorID)
	return survivor, nil
}

// mergeRecords moves the donor's training records onto the survivor. When both
// hold a record for the same training the newer completion wins and the other
// is dropped, mirroring the upsert rule used during materialization.
func (is *identityService) mergeRecords(ctx context.Context, tx *gorm.DB, donorID, survivorID uuid.UUID) error {
	donorRecords, err := is.recordRepo.ListByPerson(ctx, tx, donorID)
	if err != nil {
		return err
	}
	for _, donorRecord := range donorRecords {
		existing, err := is.recordRepo.GetForUpdate(ctx, tx, survivorID, donorRecord.TrainingID)
		if errors.Is(err, pkgerrors.ErrNotFound) {
			if err := is.recordRepo.UpdateFields(ctx, tx, donorRecord.ID, map[string]any{
				"person_id": survivorID,
			}); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if newerCompletion(donorRecord.CompletedAt, existing.CompletedAt) {
			if err := is.recordRepo.UpdateFields(ctx, tx, existing.ID, map[string]any{
				"completed_at": donorRecord.CompletedAt,
				"expiry_at":    donorRecord.ExpiryAt,
				"status":       donorRecord.Status,
				"source":       donorRecord.Source,
				"notes":        donorRecord.Notes,
				"evidence":     donorRecord.Evidence,
			}); err != nil {
				return err
			}
		}
		if err := is.recordRepo.Delete(ctx, tx, donorRecord.ID); err != nil {
			return err
		}
	}
	return nil
}

// newerCompletion reports whether candidate is strictly newer than current.
// A nil candidate never wins; a nil current always loses to a non-nil one.
func newerCompletion(candidate, current *time.Time) bool {
	if candidate == nil {
		return false
	}
	if current == nil {
		return true
	}
	return candidate.After(*current)
}
