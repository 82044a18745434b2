package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

// RecordService covers record reads and the status maintenance that runs
// outside the import pipeline.
type RecordService interface {
	Get(ctx context.Context, recordID uuid.UUID) (*types.TrainingRecord, []*types.TrainingRecordFieldValue, error)
	ListForPerson(ctx context.Context, personID uuid.UUID) ([]*types.TrainingRecord, error)
	ListForTraining(ctx context.Context, trainingID uuid.UUID, limit, offset int) ([]*types.TrainingRecord, error)
	// SweepExpiry flips valid records whose expiry has passed to EXPIRED.
	// Callers invoke it on their own schedule; nothing here schedules it.
	SweepExpiry(ctx context.Context) (int64, error)
	Revoke(ctx context.Context, recordID uuid.UUID, notes string) (*types.TrainingRecord, error)
}

type recordService struct {
	db             *gorm.DB
	log            *logger.Logger
	recordRepo     repos.RecordRepo
	fieldValueRepo repos.FieldValueRepo
}

func NewRecordService(db *gorm.DB, log *logger.Logger, recordRepo repos.RecordRepo, fieldValueRepo repos.FieldValueRepo) RecordService {
	serviceLog := log.With("service", "RecordService")
	return &recordService{
		db:             db,
		log:            serviceLog,
		recordRepo:     recordRepo,
		fieldValueRepo: fieldValueRepo,
	}
}

func (rs *recordService) Get(ctx context.Context, recordID uuid.UUID) (*types.TrainingRecord, []*types.TrainingRecordFieldValue, error) {
	record, err := rs.recordRepo.GetByID(ctx, nil, recordID)
	if err != nil {
		return nil, nil, err
	}
	values, err := rs.fieldValueRepo.ListByRecord(ctx, nil, recordID)
	if err != nil {
		return nil, nil, err
	}
	return record, values, nil
}

func (rs *recordService) ListForPerson(ctx context.Context, personID uuid.UUID) ([]*types.TrainingRecord, error) {
	return rs.recordRepo.ListByPerson(ctx, nil, personID)
}

func (rs *recordService) ListForTraining(ctx context.Context, trainingID uuid.UUID, limit, offset int) ([]*types.TrainingRecord, error) {
	return rs.recordRepo.ListByTraining(ctx, nil, trainingID, limit, offset)
}

func (rs *recordService) SweepExpiry(ctx context.Context) (int64, error) {
	var flipped int64
	if err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := rs.recordRepo.MarkExpired(ctx, tx, time.Now().UTC())
		if err != nil {
			return err
		}
		flipped = n
		return nil
	}); err != nil {
		return 0, err
	}
	if flipped > 0 {
		rs.log.Info("expiry sweep flipped records", "count", flipped)
	}
	return flipped, nil
}

func (rs *recordService) Revoke(ctx context.Context, recordID uuid.UUID, notes string) (*types.TrainingRecord, error) {
	var out *types.TrainingRecord
	if err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := rs.recordRepo.GetByID(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if record.Status == types.RecordStatusRevoked {
			return fmt.Errorf("%w: record already revoked", pkgerrors.ErrInvalidArgument)
		}
		updates := map[string]any{"status": types.RecordStatusRevoked}
		if notes != "" {
			updates["notes"] = notes
		}
		if err := rs.recordRepo.UpdateFields(ctx, tx, recordID, updates); err != nil {
			return err
		}
		record.Status = types.RecordStatusRevoked
		if notes != "" {
			record.Notes = notes
		}
		out = record
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}
