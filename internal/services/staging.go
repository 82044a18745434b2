package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/ingestion/tabular"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/templates"
)

// StagingService owns the batch lifecycle up to validation: upload intake,
// duplicate detection, row staging, settle, and the two retry operations.
type StagingService interface {
	// StageBatch ingests one uploaded file. Fails with ErrDuplicateUpload when
	// the content hash already exists. A file that cannot be parsed still
	// produces a batch, in status FAILED with the parse error as its message,
	// and the returned error wraps ErrParseFailure.
	StageBatch(ctx context.Context, uploaderID uuid.UUID, templateName, fileName string, data []byte) (*types.ImportBatch, error)
	GetBatch(ctx context.Context, batchID uuid.UUID) (*types.ImportBatch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]*types.ImportBatch, error)
	ListRows(ctx context.Context, batchID uuid.UUID, status *types.RowStatus, limit, offset int) ([]*types.ImportRow, error)
	// Settle recounts rows per status and moves the batch to COMPLETED when
	// every row reached a terminal status, PARTIAL otherwise.
	Settle(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*types.ImportBatch, error)
	// RetryBatch discards all row state and restages from the original upload
	// bytes. Idempotent: a second call reproduces the same row set.
	RetryBatch(ctx context.Context, batchID uuid.UUID) (*types.ImportBatch, error)
	// RetryFailedRows resets ERROR rows to PENDING for another process pass
	// and returns how many were reset.
	RetryFailedRows(ctx context.Context, batchID uuid.UUID) (int64, error)
}

type stagingService struct {
	db        *gorm.DB
	log       *logger.Logger
	source    tabular.Source
	registry  *templates.Registry
	batchRepo repos.BatchRepo
	rowRepo   repos.RowRepo
}

func NewStagingService(
	db *gorm.DB,
	log *logger.Logger,
	source tabular.Source,
	registry *templates.Registry,
	batchRepo repos.BatchRepo,
	rowRepo repos.RowRepo,
) StagingService {
	serviceLog := log.With("service", "StagingService")
	return &stagingService{
		db:        db,
		log:       serviceLog,
		source:    source,
		registry:  registry,
		batchRepo: batchRepo,
		rowRepo:   rowRepo,
	}
}

func (ss *stagingService) StageBatch(ctx context.Context, uploaderID uuid.UUID, templateName, fileName string, data []byte) (*types.ImportBatch, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", pkgerrors.ErrInvalidArgument)
	}
	tpl, ok := ss.registry.Get(templateName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown template %q", pkgerrors.ErrInvalidArgument, templateName)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	exists, err := ss.batchRepo.ExistsBySHA256(ctx, nil, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: file already uploaded", pkgerrors.ErrDuplicateUpload)
	}

	var batch *types.ImportBatch
	var parseErr error
	if err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := ss.batchRepo.Create(ctx, tx, &types.ImportBatch{
			UploaderID:      uploaderID,
			TemplateUsed:    tpl.Name,
			TemplateVersion: tpl.Version,
			FileName:        fileName,
			FileSHA256:      hash,
			SourceData:      data,
			Status:          types.BatchStatusPending,
			ReceivedAt:      time.Now().UTC(),
		})
		if err != nil {
			if errors.Is(err, pkgerrors.ErrConflict) {
				return fmt.Errorf("%w: file already uploaded", pkgerrors.ErrDuplicateUpload)
			}
			return err
		}
		batch = created
		parseErr = ss.stage(ctx, tx, batch)
		return nil
	}); err != nil {
		return nil, err
	}

	if parseErr != nil {
		ss.log.Warn("batch staging failed at parse", "batch_id", batch.ID, "error", parseErr)
		return batch, fmt.Errorf("%w: %v", pkgerrors.ErrParseFailure, parseErr)
	}
	ss.log.Info("batch staged", "batch_id", batch.ID, "rows", batch.TotalRows, "template", tpl.Name)
	return batch, nil
}

// stage atomically replaces the batch's row set with freshly parsed rows. A
// parse error marks the batch FAILED and leaves no partial row set behind;
// the error is returned for the caller to surface.
func (ss *stagingService) stage(ctx context.Context, tx *gorm.DB, batch *types.ImportBatch) error {
	parsed, err := ss.source.Parse(bytes.NewReader(batch.SourceData), batch.FileName)
	if err != nil {
		batch.Status = types.BatchStatusFailed
		batch.ResultMessage = fmt.Sprintf("parse failed: %v", err)
		if uerr := ss.batchRepo.UpdateFields(ctx, tx, batch.ID, map[string]any{
			"status":         types.BatchStatusFailed,
			"result_message": batch.ResultMessage,
			"total_rows":     0,
			"accepted_rows":  0,
			"error_rows":     0,
			"skipped_rows":   0,
		}); uerr != nil {
			return uerr
		}
		return err
	}

	if err := ss.rowRepo.DeleteByBatch(ctx, tx, batch.ID); err != nil {
		return err
	}

	rows := make([]*types.ImportRow, 0, len(parsed))
	for _, src := range parsed {
		raw, err := json.Marshal(src.Fields)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", src.Number, err)
		}
		rows = append(rows, &types.ImportRow{
			BatchID:   batch.ID,
			RowNumber: src.Number,
			Raw:       datatypes.JSON(raw),
			Status:    types.RowStatusPending,
		})
	}
	if err := ss.rowRepo.Create(ctx, tx, rows); err != nil {
		return err
	}

	status := types.BatchStatusCompleted
	message := "no data rows found"
	if len(rows) > 0 {
		status = types.BatchStatusPartial
		message = fmt.Sprintf("staged %d rows", len(rows))
	}
	batch.Status = status
	batch.ResultMessage = message
	batch.TotalRows = len(rows)
	batch.AcceptedRows = 0
	batch.ErrorRows = 0
	batch.SkippedRows = 0
	return ss.batchRepo.UpdateFields(ctx, tx, batch.ID, map[string]any{
		"status":         status,
		"result_message": message,
		"total_rows":     len(rows),
		"accepted_rows":  0,
		"error_rows":     0,
		"skipped_rows":   0,
	})
}

func (ss *stagingService) GetBatch(ctx context.Context, batchID uuid.UUID) (*types.ImportBatch, error) {
	return ss.batchRepo.GetByID(ctx, nil, batchID)
}

func (ss *stagingService) ListBatches(ctx context.Context, limit, offset int) ([]*types.ImportBatch, error) {
	return ss.batchRepo.List(ctx, nil, limit, offset)
}

func (ss *stagingService) ListRows(ctx context.Context, batchID uuid.UUID, status *types.RowStatus, limit, offset int) ([]*types.ImportRow, error) {
	return ss.rowRepo.ListByBatch(ctx, nil, batchID, status, limit, offset)
}

func (ss *stagingService) Settle(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*types.ImportBatch, error) {
	settle := func(tx *gorm.DB) (*types.ImportBatch, error) {
		batch, err := ss.batchRepo.GetForUpdate(ctx, tx, batchID)
		if err != nil {
			return nil, err
		}
		counts, err := ss.rowRepo.CountByStatus(ctx, tx, batchID)
		if err != nil {
			return nil, err
		}

		// materialized rows were accepted first, so they stay in that bucket
		accepted := counts[types.RowStatusAccepted] + counts[types.RowStatusProcessed]
		errored := counts[types.RowStatusError]
		skipped := counts[types.RowStatusSkipped]

		// error rows keep the batch PARTIAL so operators can see there is
		// something left to retry
		status := types.BatchStatusPartial
		if accepted+errored+skipped == batch.TotalRows && errored == 0 {
			status = types.BatchStatusCompleted
		}
		now := time.Now().UTC()
		message := fmt.Sprintf("accepted=%d error=%d skipped=%d of %d", accepted, errored, skipped, batch.TotalRows)
		if err := ss.batchRepo.UpdateFields(ctx, tx, batchID, map[string]any{
			"status":         status,
			"result_message": message,
			"accepted_rows":  accepted,
			"error_rows":     errored,
			"skipped_rows":   skipped,
			"processed_at":   now,
		}); err != nil {
			return nil, err
		}
		batch.Status = status
		batch.ResultMessage = message
		batch.AcceptedRows = accepted
		batch.ErrorRows = errored
		batch.SkippedRows = skipped
		batch.ProcessedAt = &now
		return batch, nil
	}

	if tx != nil {
		return settle(tx)
	}
	var out *types.ImportBatch
	if err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := settle(tx)
		if err != nil {
			return err
		}
		out = batch
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (ss *stagingService) RetryBatch(ctx context.Context, batchID uuid.UUID) (*types.ImportBatch, error) {
	var batch *types.ImportBatch
	var parseErr error
	if err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := ss.batchRepo.GetForUpdate(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if len(locked.SourceData) == 0 {
			return fmt.Errorf("%w: batch has no stored source to restage", pkgerrors.ErrInvariantViolation)
		}
		now := time.Now().UTC()
		if err := ss.batchRepo.UpdateFields(ctx, tx, batchID, map[string]any{
			"status":            types.BatchStatusPending,
			"reprocess_count":   gorm.Expr("reprocess_count + 1"),
			"last_reprocess_at": now,
			"processed_at":      nil,
		}); err != nil {
			return err
		}
		locked.Status = types.BatchStatusPending
		locked.ReprocessCount++
		locked.LastReprocessAt = &now
		batch = locked
		parseErr = ss.stage(ctx, tx, locked)
		return nil
	}); err != nil {
		return nil, err
	}
	if parseErr != nil {
		return batch, fmt.Errorf("%w: %v", pkgerrors.ErrParseFailure, parseErr)
	}
	ss.log.Info("batch restaged", "batch_id", batchID, "rows", batch.TotalRows, "reprocess_count", batch.ReprocessCount)
	return batch, nil
}

func (ss *stagingService) RetryFailedRows(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var reset int64
	if err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ss.batchRepo.GetForUpdate(ctx, tx, batchID); err != nil {
			return err
		}
		n, err := ss.rowRepo.ResetErrorRows(ctx, tx, batchID)
		if err != nil {
			return err
		}
		reset = n
		return nil
	}); err != nil {
		return 0, err
	}
	ss.log.Info("error rows reset", "batch_id", batchID, "count", reset)
	return reset, nil
}
