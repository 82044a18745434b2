package services

import (
	"context"
	"encoding/json"
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
	"github.com/hswtrack/compliance-backend/internal/realtime"
	"github.com/hswtrack/compliance-backend/internal/realtime/bus"
	"github.com/hswtrack/compliance-backend/internal/templates"
)

// ProcessResult aggregates one validation pass over a batch's PENDING rows.
type ProcessResult struct {
	Accepted int `json:"accepted"`
	Errors   int `json:"errors"`
	Skipped  int `json:"skipped"`
}

// PipelineService sequences staging, validation, materialization, and settle.
// It is the only component that writes batch-level status during processing.
type PipelineService interface {
	// Process validates every PENDING row it can claim, marking each ACCEPTED
	// or ERROR, then settles the batch.
	Process(ctx context.Context, batchID uuid.UUID) (*ProcessResult, error)
	// MaterializeAccepted reconciles the batch's ACCEPTED rows into durable
	// records and settles. Per-row failures stay on their rows; the batch
	// itself only fails on a transaction-level abort.
	MaterializeAccepted(ctx context.Context, batchID uuid.UUID) (*MaterializeResult, error)
	RetryBatch(ctx context.Context, batchID uuid.UUID) (*types.ImportBatch, error)
	RetryFailedRows(ctx context.Context, batchID uuid.UUID) (int64, error)
}

type pipelineService struct {
	db             *gorm.DB
	log            *logger.Logger
	registry       *templates.Registry
	validator      RowValidator
	staging        StagingService
	reconciliation ReconciliationService
	batchRepo      repos.BatchRepo
	rowRepo        repos.RowRepo
	progress       bus.Bus
}

func NewPipelineService(
	db *gorm.DB,
	log *logger.Logger,
	registry *templates.Registry,
	validator RowValidator,
	staging StagingService,
	reconciliation ReconciliationService,
	batchRepo repos.BatchRepo,
	rowRepo repos.RowRepo,
	progress bus.Bus,
) PipelineService {
	serviceLog := log.With("service", "PipelineService")
	if progress == nil {
		progress = bus.NewNoopBus()
	}
	return &pipelineService{
		db:             db,
		log:            serviceLog,
		registry:       registry,
		validator:      validator,
		staging:        staging,
		reconciliation: reconciliation,
		batchRepo:      batchRepo,
		rowRepo:        rowRepo,
		progress:       progress,
	}
}

func (ps *pipelineService) Process(ctx context.Context, batchID uuid.UUID) (*ProcessResult, error) {
	result := &ProcessResult{}
	var settled *types.ImportBatch
	if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := ps.batchRepo.GetForUpdate(ctx, tx, batchID)
		if err != nil {
			return err
		}
		tpl, ok := ps.registry.Get(batch.TemplateUsed)
		if !ok {
			return fmt.Errorf("%w: batch declares unknown template %q", pkgerrors.ErrInvalidArgument, batch.TemplateUsed)
		}
		if err := ps.batchRepo.UpdateFields(ctx, tx, batchID, map[string]any{
			"status": types.BatchStatusProcessing,
		}); err != nil {
			return err
		}

		// rows locked by a concurrent pass are excluded, not awaited
		rows, err := ps.rowRepo.ClaimPending(ctx, tx, batchID)
		if err != nil {
			return err
		}

		for _, row := range rows {
			var fields map[string]string
			if err := json.Unmarshal(row.Raw, &fields); err != nil {
				result.Errors++
				if uerr := ps.rowRepo.UpdateFields(ctx, tx, row.ID, map[string]any{
					"status":        types.RowStatusError,
					"error_details": fmt.Sprintf("row %d: undecodable field map: %v", row.RowNumber, err),
				}); uerr != nil {
					return uerr
				}
				continue
			}

			verdict := ps.validator.Validate(tabular.Row{Number: row.RowNumber, Fields: fields}, tpl)
			if !verdict.Accepted {
				result.Errors++
				if uerr := ps.rowRepo.UpdateFields(ctx, tx, row.ID, map[string]any{
					"status":        types.RowStatusError,
					"error_details": fmt.Sprintf("row %d: %s", row.RowNumber, verdict.Reason),
				}); uerr != nil {
					return uerr
				}
				continue
			}

			normalized, err := json.Marshal(verdict.Normalized)
			if err != nil {
				return fmt.Errorf("encode normalized row %d: %w", row.RowNumber, err)
			}
			result.Accepted++
			if uerr := ps.rowRepo.UpdateFields(ctx, tx, row.ID, map[string]any{
				"status":        types.RowStatusAccepted,
				"normalized":    datatypes.JSON(normalized),
				"error_details": "",
			}); uerr != nil {
				return uerr
			}
		}

		settled, err = ps.staging.Settle(ctx, tx, batchID)
		return err
	}); err != nil {
		ps.markBatchFailed(ctx, batchID, err)
		return nil, err
	}

	result.Skipped = settled.SkippedRows
	ps.publish(ctx, settled, realtime.StageProcessed, "")
	ps.log.Info("batch processed",
		"batch_id", batchID,
		"accepted", result.Accepted,
		"errors", result.Errors,
		"status", settled.Status)
	return result, nil
}

func (ps *pipelineService) MaterializeAccepted(ctx context.Context, batchID uuid.UUID) (*MaterializeResult, error) {
	result, err := ps.reconciliation.MaterializeBatch(ctx, batchID)
	if err != nil {
		ps.markBatchFailed(ctx, batchID, err)
		return nil, err
	}
	settled, err := ps.staging.Settle(ctx, nil, batchID)
	if err != nil {
		return nil, err
	}
	ps.publish(ctx, settled, realtime.StageMaterialized, "")
	return result, nil
}

func (ps *pipelineService) RetryBatch(ctx context.Context, batchID uuid.UUID) (*types.ImportBatch, error) {
	batch, err := ps.staging.RetryBatch(ctx, batchID)
	if batch != nil {
		ps.publish(ctx, batch, realtime.StageRetried, batch.ResultMessage)
	}
	return batch, err
}

func (ps *pipelineService) RetryFailedRows(ctx context.Context, batchID uuid.UUID) (int64, error) {
	return ps.staging.RetryFailedRows(ctx, batchID)
}

// markBatchFailed records a batch-level abort. Recoverable via RetryBatch.
func (ps *pipelineService) markBatchFailed(ctx context.Context, batchID uuid.UUID, cause error) {
	message := fmt.Sprintf("pipeline aborted: %v", cause)
	if err := ps.batchRepo.UpdateFields(ctx, nil, batchID, map[string]any{
		"status":         types.BatchStatusFailed,
		"result_message": message,
	}); err != nil {
		ps.log.Error("failed to mark batch failed", "batch_id", batchID, "error", err)
	}
}

func (ps *pipelineService) publish(ctx context.Context, batch *types.ImportBatch, stage, message string) {
	event := realtime.ProgressEvent{
		BatchID:  batch.ID.String(),
		Stage:    stage,
		Status:   string(batch.Status),
		Total:    batch.TotalRows,
		Accepted: batch.AcceptedRows,
		Errors:   batch.ErrorRows,
		Skipped:  batch.SkippedRows,
		Message:  message,
		At:       time.Now().UTC(),
	}
	if err := ps.progress.Publish(ctx, event); err != nil {
		ps.log.Warn("progress publish failed", "batch_id", batch.ID, "stage", stage, "error", err)
	}
}
