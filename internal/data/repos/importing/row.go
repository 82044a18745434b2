package importing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

type RowRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.ImportRow) error
	DeleteByBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) error
	// ClaimPending locks the batch's PENDING rows with FOR UPDATE SKIP LOCKED,
	// in row-number order. Rows owned by a concurrent pass are excluded, not
	// awaited.
	ClaimPending(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]*types.ImportRow, error)
	// GetAcceptedForUpdate locks every ACCEPTED row of the batch for the
	// single atomic materialization pass.
	GetAcceptedForUpdate(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]*types.ImportRow, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	CountByStatus(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (map[types.RowStatus]int, error)
	// ResetErrorRows returns ERROR rows to PENDING with cleared error state
	// and retried=true, leaving all other rows untouched.
	ResetErrorRows(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (int64, error)
	ListByBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, status *types.RowStatus, limit, offset int) ([]*types.ImportRow, error)
}

type rowRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRowRepo(db *gorm.DB, baseLog *logger.Logger) RowRepo {
	repoLog := baseLog.With("repo", "RowRepo")
	return &rowRepo{db: db, log: repoLog}
}

func (rr *rowRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ImportRow) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).CreateInBatches(&rows, 1000).Error
}

func (rr *rowRepo) DeleteByBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Delete(&types.ImportRow{}).Error
}

func (rr *rowRepo) ClaimPending(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]*types.ImportRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var rows []*types.ImportRow
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("batch_id = ? AND status = ?", batchID, types.RowStatusPending).
		Order("row_number").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (rr *rowRepo) GetAcceptedForUpdate(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]*types.ImportRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var rows []*types.ImportRow
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("batch_id = ? AND status = ?", batchID, types.RowStatusAccepted).
		Order("row_number").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (rr *rowRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ImportRow{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (rr *rowRepo) CountByStatus(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (map[types.RowStatus]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var buckets []struct {
		Status types.RowStatus
		N      int
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ImportRow{}).
		Select("status, count(*) as n").
		Where("batch_id = ?", batchID).
		Group("status").
		Scan(&buckets).Error; err != nil {
		return nil, err
	}
	counts := make(map[types.RowStatus]int, len(buckets))
	for _, b := range buckets {
		counts[b.Status] = b.N
	}
	return counts, nil
}

func (rr *rowRepo) ResetErrorRows(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.ImportRow{}).
		Where("batch_id = ? AND status = ?", batchID, types.RowStatusError).
		Updates(map[string]any{
			"status":        types.RowStatusPending,
			"error_details": "",
			"action_taken":  "",
			"processed_at":  nil,
			"retried":       true,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (rr *rowRepo) ListByBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, status *types.RowStatus, limit, offset int) ([]*types.ImportRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if limit <= 0 {
		limit = 200
	}
	q := transaction.WithContext(ctx).
		Where("batch_id = ?", batchID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []*types.ImportRow
	if err := q.Order("row_number").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
