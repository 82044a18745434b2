package importing

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/hswtrack/compliance-backend/internal/data/repos/testutil"
	types "github.com/hswtrack/compliance-backend/internal/domain"
)

func TestRowLifecycleCounts(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	repo := NewRowRepo(db, log)
	batch := testutil.SeedBatch(t, ctx, tx, uuid.New(), uniqueSHA())

	for i := 2; i <= 5; i++ {
		testutil.SeedRow(t, ctx, tx, batch.ID, i, map[string]string{"email": "x@example.com"})
	}

	claimed, err := repo.ClaimPending(ctx, tx, batch.ID)
	if err != nil {
		t.Fatalf("claim pending: %v", err)
	}
	if len(claimed) != 4 {
		t.Fatalf("claimed = %d, want 4", len(claimed))
	}
	for i := 1; i < len(claimed); i++ {
		if claimed[i].RowNumber <= claimed[i-1].RowNumber {
			t.Fatalf("claimed rows out of order: %d before %d", claimed[i-1].RowNumber, claimed[i].RowNumber)
		}
	}

	// two errors, one accepted, one skipped
	for i, status := range []types.RowStatus{types.RowStatusError, types.RowStatusError, types.RowStatusAccepted, types.RowStatusSkipped} {
		if err := repo.UpdateFields(ctx, tx, claimed[i].ID, map[string]any{
			"status":        status,
			"error_details": "boom",
		}); err != nil {
			t.Fatalf("update row: %v", err)
		}
	}

	counts, err := repo.CountByStatus(ctx, tx, batch.ID)
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if counts[types.RowStatusError] != 2 || counts[types.RowStatusAccepted] != 1 || counts[types.RowStatusSkipped] != 1 {
		t.Fatalf("counts = %v", counts)
	}

	reset, err := repo.ResetErrorRows(ctx, tx, batch.ID)
	if err != nil {
		t.Fatalf("reset error rows: %v", err)
	}
	if reset != 2 {
		t.Fatalf("reset = %d, want 2", reset)
	}

	counts, err = repo.CountByStatus(ctx, tx, batch.ID)
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if counts[types.RowStatusPending] != 2 {
		t.Fatalf("pending after reset = %d, want 2", counts[types.RowStatusPending])
	}
	// accepted and skipped rows were not touched
	if counts[types.RowStatusAccepted] != 1 || counts[types.RowStatusSkipped] != 1 {
		t.Fatalf("reset touched unrelated rows: %v", counts)
	}

	pending := types.RowStatusPending
	rows, err := repo.ListByBatch(ctx, tx, batch.ID, &pending, 10, 0)
	if err != nil {
		t.Fatalf("list by batch: %v", err)
	}
	for _, row := range rows {
		if !row.Retried {
			t.Fatalf("reset row %d should carry retried=true", row.RowNumber)
		}
		if row.ErrorDetails != "" {
			t.Fatalf("reset row %d should have cleared error details", row.RowNumber)
		}
	}
}

func TestRowNumberUniquePerBatch(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	repo := NewRowRepo(db, log)
	batch := testutil.SeedBatch(t, ctx, tx, uuid.New(), uniqueSHA())
	testutil.SeedRow(t, ctx, tx, batch.ID, 2, nil)

	err := repo.Create(ctx, tx, []*types.ImportRow{{
		BatchID:   batch.ID,
		RowNumber: 2,
		Raw:       []byte("{}"),
		Status:    types.RowStatusPending,
	}})
	if err == nil {
		t.Fatalf("duplicate row number within a batch must fail")
	}
}

func TestClaimPendingSkipsLockedRows(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	repo := NewRowRepo(db, log)
	// seeded through the pool connection so both transactions can see the rows
	batch := testutil.SeedBatch(t, ctx, db, uuid.New(), uniqueSHA())
	for i := 2; i <= 4; i++ {
		testutil.SeedRow(t, ctx, db, batch.ID, i, map[string]string{"email": "x@example.com"})
	}

	first := db.Begin()
	if first.Error != nil {
		t.Fatalf("begin first tx: %v", first.Error)
	}
	defer first.Rollback()
	second := db.Begin()
	if second.Error != nil {
		t.Fatalf("begin second tx: %v", second.Error)
	}
	defer second.Rollback()

	claimed, err := repo.ClaimPending(ctx, first, batch.ID)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("first claim = %d rows, want 3", len(claimed))
	}

	// rows locked by the first pass are skipped, not awaited
	contested, err := repo.ClaimPending(ctx, second, batch.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(contested) != 0 {
		t.Fatalf("second claim = %d rows, want 0 while the first pass holds them", len(contested))
	}

	// once the first pass settles one row and commits, the rest are claimable
	if err := repo.UpdateFields(ctx, first, claimed[0].ID, map[string]any{
		"status": types.RowStatusAccepted,
	}); err != nil {
		t.Fatalf("update row: %v", err)
	}
	if err := first.Commit().Error; err != nil {
		t.Fatalf("commit first tx: %v", err)
	}

	remaining, err := repo.ClaimPending(ctx, second, batch.ID)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("reclaim = %d rows, want the 2 still pending", len(remaining))
	}
}

func uniqueSHA() string {
	u := uuid.New()
	return u.String() + u.String()[:28]
}
