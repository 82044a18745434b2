package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/hswtrack/compliance-backend/internal/domain"
)

func SeedPerson(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.Person {
	tb.Helper()
	p := &types.Person{
		ID:         uuid.New(),
		FirstName:  "A",
		LastName:   "B",
		Email:      email,
		PersonType: types.PersonTypeStaff,
		Active:     true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed person: %v", err)
	}
	return p
}

func SeedAlias(tb testing.TB, ctx context.Context, tx *gorm.DB, personID uuid.UUID, value string) *types.PersonAlias {
	tb.Helper()
	a := &types.PersonAlias{
		ID:       uuid.New(),
		Value:    value,
		PersonID: personID,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed alias: %v", err)
	}
	return a
}

func SeedTraining(tb testing.TB, ctx context.Context, tx *gorm.DB, code string, mode types.ExpiryMode, days *int) *types.Training {
	tb.Helper()
	t := &types.Training{
		ID:                uuid.New(),
		Code:              code,
		Title:             "Training " + code,
		Active:            true,
		ExpiryMode:        mode,
		DefaultExpiryDays: days,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed training: %v", err)
	}
	return t
}

func SeedBatch(tb testing.TB, ctx context.Context, tx *gorm.DB, uploaderID uuid.UUID, sha string) *types.ImportBatch {
	tb.Helper()
	b := &types.ImportBatch{
		ID:           uuid.New(),
		UploaderID:   uploaderID,
		TemplateUsed: "training_records",
		FileName:     "upload.csv",
		FileSHA256:   sha,
		Status:       types.BatchStatusPending,
		ReceivedAt:   time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed batch: %v", err)
	}
	return b
}

func SeedRow(tb testing.TB, ctx context.Context, tx *gorm.DB, batchID uuid.UUID, number int, raw map[string]string) *types.ImportRow {
	tb.Helper()
	rawJSON := datatypes.JSON([]byte("{}"))
	if raw != nil {
		b, err := json.Marshal(raw)
		if err != nil {
			tb.Fatalf("marshal raw row: %v", err)
		}
		rawJSON = datatypes.JSON(b)
	}
	r := &types.ImportRow{
		ID:        uuid.New(),
		BatchID:   batchID,
		RowNumber: number,
		Raw:       rawJSON,
		Status:    types.RowStatusPending,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed row: %v", err)
	}
	return r
}

func SeedRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, personID, trainingID uuid.UUID, completedAt *time.Time) *types.TrainingRecord {
	tb.Helper()
	r := &types.TrainingRecord{
		ID:          uuid.New(),
		PersonID:    personID,
		TrainingID:  trainingID,
		CompletedAt: completedAt,
		Status:      types.RecordStatusValid,
		Source:      types.RecordSourceBulkUpload,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed record: %v", err)
	}
	return r
}

func PtrInt(v int) *int { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
