package training

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func TestNewFieldValueSetsExactlyOneColumn(t *testing.T) {
	recordID := uuid.New()
	defID := uuid.New()

	cases := []struct {
		name  string
		value TypedValue
		check func(t *testing.T, fv *TrainingRecordFieldValue)
	}{
		{
			name:  "text",
			value: TextValue("welding bay 3"),
			check: func(t *testing.T, fv *TrainingRecordFieldValue) {
				if fv.ValueText == nil || *fv.ValueText != "welding bay 3" {
					t.Fatalf("expected text column set, got %+v", fv)
				}
			},
		},
		{
			name:  "number",
			value: NumberValue(87.5),
			check: func(t *testing.T, fv *TrainingRecordFieldValue) {
				if fv.ValueNumber == nil || *fv.ValueNumber != 87.5 {
					t.Fatalf("expected number column set, got %+v", fv)
				}
			},
		},
		{
			name:  "date",
			value: DateValue(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
			check: func(t *testing.T, fv *TrainingRecordFieldValue) {
				if fv.ValueDate == nil || fv.ValueDate.Day() != 1 {
					t.Fatalf("expected date column set, got %+v", fv)
				}
			},
		},
		{
			name:  "boolean",
			value: BooleanValue(true),
			check: func(t *testing.T, fv *TrainingRecordFieldValue) {
				if fv.ValueBoolean == nil || !*fv.ValueBoolean {
					t.Fatalf("expected boolean column set, got %+v", fv)
				}
			},
		},
		{
			name:  "select_shares_text_column",
			value: SelectValue("external"),
			check: func(t *testing.T, fv *TrainingRecordFieldValue) {
				if fv.ValueText == nil || *fv.ValueText != "external" {
					t.Fatalf("expected text column set for select, got %+v", fv)
				}
			},
		},
		{
			name:  "json",
			value: JSONValue(datatypes.JSON([]byte(`{"cert":"A-1"}`))),
			check: func(t *testing.T, fv *TrainingRecordFieldValue) {
				if len(fv.ValueJSON) == 0 {
					t.Fatalf("expected json column set, got %+v", fv)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fv, err := NewFieldValue(recordID, defID, tc.value)
			if err != nil {
				t.Fatalf("NewFieldValue: %v", err)
			}
			tc.check(t, fv)

			set := 0
			if fv.ValueText != nil {
				set++
			}
			if fv.ValueNumber != nil {
				set++
			}
			if fv.ValueDate != nil {
				set++
			}
			if fv.ValueBoolean != nil {
				set++
			}
			if len(fv.ValueJSON) != 0 {
				set++
			}
			if set != 1 {
				t.Fatalf("expected exactly one value column set, got %d: %+v", set, fv)
			}
		})
	}
}

func TestNewFieldValueRejectsZeroVariant(t *testing.T) {
	if _, err := NewFieldValue(uuid.New(), uuid.New(), TypedValue{}); err == nil {
		t.Fatal("expected error for zero variant")
	}
	if _, err := NewFieldValue(uuid.Nil, uuid.New(), TextValue("x")); err == nil {
		t.Fatal("expected error for missing record id")
	}
}

func TestComputeExpiry(t *testing.T) {
	completed := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	days := 30

	fixed := &Training{ExpiryMode: ExpiryModeFixedDays, DefaultExpiryDays: &days}
	exp := ComputeExpiry(fixed, &completed)
	if exp == nil {
		t.Fatal("expected expiry for fixed_days training")
	}
	if want := completed.AddDate(0, 0, 30); !exp.Equal(want) {
		t.Fatalf("expiry = %v, want %v", exp, want)
	}

	if ComputeExpiry(&Training{ExpiryMode: ExpiryModeNone}, &completed) != nil {
		t.Fatal("expected no expiry for none mode")
	}
	if ComputeExpiry(&Training{ExpiryMode: ExpiryModePerRecord}, &completed) != nil {
		t.Fatal("per_record expiry is caller-supplied, compute must return nil")
	}
	if ComputeExpiry(fixed, nil) != nil {
		t.Fatal("expected no expiry without completion timestamp")
	}
}
