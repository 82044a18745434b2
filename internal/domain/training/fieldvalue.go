package training

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TypedValue is the tagged variant behind a dynamic field value: exactly one
// payload is set, chosen by the constructor. Storing a value goes through
// NewFieldValue, so "exactly one non-null column" is a construction invariant
// rather than a runtime check.
type TypedValue struct {
	kind    FieldDataType
	text    string
	number  float64
	date    time.Time
	boolean bool
	raw     datatypes.JSON
}

func TextValue(s string) TypedValue {
	return TypedValue{kind: FieldTypeText, text: s}
}

func NumberValue(f float64) TypedValue {
	return TypedValue{kind: FieldTypeNumber, number: f}
}

func DateValue(t time.Time) TypedValue {
	return TypedValue{kind: FieldTypeDate, date: t}
}

func BooleanValue(b bool) TypedValue {
	return TypedValue{kind: FieldTypeBoolean, boolean: b}
}

// SelectValue stores a validated SELECT choice; it shares the text column.
func SelectValue(s string) TypedValue {
	return TypedValue{kind: FieldTypeSelect, text: s}
}

func JSONValue(raw datatypes.JSON) TypedValue {
	return TypedValue{kind: FieldTypeJSON, raw: raw}
}

func (v TypedValue) Kind() FieldDataType { return v.kind }

// Zero reports whether the value was never constructed through a variant
// constructor.
func (v TypedValue) Zero() bool { return v.kind == "" }

func (v TypedValue) String() string {
	switch v.kind {
	case FieldTypeText, FieldTypeSelect:
		return v.text
	case FieldTypeNumber:
		return fmt.Sprintf("%g", v.number)
	case FieldTypeDate:
		return v.date.Format("2006-01-02")
	case FieldTypeBoolean:
		return fmt.Sprintf("%t", v.boolean)
	case FieldTypeJSON:
		return string(v.raw)
	default:
		return ""
	}
}

// TrainingRecordFieldValue is the stored shape of one dynamic field value.
// Exactly one value column is non-null per row, guaranteed by NewFieldValue.
type TrainingRecordFieldValue struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecordID   uuid.UUID `gorm:"type:uuid;column:record_id;not null;uniqueIndex:uq_record_fielddef" json:"record_id"`
	FieldDefID uuid.UUID `gorm:"type:uuid;column:field_def_id;not null;uniqueIndex:uq_record_fielddef" json:"field_def_id"`

	ValueText    *string        `gorm:"column:value_text" json:"value_text,omitempty"`
	ValueNumber  *float64       `gorm:"column:value_number" json:"value_number,omitempty"`
	ValueDate    *time.Time     `gorm:"column:value_date" json:"value_date,omitempty"`
	ValueBoolean *bool          `gorm:"column:value_boolean" json:"value_boolean,omitempty"`
	ValueJSON    datatypes.JSON `gorm:"column:value_json" json:"value_json,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrainingRecordFieldValue) TableName() string { return "training_record_field_value" }

// NewFieldValue builds the stored row from a typed variant. It is the only
// way field values are constructed, so a row always carries exactly one
// non-null value column.
func NewFieldValue(recordID, fieldDefID uuid.UUID, v TypedValue) (*TrainingRecordFieldValue, error) {
	if recordID == uuid.Nil || fieldDefID == uuid.Nil {
		return nil, fmt.Errorf("field value requires record and field def ids")
	}
	if v.Zero() {
		return nil, fmt.Errorf("field value requires a typed payload")
	}
	fv := &TrainingRecordFieldValue{RecordID: recordID, FieldDefID: fieldDefID}
	switch v.kind {
	case FieldTypeText, FieldTypeSelect:
		text := v.text
		fv.ValueText = &text
	case FieldTypeNumber:
		number := v.number
		fv.ValueNumber = &number
	case FieldTypeDate:
		date := v.date
		fv.ValueDate = &date
	case FieldTypeBoolean:
		boolean := v.boolean
		fv.ValueBoolean = &boolean
	case FieldTypeJSON:
		fv.ValueJSON = v.raw
	default:
		return nil, fmt.Errorf("unsupported field data type %q", v.kind)
	}
	return fv, nil
}
