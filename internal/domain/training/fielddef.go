package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FieldDataType string

const (
	FieldTypeText    FieldDataType = "text"
	FieldTypeNumber  FieldDataType = "number"
	FieldTypeDate    FieldDataType = "date"
	FieldTypeBoolean FieldDataType = "boolean"
	FieldTypeSelect  FieldDataType = "select"
	FieldTypeJSON    FieldDataType = "json"
)

// TrainingFieldDef is an admin-defined dynamic field. A nil TrainingID scopes
// the definition globally, so it applies to every training.
type TrainingFieldDef struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TrainingID *uuid.UUID `gorm:"type:uuid;column:training_id;uniqueIndex:uq_fielddef_training_key" json:"training_id,omitempty"`

	Key      string        `gorm:"size:64;not null;uniqueIndex:uq_fielddef_training_key" json:"key"`
	Label    string        `gorm:"not null" json:"label"`
	DataType FieldDataType `gorm:"column:data_type;not null;default:text" json:"data_type"`
	Required bool          `gorm:"not null;default:false" json:"required"`
	// Options carries SELECT choices or min/max/regex hints.
	Options datatypes.JSON `gorm:"column:options" json:"options,omitempty"`
	Active  bool           `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrainingFieldDef) TableName() string { return "training_field_def" }

// Global reports whether the definition applies to every training.
func (d *TrainingFieldDef) Global() bool { return d.TrainingID == nil }
