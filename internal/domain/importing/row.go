package importing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RowStatus string

const (
	RowStatusPending   RowStatus = "pending"
	RowStatusAccepted  RowStatus = "accepted"
	RowStatusSkipped   RowStatus = "skipped"
	RowStatusError     RowStatus = "error"
	RowStatusProcessed RowStatus = "processed"
)

// ImportRow is one source line within a batch. Raw holds the parsed field map
// exactly as staged; Normalized is filled by validation and is what
// reconciliation reads.
type ImportRow struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BatchID   uuid.UUID `gorm:"type:uuid;column:batch_id;not null;uniqueIndex:uq_import_row_batch_number;index:idx_import_row_batch_status" json:"batch_id"`
	RowNumber int       `gorm:"column:row_number;not null;uniqueIndex:uq_import_row_batch_number" json:"row_number"`

	Raw        datatypes.JSON `gorm:"column:raw;not null" json:"raw"`
	Normalized datatypes.JSON `gorm:"column:normalized" json:"normalized,omitempty"`

	Status       RowStatus `gorm:"not null;default:pending;index:idx_import_row_batch_status" json:"status"`
	ErrorDetails string    `gorm:"column:error_details" json:"error_details"`
	ActionTaken  string    `gorm:"column:action_taken" json:"action_taken"`

	// provenance of whatever the row produced
	RelatedModel string `gorm:"column:related_model" json:"related_model"`
	RelatedID    string `gorm:"column:related_id" json:"related_id"`

	Retried bool `gorm:"not null;default:false" json:"retried"`

	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (ImportRow) TableName() string { return "import_row" }
