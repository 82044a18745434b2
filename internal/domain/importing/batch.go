package importing

import (
	"time"

	"github.com/google/uuid"
)

type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusPartial    BatchStatus = "partial"
)

// ImportBatch is one uploaded file and the lifecycle of its staged rows.
// SourceData keeps the original bytes so retrying a batch can restage from
// the exact upload without asking the caller to re-send the file.
type ImportBatch struct {
	ID              uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UploaderID      uuid.UUID   `gorm:"type:uuid;column:uploader_id;not null;index" json:"uploader_id"`
	TemplateUsed    string      `gorm:"column:template_used;not null;index" json:"template_used"`
	TemplateVersion string      `gorm:"column:template_version" json:"template_version"`
	FileName        string      `gorm:"column:file_name" json:"file_name"`
	FileSHA256      string      `gorm:"column:file_sha256;size:64;uniqueIndex:uq_import_batch_sha256;not null" json:"file_sha256"`
	SourceData      []byte      `gorm:"column:source_data;type:bytea" json:"-"`
	Status          BatchStatus `gorm:"not null;default:pending;index:idx_import_batch_status_received" json:"status"`
	ResultMessage   string      `gorm:"column:result_message" json:"result_message"`

	TotalRows    int `gorm:"column:total_rows;not null;default:0" json:"total_rows"`
	AcceptedRows int `gorm:"column:accepted_rows;not null;default:0" json:"accepted_rows"`
	ErrorRows    int `gorm:"column:error_rows;not null;default:0" json:"error_rows"`
	SkippedRows  int `gorm:"column:skipped_rows;not null;default:0" json:"skipped_rows"`

	ReprocessCount  int        `gorm:"column:reprocess_count;not null;default:0" json:"reprocess_count"`
	LastReprocessAt *time.Time `gorm:"column:last_reprocess_at" json:"last_reprocess_at,omitempty"`

	ReceivedAt  time.Time  `gorm:"column:received_at;not null;default:now();index:idx_import_batch_status_received" json:"received_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (ImportBatch) TableName() string { return "import_batch" }

// Settled reports whether every row has reached a terminal row status.
func (b *ImportBatch) Settled() bool {
	return b.AcceptedRows+b.ErrorRows+b.SkippedRows == b.TotalRows
}
