package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RecordStatus string

const (
	RecordStatusPending RecordStatus = "pending"
	RecordStatusValid   RecordStatus = "valid"
	RecordStatusExpired RecordStatus = "expired"
	RecordStatusRevoked RecordStatus = "revoked"
)

type RecordSource string

const (
	RecordSourceLMS        RecordSource = "lms"
	RecordSourceExternal   RecordSource = "external"
	RecordSourceBulkUpload RecordSource = "bulk_upload"
	RecordSourceManual     RecordSource = "manual"
)

// TrainingRecord is the authoritative completion record for one
// (person, training) pair. The unique index is the cross-transaction guard:
// concurrent creates for the same pair fail fast instead of duplicating.
type TrainingRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PersonID   uuid.UUID `gorm:"type:uuid;column:person_id;not null;uniqueIndex:uq_training_record_pair" json:"person_id"`
	TrainingID uuid.UUID `gorm:"type:uuid;column:training_id;not null;uniqueIndex:uq_training_record_pair" json:"training_id"`

	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ExpiryAt    *time.Time     `gorm:"column:expiry_at;index" json:"expiry_at,omitempty"`
	Status      RecordStatus   `gorm:"not null;default:pending;index" json:"status"`
	Source      RecordSource   `gorm:"not null;default:manual" json:"source"`
	Notes       string         `gorm:"column:notes" json:"notes"`
	Evidence    datatypes.JSON `gorm:"column:evidence" json:"evidence,omitempty"`

	// provenance link to the import row that produced this record
	ImportRowID *uuid.UUID `gorm:"type:uuid;column:import_row_id;index" json:"import_row_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrainingRecord) TableName() string { return "training_record" }

// Expired reports whether the record's expiry has passed at the given instant.
// Records without an expiry never expire.
func (r *TrainingRecord) Expired(now time.Time) bool {
	return r.ExpiryAt != nil && now.After(*r.ExpiryAt)
}
