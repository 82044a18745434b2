package training

import (
	"time"

	"github.com/google/uuid"
)

type ExpiryMode string

const (
	// ExpiryModeNone means completions never expire.
	ExpiryModeNone ExpiryMode = "none"
	// ExpiryModeFixedDays derives expiry from completion + DefaultExpiryDays.
	ExpiryModeFixedDays ExpiryMode = "fixed_days"
	// ExpiryModePerRecord means the caller supplies expiry per record.
	ExpiryModePerRecord ExpiryMode = "per_record"
)

type Training struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code        string     `gorm:"uniqueIndex;size:50;not null" json:"code"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"column:description" json:"description"`
	Active      bool       `gorm:"not null;default:true" json:"active"`
	ExpiryMode  ExpiryMode `gorm:"column:expiry_mode;not null;default:none" json:"expiry_mode"`
	// DefaultExpiryDays only applies under ExpiryModeFixedDays.
	DefaultExpiryDays *int `gorm:"column:default_expiry_days" json:"default_expiry_days,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Training) TableName() string { return "training" }

// ComputeExpiry derives the expiry timestamp for a completion under the
// training's expiry policy. Nil means the record never expires. Under
// ExpiryModePerRecord the stored value stands as given, so this returns nil.
func ComputeExpiry(t *Training, completedAt *time.Time) *time.Time {
	if t == nil || completedAt == nil {
		return nil
	}
	if t.ExpiryMode == ExpiryModeFixedDays && t.DefaultExpiryDays != nil && *t.DefaultExpiryDays > 0 {
		exp := completedAt.AddDate(0, 0, *t.DefaultExpiryDays)
		return &exp
	}
	return nil
}
