package identity

import (
	"time"

	"github.com/google/uuid"
)

// PersonAlias maps one external identifier string (email, legacy staff number,
// username) to exactly one person. Globally unique: the unique index on value
// is what makes conflicting concurrent creates fail fast instead of
// duplicating identities.
type PersonAlias struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Value    string    `gorm:"column:value;uniqueIndex:uq_person_alias_value;not null" json:"value"`
	PersonID uuid.UUID `gorm:"type:uuid;column:person_id;not null;index" json:"person_id"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PersonAlias) TableName() string { return "person_alias" }
