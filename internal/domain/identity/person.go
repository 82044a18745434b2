package identity

import (
	"time"

	"github.com/google/uuid"
)

type PersonType string

const (
	PersonTypeStaff   PersonType = "staff"
	PersonTypeStudent PersonType = "student"
	PersonTypeOther   PersonType = "other"
)

// Person is the canonical identity a spreadsheet row resolves to. The strings
// spreadsheets use to name someone live in PersonAlias, never here.
type Person struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FirstName    string     `gorm:"column:first_name" json:"first_name"`
	LastName     string     `gorm:"column:last_name" json:"last_name"`
	Email        string     `gorm:"column:email" json:"email"`
	ExternalID   string     `gorm:"column:external_id;index" json:"external_id"`
	PersonType   PersonType `gorm:"column:person_type;not null;default:other" json:"person_type"`
	DepartmentID *uuid.UUID `gorm:"type:uuid;column:department_id" json:"department_id,omitempty"`
	Active       bool       `gorm:"not null;default:true" json:"active"`

	Aliases []PersonAlias `gorm:"foreignKey:PersonID" json:"aliases,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Person) TableName() string { return "person" }

// DisplayName is what admin surfaces show for a person.
func (p *Person) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	case p.LastName != "":
		return p.LastName
	case p.Email != "":
		return p.Email
	default:
		return p.ExternalID
	}
}
