package identity

import (
	"time"

	"github.com/google/uuid"
)

type AccountRole string

const (
	AccountRoleAdmin  AccountRole = "admin"
	AccountRoleViewer AccountRole = "viewer"
)

// Account maps an identity-provider subject to a local role. Credentials stay
// with the external provider; this table only answers "may this caller write".
type Account struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Subject     string      `gorm:"uniqueIndex;not null" json:"subject"`
	DisplayName string      `gorm:"column:display_name" json:"display_name"`
	Role        AccountRole `gorm:"not null;default:viewer" json:"role"`
	Active      bool        `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Account) TableName() string { return "account" }
