package training

import (
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `gorm:"column:description" json:"description"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Group) TableName() string { return "person_group" }

type GroupMember struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GroupID  uuid.UUID `gorm:"type:uuid;column:group_id;not null;uniqueIndex:uq_group_member" json:"group_id"`
	PersonID uuid.UUID `gorm:"type:uuid;column:person_id;not null;uniqueIndex:uq_group_member" json:"person_id"`

	AddedAt time.Time `gorm:"column:added_at;not null;default:now()" json:"added_at"`
}

func (GroupMember) TableName() string { return "person_group_member" }
