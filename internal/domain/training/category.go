package training

import (
	"time"

	"github.com/google/uuid"
)

type CategoryScope string

const (
	CategoryScopeTraining CategoryScope = "training"
	CategoryScopeUser     CategoryScope = "user"
	CategoryScopeBoth     CategoryScope = "both"
)

type Category struct {
	ID     uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name   string        `gorm:"not null" json:"name"`
	Slug   string        `gorm:"uniqueIndex;size:140;not null" json:"slug"`
	Scope  CategoryScope `gorm:"not null;default:training;index" json:"scope"`
	Active bool          `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Category) TableName() string { return "category" }

// PersonCategory enrols a person into a category (e.g. "lab workers").
type PersonCategory struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PersonID   uuid.UUID `gorm:"type:uuid;column:person_id;not null;uniqueIndex:uq_person_category" json:"person_id"`
	CategoryID uuid.UUID `gorm:"type:uuid;column:category_id;not null;uniqueIndex:uq_person_category" json:"category_id"`

	AssignedByID *uuid.UUID `gorm:"type:uuid;column:assigned_by_id" json:"assigned_by_id,omitempty"`
	AssignedAt   time.Time  `gorm:"column:assigned_at;not null;default:now()" json:"assigned_at"`
}

func (PersonCategory) TableName() string { return "person_category" }
