package model

import (
	"time"

	"github.com/google/uuid"
)

// ChecklistItem is a trackable compliance task scoped to a department.
// department_id is immutable after creation; tasks never move between
// departments and are never hard-deleted by the application.
type ChecklistItem struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	Completed    bool      `gorm:"not null;default:false" json:"completed"`
	DepartmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"department_id"`
	Notes        string    `gorm:"type:text;not null;default:''" json:"notes"`
	DueDate      time.Time `gorm:"not null" json:"due_date"`
	AssignedTo   *string   `gorm:"type:varchar(255)" json:"assigned_to,omitempty"`
	Tags         []Tag     `gorm:"many2many:checklist_tags;" json:"tags,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName keeps the table name the frontend schema uses
func (ChecklistItem) TableName() string { return "checklists" }
