package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionAssignRole       = "ASSIGN_ROLE"
	ActionCreateDepartment = "CREATE_DEPARTMENT"
	ActionUpdateDepartment = "UPDATE_DEPARTMENT"
	ActionDeleteDepartment = "DELETE_DEPARTMENT"
	ActionAssignMember     = "ASSIGN_MEMBER"
	ActionCreateChecklist  = "CREATE_CHECKLIST"
	ActionUpdateChecklist  = "UPDATE_CHECKLIST"
	ActionCreateTag        = "CREATE_TAG"
	ActionDeleteTag        = "DELETE_TAG"
	ActionAssignTags       = "ASSIGN_TAGS"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(255);index" json:"user_id"` // IdP identity id; empty for system actions
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
