package model

import (
	"time"

	"github.com/google/uuid"
)

// Department is an organizational unit owning checklist items
type Department struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"`
	Checklists []ChecklistItem `gorm:"foreignKey:DepartmentID" json:"checklists,omitempty"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// UserDepartment grants a non-admin user visibility/access to one department.
// Admins bypass this table entirely.
type UserDepartment struct {
	UserID       string     `gorm:"type:varchar(255);primaryKey" json:"user_id"`
	DepartmentID uuid.UUID  `gorm:"type:uuid;primaryKey" json:"department_id"`
	Department   Department `gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE;" json:"-"`
	Role         string     `gorm:"type:varchar(20);not null;default:'viewer'" json:"role"` // owner, editor, viewer
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Membership roles within a department
const (
	MembershipOwner  = "owner"
	MembershipEditor = "editor"
	MembershipViewer = "viewer"
)

// ValidMembershipRole reports whether role is one of owner/editor/viewer
func ValidMembershipRole(role string) bool {
	return role == MembershipOwner || role == MembershipEditor || role == MembershipViewer
}
