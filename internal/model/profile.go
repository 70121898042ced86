package model

import "time"

// Global roles assigned at first login by the identity resolver
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Profile mirrors the identity provider's user record locally. The ID is the
// provider's opaque identity id, not a uuid we generate. Role is authoritative
// metadata set once at first login and read-only afterwards.
type Profile struct {
	ID        string    `gorm:"type:varchar(255);primaryKey" json:"id"`
	FullName  string    `gorm:"type:varchar(255)" json:"full_name"`
	Email     string    `gorm:"type:varchar(255);index" json:"email,omitempty"`
	Role      string    `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
