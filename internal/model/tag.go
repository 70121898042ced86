package model

import (
	"time"

	"github.com/google/uuid"
)

// TagColors is the fixed palette a tag may use
var TagColors = []string{"red", "orange", "yellow", "green", "blue", "purple", "gray"}

// ValidTagColor reports whether color is in the palette
func ValidTagColor(color string) bool {
	for _, c := range TagColors {
		if c == color {
			return true
		}
	}
	return false
}

// Tag labels checklist items. Names are unique case-insensitively within the
// organization. Deleting a tag removes its associations, never the items.
type Tag struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Color     string    `gorm:"type:varchar(20);not null" json:"color"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ChecklistTag is the checklist↔tag association row. Kept as an explicit model
// so tag assignment can insert row-by-row and report per-tag failures.
type ChecklistTag struct {
	ChecklistID uuid.UUID `gorm:"type:uuid;primaryKey" json:"checklist_id"`
	TagID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"tag_id"`
}
