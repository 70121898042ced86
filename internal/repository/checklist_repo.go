package repository

import (
	"context"
	"errors"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fields a partial checklist update may touch. Title and department_id are
// immutable after creation; everything else is rejected up front.
var checklistMutableFields = map[string]bool{
	"completed":   true,
	"notes":       true,
	"assigned_to": true,
	"due_date":    true,
}

// ChecklistRepository reads and writes checklist rows with the caller's
// visibility applied in the query itself
type ChecklistRepository interface {
	ListVisible(ctx context.Context, caller Caller, departmentID *uuid.UUID, offset, limit int) ([]model.ChecklistItem, int64, error)
	GetByID(ctx context.Context, caller Caller, id uuid.UUID) (*model.ChecklistItem, error)
	Create(ctx context.Context, item *model.ChecklistItem) error
	Update(ctx context.Context, caller Caller, id uuid.UUID, fields map[string]any) (*model.ChecklistItem, error)
}

type checklistRepository struct {
	db          *gorm.DB
	memberships MembershipRepository
}

// NewChecklistRepository returns a new instance of ChecklistRepository
func NewChecklistRepository(db *gorm.DB, memberships MembershipRepository) ChecklistRepository {
	return &checklistRepository{db: db, memberships: memberships}
}

// visibleScope narrows a checklist query to rows the caller may see: all rows
// for admins, membership departments for everyone else. Returns ok=false when
// the caller can see nothing at all.
func (r *checklistRepository) visibleScope(ctx context.Context, caller Caller, query *gorm.DB) (*gorm.DB, bool, error) {
	if caller.IsAdmin {
		return query, true, nil
	}
	ids, err := r.memberships.DepartmentIDs(ctx, caller.ID)
	if err != nil {
		return nil, false, err
	}
	if len(ids) == 0 {
		return nil, false, nil
	}
	return query.Where("department_id IN ?", ids), true, nil
}

func (r *checklistRepository) ListVisible(ctx context.Context, caller Caller, departmentID *uuid.UUID, offset, limit int) ([]model.ChecklistItem, int64, error) {
	base := GetDB(ctx, r.db).Model(&model.ChecklistItem{})
	if departmentID != nil {
		base = base.Where("department_id = ?", *departmentID)
	}

	scoped, ok, err := r.visibleScope(ctx, caller, base)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return []model.ChecklistItem{}, 0, nil
	}

	var total int64
	if err := scoped.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.ChecklistItem
	query := scoped.Preload("Tags").Order("due_date")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *checklistRepository) GetByID(ctx context.Context, caller Caller, id uuid.UUID) (*model.ChecklistItem, error) {
	scoped, ok, err := r.visibleScope(ctx, caller, GetDB(ctx, r.db).Model(&model.ChecklistItem{}))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrNotFoundOrForbidden
	}

	var item model.ChecklistItem
	if err := scoped.Preload("Tags").First(&item, "checklists.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFoundOrForbidden
		}
		return nil, err
	}
	return &item, nil
}

func (r *checklistRepository) Create(ctx context.Context, item *model.ChecklistItem) error {
	return GetDB(ctx, r.db).Omit("Tags").Create(item).Error
}

// Update applies a partial-field patch and returns the updated row. A row
// that does not exist and a row the caller may not touch produce the same
// error.
func (r *checklistRepository) Update(ctx context.Context, caller Caller, id uuid.UUID, fields map[string]any) (*model.ChecklistItem, error) {
	for field := range fields {
		if !checklistMutableFields[field] {
			return nil, apperr.Invalid(field, "field is not updatable")
		}
	}

	// visibility check through the same scoped read path
	if _, err := r.GetByID(ctx, caller, id); err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		err := GetDB(ctx, r.db).Model(&model.ChecklistItem{}).
			Where("id = ?", id).
			Updates(fields).Error
		if err != nil {
			return nil, err
		}
	}

	return r.GetByID(ctx, caller, id)
}
