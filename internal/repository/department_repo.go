package repository

import (
	"context"
	"errors"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DepartmentRepository reads and writes department rows with the caller's
// visibility applied in the query itself
type DepartmentRepository interface {
	ListWithChecklists(ctx context.Context, caller Caller) ([]model.Department, error)
	GetByID(ctx context.Context, caller Caller, id uuid.UUID) (*model.Department, error)
	Create(ctx context.Context, department *model.Department) error
	Update(ctx context.Context, id uuid.UUID, name string) (*model.Department, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountChecklists(ctx context.Context, id uuid.UUID) (int64, error)
}

type departmentRepository struct {
	db          *gorm.DB
	memberships MembershipRepository
}

// NewDepartmentRepository returns a new instance of DepartmentRepository
func NewDepartmentRepository(db *gorm.DB, memberships MembershipRepository) DepartmentRepository {
	return &departmentRepository{db: db, memberships: memberships}
}

// ListWithChecklists is the two-step visible-departments read: resolve the
// caller's membership department ids first, then fetch those departments with
// their nested checklist rows in one query. Admins skip the first step and
// get every department. A memberless non-admin gets an empty slice, not an
// error.
func (r *departmentRepository) ListWithChecklists(ctx context.Context, caller Caller) ([]model.Department, error) {
	query := GetDB(ctx, r.db).Preload("Checklists")

	if !caller.IsAdmin {
		ids, err := r.memberships.DepartmentIDs(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []model.Department{}, nil
		}
		query = query.Where("id IN ?", ids)
	}

	var departments []model.Department
	if err := query.Order("name").Find(&departments).Error; err != nil {
		return nil, err
	}
	return departments, nil
}

// GetByID fetches one department the caller may see. Absence and invisibility
// are the same error.
func (r *departmentRepository) GetByID(ctx context.Context, caller Caller, id uuid.UUID) (*model.Department, error) {
	if !caller.IsAdmin {
		_, member, err := r.memberships.RoleIn(ctx, caller.ID, id)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, apperr.ErrNotFoundOrForbidden
		}
	}

	var department model.Department
	err := GetDB(ctx, r.db).Preload("Checklists").First(&department, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFoundOrForbidden
		}
		return nil, err
	}
	return &department, nil
}

func (r *departmentRepository) Create(ctx context.Context, department *model.Department) error {
	return GetDB(ctx, r.db).Omit("Checklists").Create(department).Error
}

func (r *departmentRepository) Update(ctx context.Context, id uuid.UUID, name string) (*model.Department, error) {
	result := GetDB(ctx, r.db).Model(&model.Department{}).
		Where("id = ?", id).
		Update("name", name)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperr.ErrNotFoundOrForbidden
	}

	var department model.Department
	if err := GetDB(ctx, r.db).First(&department, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &department, nil
}

func (r *departmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Department{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNotFoundOrForbidden
	}
	return nil
}

func (r *departmentRepository) CountChecklists(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ChecklistItem{}).
		Where("department_id = ?", id).
		Count(&count).Error
	return count, err
}
