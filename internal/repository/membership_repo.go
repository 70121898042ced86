package repository

import (
	"context"

	"compliance-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member is a membership row joined with the member's mirrored profile.
// Accounts that never completed first-login role assignment have no profile
// row; their name and email come back empty.
type Member struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// MembershipRepository manages the user↔department assignment rows that
// gate non-admin visibility
type MembershipRepository interface {
	Assign(ctx context.Context, assignment *model.UserDepartment) error
	DepartmentIDs(ctx context.Context, userID string) ([]uuid.UUID, error)
	RoleIn(ctx context.Context, userID string, departmentID uuid.UUID) (string, bool, error)
	MembersOf(ctx context.Context, departmentID uuid.UUID) ([]Member, error)
	DeleteByDepartment(ctx context.Context, departmentID uuid.UUID) error
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository returns a new instance of MembershipRepository
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Assign(ctx context.Context, assignment *model.UserDepartment) error {
	return GetDB(ctx, r.db).Create(assignment).Error
}

// DepartmentIDs is the first leg of the two-step visible-departments fetch:
// the membership lookup that must happen before the department query.
func (r *membershipRepository) DepartmentIDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.UserDepartment{}).
		Where("user_id = ?", userID).
		Pluck("department_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RoleIn returns the caller's membership role in a department and whether a
// membership row exists at all.
func (r *membershipRepository) RoleIn(ctx context.Context, userID string, departmentID uuid.UUID) (string, bool, error) {
	var assignment model.UserDepartment
	err := GetDB(ctx, r.db).
		Where("user_id = ? AND department_id = ?", userID, departmentID).
		First(&assignment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return assignment.Role, true, nil
}

// MembersOf lists a department's membership rows with each member's profile.
// The join is left-sided so memberships of accounts with no local profile yet
// still appear.
func (r *membershipRepository) MembersOf(ctx context.Context, departmentID uuid.UUID) ([]Member, error) {
	members := []Member{}
	err := GetDB(ctx, r.db).Model(&model.UserDepartment{}).
		Select("user_departments.user_id, user_departments.role, profiles.full_name, profiles.email").
		Joins("LEFT JOIN profiles ON profiles.id = user_departments.user_id").
		Where("user_departments.department_id = ?", departmentID).
		Order("profiles.full_name").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *membershipRepository) DeleteByDepartment(ctx context.Context, departmentID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Where("department_id = ?", departmentID).
		Delete(&model.UserDepartment{}).Error
}
