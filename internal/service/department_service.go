package service

import (
	"context"
	"strings"
	"time"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/cache"
	"compliance-backend/internal/model"
	"compliance-backend/internal/repository"
	"compliance-backend/internal/stats"

	"github.com/google/uuid"
)

// ChangeNotifier pushes change events to connected dashboards. The websocket
// hub satisfies it; tests pass nil or a recording fake.
type ChangeNotifier interface {
	NotifyChange(eventType, entityID, departmentID string)
}

// DTOs for Request validation
type CreateDepartmentRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdateDepartmentRequest struct {
	Name string `json:"name" binding:"required"`
}

type AssignMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

// DepartmentService is the department side of the data gateway plus the
// aggregation read path every dashboard depends on
type DepartmentService interface {
	ListWithStats(ctx context.Context, caller repository.Caller) ([]stats.DepartmentSummary, error)
	Create(ctx context.Context, caller repository.Caller, req CreateDepartmentRequest) (*model.Department, error)
	Update(ctx context.Context, caller repository.Caller, id uuid.UUID, req UpdateDepartmentRequest) (*model.Department, error)
	Delete(ctx context.Context, caller repository.Caller, id uuid.UUID) error
	AssignMember(ctx context.Context, caller repository.Caller, departmentID uuid.UUID, req AssignMemberRequest) (*model.UserDepartment, error)
	Members(ctx context.Context, caller repository.Caller, departmentID uuid.UUID) ([]repository.Member, error)
}

type departmentService struct {
	departments repository.DepartmentRepository
	memberships repository.MembershipRepository
	tx          repository.TransactionManager
	store       *cache.Store
	audit       AuditService
	notifier    ChangeNotifier
	now         func() time.Time
}

// NewDepartmentService returns a new instance of DepartmentService
func NewDepartmentService(
	departments repository.DepartmentRepository,
	memberships repository.MembershipRepository,
	tx repository.TransactionManager,
	store *cache.Store,
	audit AuditService,
	notifier ChangeNotifier,
) DepartmentService {
	return &departmentService{
		departments: departments,
		memberships: memberships,
		tx:          tx,
		store:       store,
		audit:       audit,
		notifier:    notifier,
		now:         time.Now,
	}
}

func departmentsKey(caller repository.Caller) cache.Key {
	return cache.Key{Collection: "departments", Scope: caller.ID}
}

// ListWithStats serves the visible departments with their derived counters.
// Raw rows are cached per caller; stats are recomputed per read so overdue
// classification follows the clock, with one `now` per pass.
func (s *departmentService) ListWithStats(ctx context.Context, caller repository.Caller) ([]stats.DepartmentSummary, error) {
	var rows []model.Department
	err := cache.Retry(ctx, cache.DefaultRetryPolicy, func(ctx context.Context) error {
		data, err := s.store.Get(ctx, departmentsKey(caller), func(ctx context.Context) (any, error) {
			return s.departments.ListWithChecklists(ctx, caller)
		})
		if err != nil {
			return err
		}
		rows = data.([]model.Department)
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	summaries := make([]stats.DepartmentSummary, 0, len(rows))
	for _, d := range rows {
		summary := stats.DepartmentSummary{
			ID:         d.ID.String(),
			Name:       d.Name,
			Checklists: d.Checklists,
		}
		summary.DepartmentStats = stats.ComputeDepartmentStats(d.Checklists, now)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *departmentService) Create(ctx context.Context, caller repository.Caller, req CreateDepartmentRequest) (*model.Department, error) {
	if !caller.IsAdmin {
		return nil, apperr.ErrForbidden
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid("name", "must not be empty")
	}

	department := &model.Department{Name: name}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.departments.Create(txCtx, department); err != nil {
			return err
		}
		return s.audit.RecordTx(txCtx, caller.ID, model.ActionCreateDepartment,
			department.ID.String(), name, map[string]string{"name": name})
	})
	if err != nil {
		return nil, err
	}

	s.store.Invalidate(departmentsKey(caller))
	s.notify("department.created", department.ID.String(), department.ID.String())
	return department, nil
}

func (s *departmentService) Update(ctx context.Context, caller repository.Caller, id uuid.UUID, req UpdateDepartmentRequest) (*model.Department, error) {
	if err := s.requireOwner(ctx, caller, id); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid("name", "must not be empty")
	}

	department, err := s.departments.Update(ctx, id, name)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, caller.ID, model.ActionUpdateDepartment, id.String(), name, map[string]string{"name": name})
	s.store.Invalidate(departmentsKey(caller))
	s.notify("department.updated", id.String(), id.String())
	return department, nil
}

// Delete refuses to remove a department that still owns checklist items, and
// performs no mutation in that case. The membership cleanup and the row
// delete are two separate steps by design; a failure between them surfaces as
// a StepError so the caller sees "memberships removed, department not
// deleted" rather than a total success or total failure.
func (s *departmentService) Delete(ctx context.Context, caller repository.Caller, id uuid.UUID) error {
	if !caller.IsAdmin {
		return apperr.ErrForbidden
	}

	count, err := s.departments.CountChecklists(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &apperr.HasDependentsError{Count: int(count)}
	}

	if err := s.memberships.DeleteByDepartment(ctx, id); err != nil {
		return &apperr.StepError{Step: "membership cleanup", Err: err}
	}

	if err := s.departments.Delete(ctx, id); err != nil {
		return &apperr.StepError{Step: "department delete after membership cleanup", Err: err}
	}

	s.audit.Record(ctx, caller.ID, model.ActionDeleteDepartment, id.String(), "", nil)
	s.store.Invalidate(departmentsKey(caller))
	s.notify("department.deleted", id.String(), id.String())
	return nil
}

func (s *departmentService) AssignMember(ctx context.Context, caller repository.Caller, departmentID uuid.UUID, req AssignMemberRequest) (*model.UserDepartment, error) {
	if err := s.requireOwner(ctx, caller, departmentID); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.MembershipViewer
	}
	if !model.ValidMembershipRole(role) {
		return nil, apperr.Invalid("role", "must be owner, editor, or viewer")
	}

	assignment := &model.UserDepartment{
		UserID:       req.UserID,
		DepartmentID: departmentID,
		Role:         role,
	}
	if err := s.memberships.Assign(ctx, assignment); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, caller.ID, model.ActionAssignMember, departmentID.String(), "",
		map[string]string{"user_id": req.UserID, "role": role})

	// the assignee's visibility changed; their cached collections are gone
	s.store.Drop(
		cache.Key{Collection: "departments", Scope: req.UserID},
		cache.Key{Collection: "checklists", Scope: req.UserID},
	)
	return assignment, nil
}

// Members lists a department's membership rows with their profiles. Any
// member of the department may see the roster; to everyone else the
// department does not exist.
func (s *departmentService) Members(ctx context.Context, caller repository.Caller, departmentID uuid.UUID) ([]repository.Member, error) {
	if !caller.IsAdmin {
		_, member, err := s.memberships.RoleIn(ctx, caller.ID, departmentID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, apperr.ErrNotFoundOrForbidden
		}
	}
	return s.memberships.MembersOf(ctx, departmentID)
}

// requireOwner allows admins, and owners of the department
func (s *departmentService) requireOwner(ctx context.Context, caller repository.Caller, departmentID uuid.UUID) error {
	if caller.IsAdmin {
		return nil
	}
	role, member, err := s.memberships.RoleIn(ctx, caller.ID, departmentID)
	if err != nil {
		return err
	}
	if !member || role != model.MembershipOwner {
		return apperr.ErrNotFoundOrForbidden
	}
	return nil
}

func (s *departmentService) notify(eventType, entityID, departmentID string) {
	if s.notifier != nil {
		s.notifier.NotifyChange(eventType, entityID, departmentID)
	}
}
