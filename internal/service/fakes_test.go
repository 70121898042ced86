package service

import (
	"context"
	"sync"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/model"
	"compliance-backend/internal/repository"

	"github.com/google/uuid"
)

// fakeMemberships backs RoleIn and the two-step visibility legs with an
// in-memory userID -> departmentID -> role map.
type fakeMemberships struct {
	roles     map[string]map[uuid.UUID]string
	assigned  []*model.UserDepartment
	deleteErr error
	deleted   []uuid.UUID
}

func newFakeMemberships() *fakeMemberships {
	return &fakeMemberships{roles: make(map[string]map[uuid.UUID]string)}
}

func (f *fakeMemberships) grant(userID string, departmentID uuid.UUID, role string) {
	if f.roles[userID] == nil {
		f.roles[userID] = make(map[uuid.UUID]string)
	}
	f.roles[userID][departmentID] = role
}

func (f *fakeMemberships) Assign(ctx context.Context, assignment *model.UserDepartment) error {
	f.assigned = append(f.assigned, assignment)
	f.grant(assignment.UserID, assignment.DepartmentID, assignment.Role)
	return nil
}

func (f *fakeMemberships) DepartmentIDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(f.roles[userID]))
	for id := range f.roles[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeMemberships) RoleIn(ctx context.Context, userID string, departmentID uuid.UUID) (string, bool, error) {
	role, ok := f.roles[userID][departmentID]
	return role, ok, nil
}

func (f *fakeMemberships) MembersOf(ctx context.Context, departmentID uuid.UUID) ([]repository.Member, error) {
	members := []repository.Member{}
	for userID, byDept := range f.roles {
		if role, ok := byDept[departmentID]; ok {
			members = append(members, repository.Member{UserID: userID, Role: role})
		}
	}
	return members, nil
}

func (f *fakeMemberships) DeleteByDepartment(ctx context.Context, departmentID uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, departmentID)
	for _, byDept := range f.roles {
		delete(byDept, departmentID)
	}
	return nil
}

// fakeDepartments mirrors the real repository's visibility shaping: admins see
// everything, others only their membership departments.
type fakeDepartments struct {
	memberships *fakeMemberships
	rows        []model.Department
	counts      map[uuid.UUID]int64

	listCalls int
	created   []*model.Department
	deleted   []uuid.UUID
	deleteErr error
}

func newFakeDepartments(memberships *fakeMemberships) *fakeDepartments {
	return &fakeDepartments{memberships: memberships, counts: make(map[uuid.UUID]int64)}
}

func (f *fakeDepartments) add(name string, checklists ...model.ChecklistItem) uuid.UUID {
	d := model.Department{ID: uuid.New(), Name: name, Checklists: checklists}
	f.rows = append(f.rows, d)
	return d.ID
}

func (f *fakeDepartments) ListWithChecklists(ctx context.Context, caller repository.Caller) ([]model.Department, error) {
	f.listCalls++
	if caller.IsAdmin {
		return append([]model.Department{}, f.rows...), nil
	}
	ids, err := f.memberships.DepartmentIDs(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	visible := []model.Department{}
	for _, d := range f.rows {
		for _, id := range ids {
			if d.ID == id {
				visible = append(visible, d)
			}
		}
	}
	return visible, nil
}

func (f *fakeDepartments) GetByID(ctx context.Context, caller repository.Caller, id uuid.UUID) (*model.Department, error) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			return &f.rows[i], nil
		}
	}
	return nil, apperr.ErrNotFoundOrForbidden
}

func (f *fakeDepartments) Create(ctx context.Context, department *model.Department) error {
	department.ID = uuid.New()
	f.rows = append(f.rows, *department)
	f.created = append(f.created, department)
	return nil
}

func (f *fakeDepartments) Update(ctx context.Context, id uuid.UUID, name string) (*model.Department, error) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Name = name
			return &f.rows[i], nil
		}
	}
	return nil, apperr.ErrNotFoundOrForbidden
}

func (f *fakeDepartments) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return apperr.ErrNotFoundOrForbidden
}

func (f *fakeDepartments) CountChecklists(ctx context.Context, id uuid.UUID) (int64, error) {
	return f.counts[id], nil
}

// fakeChecklists stores rows flat; visibility enforcement beyond existence is
// the service's job through RoleIn, so the fake only distinguishes
// present/absent.
type fakeChecklists struct {
	rows      map[uuid.UUID]*model.ChecklistItem
	listCalls int
	updateErr error
}

func newFakeChecklists() *fakeChecklists {
	return &fakeChecklists{rows: make(map[uuid.UUID]*model.ChecklistItem)}
}

func (f *fakeChecklists) add(item model.ChecklistItem) uuid.UUID {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.rows[item.ID] = &item
	return item.ID
}

func (f *fakeChecklists) ListVisible(ctx context.Context, caller repository.Caller, departmentID *uuid.UUID, offset, limit int) ([]model.ChecklistItem, int64, error) {
	f.listCalls++
	items := []model.ChecklistItem{}
	for _, row := range f.rows {
		if departmentID != nil && row.DepartmentID != *departmentID {
			continue
		}
		items = append(items, *row)
	}
	return items, int64(len(items)), nil
}

func (f *fakeChecklists) GetByID(ctx context.Context, caller repository.Caller, id uuid.UUID) (*model.ChecklistItem, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperr.ErrNotFoundOrForbidden
	}
	copied := *row
	return &copied, nil
}

func (f *fakeChecklists) Create(ctx context.Context, item *model.ChecklistItem) error {
	item.ID = uuid.New()
	copied := *item
	f.rows[item.ID] = &copied
	return nil
}

func (f *fakeChecklists) Update(ctx context.Context, caller repository.Caller, id uuid.UUID, fields map[string]any) (*model.ChecklistItem, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, apperr.ErrNotFoundOrForbidden
	}
	for field, value := range fields {
		switch field {
		case "completed":
			row.Completed = value.(bool)
		case "notes":
			row.Notes = value.(string)
		case "assigned_to":
			v := value.(string)
			row.AssignedTo = &v
		default:
			return nil, apperr.Invalid(field, "field is not updatable")
		}
	}
	copied := *row
	return &copied, nil
}

type fakeTags struct {
	rows          []model.Tag
	createErr     error
	createCalls   int
	deleted       []uuid.UUID
	assignResults []repository.TagAssignment
	assignErr     error
	assignedTo    []uuid.UUID
}

func (f *fakeTags) List(ctx context.Context) ([]model.Tag, error) {
	return append([]model.Tag{}, f.rows...), nil
}

func (f *fakeTags) Create(ctx context.Context, tag *model.Tag) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	tag.ID = uuid.New()
	f.rows = append(f.rows, *tag)
	return nil
}

func (f *fakeTags) Delete(ctx context.Context, id uuid.UUID) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return apperr.ErrNotFoundOrForbidden
}

func (f *fakeTags) AssignToChecklist(ctx context.Context, checklistID uuid.UUID, tagIDs []uuid.UUID) ([]repository.TagAssignment, error) {
	f.assignedTo = append(f.assignedTo, checklistID)
	if f.assignResults != nil || f.assignErr != nil {
		return f.assignResults, f.assignErr
	}
	results := make([]repository.TagAssignment, 0, len(tagIDs))
	for _, id := range tagIDs {
		results = append(results, repository.TagAssignment{TagID: id})
	}
	return results, nil
}

func (f *fakeTags) ForChecklist(ctx context.Context, checklistID uuid.UUID) ([]model.Tag, error) {
	return append([]model.Tag{}, f.rows...), nil
}

// fakeAudit records actions instead of persisting them
type fakeAudit struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeAudit) Record(ctx context.Context, userID, action, entityID, entityName string, details any) {
	f.mu.Lock()
	f.actions = append(f.actions, action)
	f.mu.Unlock()
}

func (f *fakeAudit) RecordTx(ctx context.Context, userID, action, entityID, entityName string, details any) error {
	f.Record(ctx, userID, action, entityID, entityName, details)
	return nil
}

func (f *fakeAudit) List(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	return nil, 0, nil
}

func (f *fakeAudit) has(action string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.actions {
		if a == action {
			return true
		}
	}
	return false
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) NotifyChange(eventType, entityID, departmentID string) {
	f.events = append(f.events, eventType)
}

// fakeTx runs the function on the original context; transactionality itself is
// the database's concern.
type fakeTx struct{ err error }

func (f *fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

var (
	adminCaller  = repository.Caller{ID: "admin_1", IsAdmin: true}
	memberCaller = repository.Caller{ID: "user_1"}
)
