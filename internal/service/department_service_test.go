package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/cache"
	"compliance-backend/internal/model"

	"github.com/google/uuid"
)

type departmentFixture struct {
	memberships *fakeMemberships
	departments *fakeDepartments
	audit       *fakeAudit
	notifier    *fakeNotifier
	store       *cache.Store
	service     *departmentService
}

func newDepartmentFixture() *departmentFixture {
	memberships := newFakeMemberships()
	departments := newFakeDepartments(memberships)
	audit := &fakeAudit{}
	notifier := &fakeNotifier{}
	store := cache.New(time.Minute, nil)
	svc := NewDepartmentService(departments, memberships, &fakeTx{}, store, audit, notifier).(*departmentService)
	return &departmentFixture{
		memberships: memberships,
		departments: departments,
		audit:       audit,
		notifier:    notifier,
		store:       store,
		service:     svc,
	}
}

func TestListWithStatsAdminSeesAll(t *testing.T) {
	f := newDepartmentFixture()
	f.departments.add("HR")
	f.departments.add("Legal")

	summaries, err := f.service.ListWithStats(context.Background(), adminCaller)
	if err != nil {
		t.Fatalf("ListWithStats: %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("admin sees %d departments, want 2", len(summaries))
	}
}

func TestListWithStatsMembershipScoped(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")
	f.departments.add("Legal")
	f.memberships.grant(memberCaller.ID, hr, model.MembershipViewer)

	summaries, err := f.service.ListWithStats(context.Background(), memberCaller)
	if err != nil {
		t.Fatalf("ListWithStats: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Name != "HR" {
		t.Errorf("member sees %+v, want only HR", summaries)
	}
}

func TestListWithStatsMemberlessIsEmptyNotError(t *testing.T) {
	f := newDepartmentFixture()
	f.departments.add("HR")

	summaries, err := f.service.ListWithStats(context.Background(), memberCaller)
	if err != nil {
		t.Fatalf("ListWithStats: %v", err)
	}
	if summaries == nil || len(summaries) != 0 {
		t.Errorf("memberless caller got %v, want an empty list", summaries)
	}
}

func TestListWithStatsComputesCounters(t *testing.T) {
	f := newDepartmentFixture()
	now := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return now }
	f.departments.add("HR",
		model.ChecklistItem{ID: uuid.New(), Completed: true, DueDate: now.Add(-time.Hour)},
		model.ChecklistItem{ID: uuid.New(), Completed: false, DueDate: now.Add(-time.Hour)},
	)

	summaries, err := f.service.ListWithStats(context.Background(), adminCaller)
	if err != nil {
		t.Fatal(err)
	}
	s := summaries[0]
	if s.TotalTasks != 2 || s.CompletedTasks != 1 || s.OverdueTasks != 1 || s.Progress != 50 {
		t.Errorf("stats = %+v, want 2 total / 1 completed / 1 overdue / 50%%", s.DepartmentStats)
	}
}

func TestListWithStatsServesFromCache(t *testing.T) {
	f := newDepartmentFixture()
	f.departments.add("HR")

	for i := 0; i < 3; i++ {
		if _, err := f.service.ListWithStats(context.Background(), adminCaller); err != nil {
			t.Fatal(err)
		}
	}
	if f.departments.listCalls != 1 {
		t.Errorf("repository was hit %d times within the freshness window, want 1", f.departments.listCalls)
	}
}

func TestCreateDepartmentAdminOnly(t *testing.T) {
	f := newDepartmentFixture()
	_, err := f.service.Create(context.Background(), memberCaller, CreateDepartmentRequest{Name: "Ops"})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if len(f.departments.created) != 0 {
		t.Error("a forbidden create reached the repository")
	}
}

func TestCreateDepartmentValidatesName(t *testing.T) {
	f := newDepartmentFixture()
	_, err := f.service.Create(context.Background(), adminCaller, CreateDepartmentRequest{Name: "   "})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *apperr.ValidationError", err)
	}
}

func TestCreateDepartmentTrimsAndAudits(t *testing.T) {
	f := newDepartmentFixture()
	department, err := f.service.Create(context.Background(), adminCaller, CreateDepartmentRequest{Name: "  Finance  "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if department.Name != "Finance" {
		t.Errorf("Name = %q, want trimmed Finance", department.Name)
	}
	if !f.audit.has(model.ActionCreateDepartment) {
		t.Error("no audit entry recorded for the create")
	}
	if len(f.notifier.events) == 0 || f.notifier.events[0] != "department.created" {
		t.Errorf("events = %v, want department.created", f.notifier.events)
	}
}

func TestUpdateDepartmentRequiresOwner(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")
	f.memberships.grant(memberCaller.ID, hr, model.MembershipViewer)

	_, err := f.service.Update(context.Background(), memberCaller, hr, UpdateDepartmentRequest{Name: "People"})
	if !errors.Is(err, apperr.ErrNotFoundOrForbidden) {
		t.Fatalf("viewer rename err = %v, want ErrNotFoundOrForbidden", err)
	}

	f.memberships.grant(memberCaller.ID, hr, model.MembershipOwner)
	department, err := f.service.Update(context.Background(), memberCaller, hr, UpdateDepartmentRequest{Name: "People"})
	if err != nil {
		t.Fatalf("owner rename: %v", err)
	}
	if department.Name != "People" {
		t.Errorf("Name = %q, want People", department.Name)
	}
}

func TestDeleteDepartmentWithChecklistsBlocked(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")
	f.departments.counts[hr] = 3

	err := f.service.Delete(context.Background(), adminCaller, hr)
	var de *apperr.HasDependentsError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *apperr.HasDependentsError", err)
	}
	if de.Count != 3 {
		t.Errorf("Count = %d, want 3", de.Count)
	}
	// the refusal must perform no mutation at all
	if len(f.memberships.deleted) != 0 || len(f.departments.deleted) != 0 {
		t.Error("a blocked delete mutated memberships or departments")
	}
}

func TestDeleteEmptyDepartment(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")

	if err := f.service.Delete(context.Background(), adminCaller, hr); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.departments.deleted) != 1 || f.departments.deleted[0] != hr {
		t.Error("department row was not deleted")
	}
	if len(f.memberships.deleted) != 1 {
		t.Error("membership rows were not cleaned up")
	}
	if !f.audit.has(model.ActionDeleteDepartment) {
		t.Error("no audit entry for the delete")
	}
}

func TestDeleteDepartmentMembershipCleanupFailure(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")
	f.memberships.deleteErr = errors.New("db down")

	err := f.service.Delete(context.Background(), adminCaller, hr)
	var se *apperr.StepError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *apperr.StepError", err)
	}
	if se.Step != "membership cleanup" {
		t.Errorf("failed step = %q, want membership cleanup", se.Step)
	}
	if len(f.departments.deleted) != 0 {
		t.Error("department row was deleted despite the cleanup failure")
	}
}

func TestDeleteDepartmentRowFailureAfterCleanup(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")
	f.departments.deleteErr = errors.New("db down")

	err := f.service.Delete(context.Background(), adminCaller, hr)
	var se *apperr.StepError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *apperr.StepError", err)
	}
	// the partial outcome names the step so the caller knows memberships are
	// already gone
	if se.Step != "department delete after membership cleanup" {
		t.Errorf("failed step = %q", se.Step)
	}
	if len(f.memberships.deleted) != 1 {
		t.Error("expected membership cleanup to have happened first")
	}
}

func TestDeleteDepartmentAdminOnly(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")
	if err := f.service.Delete(context.Background(), memberCaller, hr); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestAssignMemberDefaultsToViewer(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")

	assignment, err := f.service.AssignMember(context.Background(), adminCaller, hr, AssignMemberRequest{UserID: "user_9"})
	if err != nil {
		t.Fatalf("AssignMember: %v", err)
	}
	if assignment.Role != model.MembershipViewer {
		t.Errorf("Role = %q, want viewer by default", assignment.Role)
	}
}

func TestAssignMemberRejectsUnknownRole(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")

	_, err := f.service.AssignMember(context.Background(), adminCaller, hr, AssignMemberRequest{UserID: "user_9", Role: "superuser"})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *apperr.ValidationError", err)
	}
}

func TestMembersVisibleToAdmin(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")
	f.memberships.grant("user_9", hr, model.MembershipOwner)
	f.memberships.grant("user_10", hr, model.MembershipViewer)

	members, err := f.service.Members(context.Background(), adminCaller, hr)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("admin sees %d members, want 2", len(members))
	}
}

func TestMembersVisibleToAnyMember(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")
	f.memberships.grant(memberCaller.ID, hr, model.MembershipViewer)
	f.memberships.grant("user_9", hr, model.MembershipOwner)

	members, err := f.service.Members(context.Background(), memberCaller, hr)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("viewer sees %d members, want 2", len(members))
	}
}

func TestMembersOpaqueToNonMembers(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")
	f.memberships.grant("user_9", hr, model.MembershipOwner)

	_, err := f.service.Members(context.Background(), memberCaller, hr)
	if !errors.Is(err, apperr.ErrNotFoundOrForbidden) {
		t.Errorf("err = %v, want ErrNotFoundOrForbidden", err)
	}
}

func TestAssignMemberDropsAssigneeCache(t *testing.T) {
	f := newDepartmentFixture()
	hr := f.departments.add("HR")

	// the assignee has a cached (empty) department collection from before the
	// grant
	assignee := cache.Key{Collection: "departments", Scope: "user_9"}
	if _, err := f.store.Get(context.Background(), assignee, func(ctx context.Context) (any, error) {
		return []model.Department{}, nil
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.service.AssignMember(context.Background(), adminCaller, hr, AssignMemberRequest{UserID: "user_9"}); err != nil {
		t.Fatal(err)
	}

	if _, state := f.store.Peek(assignee); state != cache.StateUninitialized {
		t.Errorf("assignee cache state = %v, want dropped entirely", state)
	}
}
