package service

import (
	"context"
	"strings"
	"time"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/cache"
	"compliance-backend/internal/model"
	"compliance-backend/internal/repository"

	"github.com/google/uuid"
)

// DTOs for Request validation
type CreateChecklistRequest struct {
	Title        string     `json:"title" binding:"required"`
	DepartmentID string     `json:"department_id" binding:"required"`
	DueDate      *time.Time `json:"due_date" binding:"required"`
	Notes        string     `json:"notes"`
	AssignedTo   *string    `json:"assigned_to"`
}

// UpdateChecklistRequest is a partial-field patch: only non-nil fields are
// applied. Title and department are immutable after creation.
type UpdateChecklistRequest struct {
	Completed  *bool      `json:"completed"`
	Notes      *string    `json:"notes"`
	AssignedTo *string    `json:"assigned_to"`
	DueDate    *time.Time `json:"due_date"`
}

type AssignTagsRequest struct {
	TagIDs []string `json:"tag_ids" binding:"required"`
}

// ChecklistService is the checklist side of the data gateway: caller-scoped
// reads through the cache store, and optimistic mutations reconciled against
// the authoritative rows.
type ChecklistService interface {
	List(ctx context.Context, caller repository.Caller, departmentID *uuid.UUID, page, limit int) ([]model.ChecklistItem, int64, error)
	Get(ctx context.Context, caller repository.Caller, id uuid.UUID) (*model.ChecklistItem, error)
	Create(ctx context.Context, caller repository.Caller, req CreateChecklistRequest) (*model.ChecklistItem, error)
	Update(ctx context.Context, caller repository.Caller, id uuid.UUID, req UpdateChecklistRequest) (*model.ChecklistItem, error)
	AssignTags(ctx context.Context, caller repository.Caller, checklistID uuid.UUID, req AssignTagsRequest) ([]repository.TagAssignment, error)
	Tags(ctx context.Context, caller repository.Caller, checklistID uuid.UUID) ([]model.Tag, error)
}

type checklistService struct {
	checklists  repository.ChecklistRepository
	memberships repository.MembershipRepository
	tags        repository.TagRepository
	store       *cache.Store
	audit       AuditService
	notifier    ChangeNotifier
}

// NewChecklistService returns a new instance of ChecklistService
func NewChecklistService(
	checklists repository.ChecklistRepository,
	memberships repository.MembershipRepository,
	tags repository.TagRepository,
	store *cache.Store,
	audit AuditService,
	notifier ChangeNotifier,
) ChecklistService {
	return &checklistService{
		checklists:  checklists,
		memberships: memberships,
		tags:        tags,
		store:       store,
		audit:       audit,
		notifier:    notifier,
	}
}

// checklistsKey scopes a cached checklist collection to the caller and the
// optional department narrowing, so one caller's rows are never served to
// another
func checklistsKey(caller repository.Caller, departmentID *uuid.UUID) cache.Key {
	scope := caller.ID + "|all"
	if departmentID != nil {
		scope = caller.ID + "|" + departmentID.String()
	}
	return cache.Key{Collection: "checklists", Scope: scope}
}

// List serves the visible checklist collection, read through the cache with
// bounded retry on transient failures. Pagination slices the cached
// collection; the full visible set is what gets cached and revalidated.
func (s *checklistService) List(ctx context.Context, caller repository.Caller, departmentID *uuid.UUID, page, limit int) ([]model.ChecklistItem, int64, error) {
	var items []model.ChecklistItem
	err := cache.Retry(ctx, cache.DefaultRetryPolicy, func(ctx context.Context) error {
		data, err := s.store.Get(ctx, checklistsKey(caller, departmentID), func(ctx context.Context) (any, error) {
			rows, _, err := s.checklists.ListVisible(ctx, caller, departmentID, 0, 0)
			return rows, err
		})
		if err != nil {
			return err
		}
		items = data.([]model.ChecklistItem)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(items))
	if limit > 0 {
		offset := (page - 1) * limit
		if offset >= len(items) {
			return []model.ChecklistItem{}, total, nil
		}
		end := offset + limit
		if end > len(items) {
			end = len(items)
		}
		items = items[offset:end]
	}
	return items, total, nil
}

func (s *checklistService) Get(ctx context.Context, caller repository.Caller, id uuid.UUID) (*model.ChecklistItem, error) {
	return s.checklists.GetByID(ctx, caller, id)
}

func (s *checklistService) Create(ctx context.Context, caller repository.Caller, req CreateChecklistRequest) (*model.ChecklistItem, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Invalid("title", "must not be empty")
	}
	departmentID, err := uuid.Parse(req.DepartmentID)
	if err != nil || req.DepartmentID == "" {
		return nil, apperr.Invalid("department_id", "must be a valid department reference")
	}
	if req.DueDate == nil || req.DueDate.IsZero() {
		return nil, apperr.Invalid("due_date", "is required")
	}

	if err := s.requireWriter(ctx, caller, departmentID); err != nil {
		return nil, err
	}

	item := &model.ChecklistItem{
		Title:        title,
		DepartmentID: departmentID,
		DueDate:      *req.DueDate,
		Notes:        req.Notes,
		AssignedTo:   req.AssignedTo,
	}
	if err := s.checklists.Create(ctx, item); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, caller.ID, model.ActionCreateChecklist, item.ID.String(), title,
		map[string]string{"department_id": departmentID.String()})
	s.store.Invalidate(
		checklistsKey(caller, &departmentID),
		checklistsKey(caller, nil),
		cache.Key{Collection: "departments", Scope: caller.ID},
	)
	s.notify("checklist.created", item.ID.String(), departmentID.String())
	return item, nil
}

// Update applies a partial patch through the optimistic coordinator: the
// cached collection is patched immediately, the authoritative write runs, and
// the cache ends up holding either the reconciled server row or the exact
// pre-mutation collection.
func (s *checklistService) Update(ctx context.Context, caller repository.Caller, id uuid.UUID, req UpdateChecklistRequest) (*model.ChecklistItem, error) {
	current, err := s.checklists.GetByID(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	departmentID := current.DepartmentID

	if err := s.requireWriter(ctx, caller, departmentID); err != nil {
		// a row the caller can read but not write is still reported the
		// RLS way
		return nil, apperr.ErrNotFoundOrForbidden
	}

	fields := make(map[string]any)
	if req.Completed != nil {
		fields["completed"] = *req.Completed
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if req.AssignedTo != nil {
		fields["assigned_to"] = *req.AssignedTo
	}
	if req.DueDate != nil {
		fields["due_date"] = *req.DueDate
	}

	confirmed, err := s.store.Mutate(ctx, cache.Mutation{
		Key: checklistsKey(caller, &departmentID),
		Apply: func(cached any) any {
			items := cached.([]model.ChecklistItem)
			tentative := make([]model.ChecklistItem, len(items))
			copy(tentative, items)
			for i := range tentative {
				if tentative[i].ID == id {
					patchItem(&tentative[i], req)
				}
			}
			return tentative
		},
		Commit: func(ctx context.Context) (any, error) {
			return s.checklists.Update(ctx, caller, id, fields)
		},
		Reconcile: func(tentative any, confirmed any) any {
			items := tentative.([]model.ChecklistItem)
			row := confirmed.(*model.ChecklistItem)
			for i := range items {
				if items[i].ID == row.ID {
					items[i] = *row
				}
			}
			return items
		},
		Invalidate: []cache.Key{
			checklistsKey(caller, nil),
			{Collection: "departments", Scope: caller.ID},
		},
	})
	if err != nil {
		return nil, err
	}

	row := confirmed.(*model.ChecklistItem)
	s.audit.Record(ctx, caller.ID, model.ActionUpdateChecklist, id.String(), row.Title, fields)
	s.notify("checklist.updated", id.String(), departmentID.String())
	return row, nil
}

// AssignTags inserts association rows per tag and reports per-tag outcomes;
// a partial failure comes back as both the row report and a StepError.
func (s *checklistService) AssignTags(ctx context.Context, caller repository.Caller, checklistID uuid.UUID, req AssignTagsRequest) ([]repository.TagAssignment, error) {
	item, err := s.checklists.GetByID(ctx, caller, checklistID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(ctx, caller, item.DepartmentID); err != nil {
		return nil, apperr.ErrNotFoundOrForbidden
	}

	tagIDs := make([]uuid.UUID, 0, len(req.TagIDs))
	for _, raw := range req.TagIDs {
		tagID, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperr.Invalid("tag_ids", "contains an invalid tag reference")
		}
		tagIDs = append(tagIDs, tagID)
	}

	results, err := s.tags.AssignToChecklist(ctx, checklistID, tagIDs)

	s.audit.Record(ctx, caller.ID, model.ActionAssignTags, checklistID.String(), item.Title,
		map[string]any{"tag_ids": req.TagIDs})
	s.store.Invalidate(
		checklistsKey(caller, &item.DepartmentID),
		checklistsKey(caller, nil),
	)
	s.notify("checklist.tags", checklistID.String(), item.DepartmentID.String())
	return results, err
}

func (s *checklistService) Tags(ctx context.Context, caller repository.Caller, checklistID uuid.UUID) ([]model.Tag, error) {
	// visibility check rides on the scoped item read
	if _, err := s.checklists.GetByID(ctx, caller, checklistID); err != nil {
		return nil, err
	}
	return s.tags.ForChecklist(ctx, checklistID)
}

// requireWriter allows admins, owners and editors; viewers and non-members
// are denied opaquely
func (s *checklistService) requireWriter(ctx context.Context, caller repository.Caller, departmentID uuid.UUID) error {
	if caller.IsAdmin {
		return nil
	}
	role, member, err := s.memberships.RoleIn(ctx, caller.ID, departmentID)
	if err != nil {
		return err
	}
	if !member || (role != model.MembershipOwner && role != model.MembershipEditor) {
		return apperr.ErrForbidden
	}
	return nil
}

func patchItem(item *model.ChecklistItem, req UpdateChecklistRequest) {
	if req.Completed != nil {
		item.Completed = *req.Completed
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	if req.AssignedTo != nil {
		item.AssignedTo = req.AssignedTo
	}
	if req.DueDate != nil {
		item.DueDate = *req.DueDate
	}
}

func (s *checklistService) notify(eventType, entityID, departmentID string) {
	if s.notifier != nil {
		s.notifier.NotifyChange(eventType, entityID, departmentID)
	}
}
