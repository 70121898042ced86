package service

import (
	"context"
	"strings"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/cache"
	"compliance-backend/internal/model"
	"compliance-backend/internal/repository"

	"github.com/google/uuid"
)

type CreateTagRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color" binding:"required"`
}

// TagService manages the organization's tag palette. Tags are shared across
// the organization, so their cache scope is global rather than per caller.
type TagService interface {
	List(ctx context.Context, caller repository.Caller) ([]model.Tag, error)
	Create(ctx context.Context, caller repository.Caller, req CreateTagRequest) (*model.Tag, error)
	Delete(ctx context.Context, caller repository.Caller, id uuid.UUID) error
}

type tagService struct {
	tags     repository.TagRepository
	store    *cache.Store
	audit    AuditService
	notifier ChangeNotifier
}

// NewTagService returns a new instance of TagService
func NewTagService(tags repository.TagRepository, store *cache.Store, audit AuditService, notifier ChangeNotifier) TagService {
	return &tagService{tags: tags, store: store, audit: audit, notifier: notifier}
}

var tagsKey = cache.Key{Collection: "tags", Scope: "org"}

func (s *tagService) List(ctx context.Context, caller repository.Caller) ([]model.Tag, error) {
	var tags []model.Tag
	err := cache.Retry(ctx, cache.DefaultRetryPolicy, func(ctx context.Context) error {
		data, err := s.store.Get(ctx, tagsKey, func(ctx context.Context) (any, error) {
			return s.tags.List(ctx)
		})
		if err != nil {
			return err
		}
		tags = data.([]model.Tag)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// Create rejects a name that already exists under case-insensitive comparison
// before any write is attempted; the database's own unique constraint backs
// the same rule up afterwards.
func (s *tagService) Create(ctx context.Context, caller repository.Caller, req CreateTagRequest) (*model.Tag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid("name", "must not be empty")
	}
	if !model.ValidTagColor(req.Color) {
		return nil, apperr.Invalid("color", "must be one of "+strings.Join(model.TagColors, ", "))
	}

	existing, err := s.List(ctx, caller)
	if err != nil {
		return nil, err
	}
	for _, t := range existing {
		if strings.EqualFold(t.Name, name) {
			return nil, apperr.ErrDuplicateName
		}
	}

	tag := &model.Tag{Name: name, Color: req.Color}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, caller.ID, model.ActionCreateTag, tag.ID.String(), name,
		map[string]string{"color": req.Color})
	s.store.Invalidate(tagsKey)
	s.notify("tag.created", tag.ID.String())
	return tag, nil
}

// Delete removes the tag and its associations; checklist items are untouched
func (s *tagService) Delete(ctx context.Context, caller repository.Caller, id uuid.UUID) error {
	if err := s.tags.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, caller.ID, model.ActionDeleteTag, id.String(), "", nil)
	s.store.Invalidate(tagsKey)
	s.notify("tag.deleted", id.String())
	return nil
}

func (s *tagService) notify(eventType, entityID string) {
	if s.notifier != nil {
		s.notifier.NotifyChange(eventType, entityID, "")
	}
}
