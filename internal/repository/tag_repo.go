package repository

import (
	"context"
	"errors"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TagAssignment is the per-tag outcome of a multi-row association insert.
// Partial failure is reported row by row, never collapsed.
type TagAssignment struct {
	TagID uuid.UUID `json:"tag_id"`
	Error string    `json:"error,omitempty"`
}

// TagRepository manages tags and their checklist associations
type TagRepository interface {
	List(ctx context.Context) ([]model.Tag, error)
	Create(ctx context.Context, tag *model.Tag) error
	Delete(ctx context.Context, id uuid.UUID) error
	AssignToChecklist(ctx context.Context, checklistID uuid.UUID, tagIDs []uuid.UUID) ([]TagAssignment, error)
	ForChecklist(ctx context.Context, checklistID uuid.UUID) ([]model.Tag, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new instance of TagRepository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) List(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	if err := GetDB(ctx, r.db).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) Create(ctx context.Context, tag *model.Tag) error {
	return GetDB(ctx, r.db).Create(tag).Error
}

// Delete removes a tag and its associations. Checklist items themselves are
// never touched.
func (r *tagRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := GetDB(ctx, r.db).Where("tag_id = ?", id).Delete(&model.ChecklistTag{}).Error; err != nil {
		return &apperr.StepError{Step: "association cleanup", Err: err}
	}

	result := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Tag{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNotFoundOrForbidden
	}
	return nil
}

// alreadyAssigned reports whether err is the unique violation a repeated
// association insert raises. Depends on the connection being opened with
// TranslateError so the driver's unique-violation code surfaces as
// gorm.ErrDuplicatedKey.
func alreadyAssigned(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// AssignToChecklist inserts one association row per tag id. Rows are inserted
// independently; each failure is recorded against its tag and the rest
// continue.
func (r *tagRepository) AssignToChecklist(ctx context.Context, checklistID uuid.UUID, tagIDs []uuid.UUID) ([]TagAssignment, error) {
	results := make([]TagAssignment, 0, len(tagIDs))
	failed := 0
	for _, tagID := range tagIDs {
		assignment := TagAssignment{TagID: tagID}
		err := GetDB(ctx, r.db).Create(&model.ChecklistTag{
			ChecklistID: checklistID,
			TagID:       tagID,
		}).Error
		if err != nil {
			if alreadyAssigned(err) {
				// already assigned; not a failure
				results = append(results, assignment)
				continue
			}
			assignment.Error = err.Error()
			failed++
		}
		results = append(results, assignment)
	}

	if failed > 0 && failed == len(tagIDs) {
		return results, errors.New("no tag associations could be created")
	}
	if failed > 0 {
		return results, &apperr.StepError{Step: "tag assignment", Err: errors.New("some associations failed")}
	}
	return results, nil
}

func (r *tagRepository) ForChecklist(ctx context.Context, checklistID uuid.UUID) ([]model.Tag, error) {
	var tags []model.Tag
	err := GetDB(ctx, r.db).
		Joins("JOIN checklist_tags ON checklist_tags.tag_id = tags.id").
		Where("checklist_tags.checklist_id = ?", checklistID).
		Order("tags.name").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}
