package repository

import (
	"context"
	"errors"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository persists the locally mirrored identity-provider accounts
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetRole(ctx context.Context, id string) (string, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new instance of ProfileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Upsert(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "email", "role", "updated_at"}),
	}).Create(profile).Error
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFoundOrForbidden
		}
		return nil, err
	}
	return &profile, nil
}

// GetRole returns the caller's global role; accounts with no local profile
// row yet default to user.
func (r *profileRepository) GetRole(ctx context.Context, id string) (string, error) {
	profile, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFoundOrForbidden) {
			return model.RoleUser, nil
		}
		return "", err
	}
	return profile.Role, nil
}
