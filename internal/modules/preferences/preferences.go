// Package preferences stores per-user summarization preference profiles.
package preferences

import (
	"context"
	"errors"

	"github.com/distill-app/core/internal/models"
	"github.com/distill-app/core/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Store is the surface the HTTP handler and the pipeline consume.
type Store interface {
	Get(ctx context.Context, userID string) (*models.PreferenceModel, error)
	ProfileFor(ctx context.Context, userID string) (models.PreferenceProfile, error)
	Upsert(ctx context.Context, userID string, profile models.PreferenceProfile) (*models.PreferenceModel, error)
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Get returns the stored profile row, or (nil, nil) when none exists.
func (s *Service) Get(ctx context.Context, userID string) (*models.PreferenceModel, error) {
	var row models.PreferenceModel
	if err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ProfileFor resolves the profile the pipeline must use. A user without a
// stored profile is a conflict, not a silent default: summaries must never
// be generated against preferences the user did not choose.
func (s *Service) ProfileFor(ctx context.Context, userID string) (models.PreferenceProfile, error) {
	row, err := s.Get(ctx, userID)
	if err != nil {
		return models.PreferenceProfile{}, err
	}
	if row == nil {
		return models.PreferenceProfile{}, &apperrors.PersistenceConflictError{
			Message: "no preference profile stored for user",
		}
	}
	return row.Profile(), nil
}

// Upsert validates and stores the profile, replacing any existing one.
func (s *Service) Upsert(ctx context.Context, userID string, profile models.PreferenceProfile) (*models.PreferenceModel, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	row := models.PreferenceModel{
		UserID:      userID,
		Style:       profile.Style,
		DetailLevel: profile.DetailLevel,
		FocusAreas:  models.StringSlice(profile.FocusAreas),
	}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Assign(map[string]interface{}{
			"style":        profile.Style,
			"detail_level": profile.DetailLevel,
			"focus_areas":  models.StringSlice(profile.FocusAreas),
		}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
