package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/artmarket/curator/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository persists user preference vectors. Writes always go
// through the behavior aggregator, which serializes them per user.
type PreferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Upsert creates or replaces the preference vector for a user.
func (r *PreferenceRepository) Upsert(ctx context.Context, pref *domain.UserPreferenceVector) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(pref).Error
}

// Get retrieves the preference vector for a user.
// Returns domain.ErrNotFound when the user has no persisted vector.
func (r *PreferenceRepository) Get(ctx context.Context, userID string) (*domain.UserPreferenceVector, error) {
	var pref domain.UserPreferenceVector
	if err := r.db.WithContext(ctx).First(&pref, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("preference vector for user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, err
	}
	return &pref, nil
}

// Delete removes a user's preference vector. Used by rebuild when a replay
// yields no positive history.
func (r *PreferenceRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Delete(&domain.UserPreferenceVector{}, "user_id = ?", userID).Error
}
