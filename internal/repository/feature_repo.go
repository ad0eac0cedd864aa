package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/artmarket/curator/internal/domain"
	"gorm.io/gorm"
)

// FeatureRepository handles persistence of artwork feature vectors.
type FeatureRepository struct {
	db *gorm.DB
}

// NewFeatureRepository creates a new FeatureRepository.
func NewFeatureRepository(db *gorm.DB) *FeatureRepository {
	return &FeatureRepository{db: db}
}

// Insert writes a new feature row. The unique index on
// (artwork_id, model_version) rejects duplicates; duplicates surface as
// domain.ErrConflict so the store can refuse silent overwrites.
func (r *FeatureRepository) Insert(ctx context.Context, feature *domain.ArtworkFeature) error {
	if err := r.db.WithContext(ctx).Create(feature).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("feature %s@%s: %w", feature.ArtworkID, feature.ModelVersion, domain.ErrConflict)
		}
		return err
	}
	return nil
}

// Get retrieves the feature for an exact (artwork_id, model_version) pair.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - artworkID: artwork ID.
//   - modelVersion: embedding model version tag.
// Returns:
//   - *domain.ArtworkFeature: feature record if found.
//   - error: domain.ErrNotFound if missing, otherwise the storage error.
func (r *FeatureRepository) Get(ctx context.Context, artworkID, modelVersion string) (*domain.ArtworkFeature, error) {
	var feature domain.ArtworkFeature
	if err := r.db.WithContext(ctx).
		First(&feature, "artwork_id = ? AND model_version = ?", artworkID, modelVersion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("feature %s@%s: %w", artworkID, modelVersion, domain.ErrNotFound)
		}
		return nil, err
	}
	return &feature, nil
}

// GetLatest retrieves the most recently created feature for an artwork
// across model versions.
func (r *FeatureRepository) GetLatest(ctx context.Context, artworkID string) (*domain.ArtworkFeature, error) {
	var feature domain.ArtworkFeature
	if err := r.db.WithContext(ctx).
		Where("artwork_id = ?", artworkID).
		Order("created_at DESC").
		First(&feature).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("feature %s: %w", artworkID, domain.ErrNotFound)
		}
		return nil, err
	}
	return &feature, nil
}

// GetBatch retrieves features for multiple artworks at one model version.
// Missing artworks are omitted from the result, never an error.
func (r *FeatureRepository) GetBatch(ctx context.Context, artworkIDs []string, modelVersion string) ([]domain.ArtworkFeature, error) {
	if len(artworkIDs) == 0 {
		return []domain.ArtworkFeature{}, nil
	}
	var features []domain.ArtworkFeature
	if err := r.db.WithContext(ctx).
		Where("artwork_id IN ? AND model_version = ?", artworkIDs, modelVersion).
		Find(&features).Error; err != nil {
		return nil, fmt.Errorf("failed to get features batch: %w", err)
	}
	return features, nil
}

// ListByVersion streams all features at a model version, for index warm-up.
func (r *FeatureRepository) ListByVersion(ctx context.Context, modelVersion string, limit, offset int) ([]domain.ArtworkFeature, error) {
	var features []domain.ArtworkFeature
	if err := r.db.WithContext(ctx).
		Where("model_version = ?", modelVersion).
		Limit(limit).
		Offset(offset).
		Order("artwork_id ASC").
		Find(&features).Error; err != nil {
		return nil, err
	}
	return features, nil
}

// Delete removes the feature for an exact (artwork_id, model_version) pair.
// Used only for manual eviction paths.
func (r *FeatureRepository) Delete(ctx context.Context, artworkID, modelVersion string) error {
	return r.db.WithContext(ctx).
		Delete(&domain.ArtworkFeature{}, "artwork_id = ? AND model_version = ?", artworkID, modelVersion).Error
}
