package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artmarket/curator/internal/domain"
	"gorm.io/gorm"
)

// RecommendationRepository persists served recommendation batches for
// offline evaluation. Records are written once; only per-item outcomes are
// amended by the feedback loop.
type RecommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository creates a new RecommendationRepository.
func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Create inserts a new recommendation record.
func (r *RecommendationRepository) Create(ctx context.Context, rec *domain.RecommendationRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// GetByID retrieves a recommendation record.
func (r *RecommendationRepository) GetByID(ctx context.Context, id string) (*domain.RecommendationRecord, error) {
	var rec domain.RecommendationRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recommendation %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

// SetItemOutcome records the feedback outcome on a single item of an
// existing recommendation record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - recID: recommendation record ID.
//   - artworkID: artwork whose outcome to set.
//   - outcome: observed outcome.
// Returns:
//   - error: domain.ErrNotFound if record or item is missing.
func (r *RecommendationRepository) SetItemOutcome(ctx context.Context, recID, artworkID string, outcome domain.Outcome) error {
	rec, err := r.GetByID(ctx, recID)
	if err != nil {
		return err
	}

	found := false
	for i := range rec.Items {
		if rec.Items[i].ArtworkID == artworkID {
			rec.Items[i].Outcome = outcome
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("artwork %s in recommendation %s: %w", artworkID, recID, domain.ErrNotFound)
	}

	return r.db.WithContext(ctx).
		Model(&domain.RecommendationRecord{}).
		Where("id = ?", recID).
		Update("items", rec.Items).Error
}

// ListByUser retrieves a user's recommendation history, newest first.
func (r *RecommendationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.RecommendationRecord, error) {
	var recs []domain.RecommendationRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("generated_at DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// ListByTimeRange retrieves all recommendation records generated within
// [start, end), for analytics.
func (r *RecommendationRepository) ListByTimeRange(ctx context.Context, start, end time.Time) ([]domain.RecommendationRecord, error) {
	var recs []domain.RecommendationRecord
	if err := r.db.WithContext(ctx).
		Where("generated_at >= ? AND generated_at < ?", start, end).
		Order("generated_at ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// CountByUser counts records served to a user.
func (r *RecommendationRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.RecommendationRecord{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
