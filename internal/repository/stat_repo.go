package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/artmarket/curator/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatRepository persists the materialized behavior statistics cache.
// The event log remains the system of record; rows here are rebuildable.
type StatRepository struct {
	db *gorm.DB
}

// NewStatRepository creates a new StatRepository.
func NewStatRepository(db *gorm.DB) *StatRepository {
	return &StatRepository{db: db}
}

// Upsert creates or replaces a stat row keyed by (user_id, artwork_id).
func (r *StatRepository) Upsert(ctx context.Context, stat *domain.BehaviorStat) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "artwork_id"}},
		UpdateAll: true,
	}).Create(stat).Error
}

// Get retrieves the stat for a (user, artwork) pair.
// Returns domain.ErrNotFound when no interactions exist for the pair.
func (r *StatRepository) Get(ctx context.Context, userID, artworkID string) (*domain.BehaviorStat, error) {
	var stat domain.BehaviorStat
	if err := r.db.WithContext(ctx).
		First(&stat, "user_id = ? AND artwork_id = ?", userID, artworkID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("behavior stat %s/%s: %w", userID, artworkID, domain.ErrNotFound)
		}
		return nil, err
	}
	return &stat, nil
}

// ListByUser retrieves all stat rows for a user.
func (r *StatRepository) ListByUser(ctx context.Context, userID string) ([]domain.BehaviorStat, error) {
	var stats []domain.BehaviorStat
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to list stats for user %s: %w", userID, err)
	}
	return stats, nil
}

// DeleteByUser drops all stat rows for a user ahead of a rebuild replay.
func (r *StatRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Delete(&domain.BehaviorStat{}, "user_id = ?", userID).Error
}
