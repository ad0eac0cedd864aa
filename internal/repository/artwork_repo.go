package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/artmarket/curator/internal/domain"
	"gorm.io/gorm"
)

// ArtworkRepository handles artwork catalog data operations.
type ArtworkRepository struct {
	db *gorm.DB
}

// NewArtworkRepository creates a new ArtworkRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ArtworkRepository: repository instance bound to db.
func NewArtworkRepository(db *gorm.DB) *ArtworkRepository {
	return &ArtworkRepository{db: db}
}

// Create inserts a new artwork record.
func (r *ArtworkRepository) Create(ctx context.Context, artwork *domain.Artwork) error {
	return r.db.WithContext(ctx).Create(artwork).Error
}

// Update updates an existing artwork record.
func (r *ArtworkRepository) Update(ctx context.Context, artwork *domain.Artwork) error {
	return r.db.WithContext(ctx).Save(artwork).Error
}

// GetByID retrieves an artwork by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: artwork ID.
// Returns:
//   - *domain.Artwork: artwork record if found.
//   - error: domain.ErrNotFound if missing, otherwise the storage error.
func (r *ArtworkRepository) GetByID(ctx context.Context, id string) (*domain.Artwork, error) {
	var artwork domain.Artwork
	if err := r.db.WithContext(ctx).First(&artwork, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("artwork %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &artwork, nil
}

// GetByIDs retrieves artworks by a list of IDs.
func (r *ArtworkRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Artwork, error) {
	if len(ids) == 0 {
		return []domain.Artwork{}, nil
	}
	var artworks []domain.Artwork
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&artworks).Error; err != nil {
		return nil, fmt.Errorf("failed to get artworks by IDs: %w", err)
	}
	return artworks, nil
}

// ListPublic retrieves public, active artworks with optional category and
// style filters, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - category: category filter; empty means all.
//   - style: style filter; empty means all.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.Artwork: matching artwork records.
//   - error: non-nil if the query fails.
func (r *ArtworkRepository) ListPublic(ctx context.Context, category, style string, limit int) ([]domain.Artwork, error) {
	var artworks []domain.Artwork
	query := r.db.WithContext(ctx).
		Where("is_public = ?", true).
		Where("status = ?", domain.ArtworkStatusActive)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if style != "" {
		query = query.Where("style = ?", style)
	}
	if err := query.
		Limit(limit).
		Order("created_at DESC").
		Find(&artworks).Error; err != nil {
		return nil, err
	}
	return artworks, nil
}

// GetCategories retrieves all distinct categories among active artworks.
func (r *ArtworkRepository) GetCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.db.WithContext(ctx).
		Model(&domain.Artwork{}).
		Where("status = ?", domain.ArtworkStatusActive).
		Distinct("category").
		Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// CountByStatus counts artworks by status.
func (r *ArtworkRepository) CountByStatus(ctx context.Context, status domain.ArtworkStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Artwork{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
