package feature

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/artmarket/curator/internal/domain"
	"github.com/google/uuid"
)

// Persistence is the durable backend for artwork features. The gorm
// repository satisfies it in production; tests use in-memory fakes.
type Persistence interface {
	Insert(ctx context.Context, feature *domain.ArtworkFeature) error
	Get(ctx context.Context, artworkID, modelVersion string) (*domain.ArtworkFeature, error)
	GetLatest(ctx context.Context, artworkID string) (*domain.ArtworkFeature, error)
	GetBatch(ctx context.Context, artworkIDs []string, modelVersion string) ([]domain.ArtworkFeature, error)
}

// StoreConfig holds feature store configuration.
type StoreConfig struct {
	Dimension      int
	DefaultVersion string
}

// Store holds per-artwork feature vectors: pure data access over a durable
// backend with a write-through memory cache. Vectors are frozen once
// written; a new extraction generation bumps the model version instead of
// overwriting.
type Store struct {
	persistence    Persistence
	dimension      int
	defaultVersion string

	mu    sync.RWMutex
	cache map[string]domain.Vector // "artworkID@modelVersion" -> vector
}

// NewStore creates a feature store over the given persistence backend.
func NewStore(persistence Persistence, cfg *StoreConfig) *Store {
	return &Store{
		persistence:    persistence,
		dimension:      cfg.Dimension,
		defaultVersion: cfg.DefaultVersion,
		cache:          make(map[string]domain.Vector),
	}
}

func cacheKey(artworkID, modelVersion string) string {
	return artworkID + "@" + modelVersion
}

// Put stores the feature for an exact (artwork_id, model_version) pair.
// The vector must match the configured dimension and is re-normalized on
// the way in, which guarantees the unit-vector precondition the similarity
// engine relies on.
//
// Returns domain.ErrConflict if a frozen feature already exists for the
// pair: re-extraction must bump the model version, never overwrite.
func (s *Store) Put(ctx context.Context, artworkID string, vector domain.Vector, modelVersion string) (*domain.ArtworkFeature, error) {
	if vector.Dim() != s.dimension {
		return nil, domain.NewDimensionError(s.dimension, vector.Dim())
	}
	if modelVersion == "" {
		modelVersion = s.defaultVersion
	}

	feature := &domain.ArtworkFeature{
		ID:           uuid.New().String(),
		ArtworkID:    artworkID,
		ModelVersion: modelVersion,
		Vector:       vector.Normalized(),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.persistence.Insert(ctx, feature); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[cacheKey(artworkID, modelVersion)] = feature.Vector
	s.mu.Unlock()

	return feature, nil
}

// Get returns the vector for an artwork. An empty model version selects the
// latest stored generation. Returns domain.ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, artworkID, modelVersion string) (domain.Vector, error) {
	if modelVersion == "" {
		feature, err := s.persistence.GetLatest(ctx, artworkID)
		if err != nil {
			return nil, err
		}
		return feature.Vector, nil
	}

	s.mu.RLock()
	cached, ok := s.cache[cacheKey(artworkID, modelVersion)]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	feature, err := s.persistence.Get(ctx, artworkID, modelVersion)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[cacheKey(artworkID, modelVersion)] = feature.Vector
	s.mu.Unlock()

	return feature.Vector, nil
}

// BatchGet returns a map from artwork ID to vector at the given model
// version. IDs without a stored feature are omitted; a partial miss never
// fails the batch.
func (s *Store) BatchGet(ctx context.Context, artworkIDs []string, modelVersion string) (map[string]domain.Vector, error) {
	if modelVersion == "" {
		modelVersion = s.defaultVersion
	}

	out := make(map[string]domain.Vector, len(artworkIDs))
	var misses []string

	s.mu.RLock()
	for _, id := range artworkIDs {
		if v, ok := s.cache[cacheKey(id, modelVersion)]; ok {
			out[id] = v
		} else {
			misses = append(misses, id)
		}
	}
	s.mu.RUnlock()

	if len(misses) == 0 {
		return out, nil
	}

	features, err := s.persistence.GetBatch(ctx, misses, modelVersion)
	if err != nil {
		return nil, fmt.Errorf("feature batch read: %w", err)
	}

	s.mu.Lock()
	for _, f := range features {
		out[f.ArtworkID] = f.Vector
		s.cache[cacheKey(f.ArtworkID, f.ModelVersion)] = f.Vector
	}
	s.mu.Unlock()

	return out, nil
}

// DefaultVersion returns the store's current default model version.
func (s *Store) DefaultVersion() string {
	return s.defaultVersion
}

// Dimension returns the canonical vector dimension D.
func (s *Store) Dimension() int {
	return s.dimension
}
