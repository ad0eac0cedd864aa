package similarity

import (
	"context"
	"sort"
	"sync"

	"github.com/artmarket/curator/internal/domain"
)

// LinearEngine is an exact engine that scans every indexed vector per query.
// It is the right choice up to tens of thousands of artworks; beyond that,
// use the approximate engine.
type LinearEngine struct {
	mu      sync.RWMutex
	vectors map[string]domain.Vector
	dim     int
}

// NewLinearEngine returns an empty exact-scan engine for vectors of the
// given dimension.
func NewLinearEngine(dimension int) *LinearEngine {
	return &LinearEngine{
		vectors: make(map[string]domain.Vector),
		dim:     dimension,
	}
}

func (e *LinearEngine) Add(_ context.Context, artworkID string, vector domain.Vector) error {
	if vector.Dim() != e.dim {
		return domain.NewDimensionError(e.dim, vector.Dim())
	}
	e.mu.Lock()
	e.vectors[artworkID] = vector.Clone()
	e.mu.Unlock()
	return nil
}

func (e *LinearEngine) Remove(_ context.Context, artworkID string) error {
	e.mu.Lock()
	delete(e.vectors, artworkID)
	e.mu.Unlock()
	return nil
}

// Len reports the number of indexed artworks.
func (e *LinearEngine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.vectors)
}

func (e *LinearEngine) Nearest(_ context.Context, query domain.Vector, k int, exclude []string) ([]Match, error) {
	if query.Dim() != e.dim {
		return nil, domain.NewDimensionError(e.dim, query.Dim())
	}
	if k <= 0 {
		return nil, nil
	}
	skip := excludeSet(exclude)

	e.mu.RLock()
	matches := make([]Match, 0, len(e.vectors))
	for id, v := range e.vectors {
		if _, ok := skip[id]; ok {
			continue
		}
		matches = append(matches, Match{ArtworkID: id, Score: query.Dot(v)})
	}
	e.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ArtworkID < matches[j].ArtworkID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
