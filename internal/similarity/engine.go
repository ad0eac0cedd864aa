// Package similarity ranks artworks by closeness to a query vector.
//
// Two engines implement the same contract: a linear scanner that walks the
// whole index exactly, and an approximate engine backed by a vector database
// for pools too large to scan per request. Callers pick one at wiring time
// and never see the difference.
package similarity

import (
	"context"

	"github.com/artmarket/curator/internal/domain"
)

// Match is a single result of a nearest-neighbor query.
type Match struct {
	ArtworkID string
	// Score is the cosine similarity to the query, in [-1, 1]. Vectors are
	// unit-normalized at ingest so this is a plain dot product.
	Score float64
}

// Engine finds the artworks closest to a query vector.
type Engine interface {
	// Nearest returns up to k matches ordered by score descending. Equal
	// scores order by artwork ID ascending so results are deterministic.
	// IDs in exclude never appear in the result.
	Nearest(ctx context.Context, query domain.Vector, k int, exclude []string) ([]Match, error)

	// Add makes an artwork's vector visible to subsequent queries.
	// Re-adding an existing ID replaces its vector.
	Add(ctx context.Context, artworkID string, vector domain.Vector) error

	// Remove drops an artwork from the index. Removing an unknown ID is a
	// no-op.
	Remove(ctx context.Context, artworkID string) error
}

func excludeSet(exclude []string) map[string]struct{} {
	if len(exclude) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		set[id] = struct{}{}
	}
	return set
}
