package similarity

import (
	"context"
	"sort"

	"github.com/artmarket/curator/internal/domain"
	"github.com/artmarket/curator/internal/repository"
)

// ANNConfig tunes the approximate engine.
type ANNConfig struct {
	Dimension    int
	ModelVersion string
	// RecallFloor is the recall@k the deployment is expected to sustain
	// against an exact scan. It is carried here so operators can read the
	// configured guarantee off a running instance; the index parameters
	// that achieve it are set at collection creation.
	RecallFloor float64
}

// ANNEngine serves nearest-neighbor queries from a qdrant HNSW collection.
// Results are approximate: a neighbor can be missed, within the configured
// recall floor.
type ANNEngine struct {
	repo *repository.QdrantRepository
	cfg  ANNConfig
}

func NewANNEngine(repo *repository.QdrantRepository, cfg ANNConfig) *ANNEngine {
	return &ANNEngine{repo: repo, cfg: cfg}
}

// RecallFloor reports the configured recall guarantee.
func (e *ANNEngine) RecallFloor() float64 { return e.cfg.RecallFloor }

func (e *ANNEngine) Add(ctx context.Context, artworkID string, vector domain.Vector) error {
	if vector.Dim() != e.cfg.Dimension {
		return domain.NewDimensionError(e.cfg.Dimension, vector.Dim())
	}
	pointID := repository.PointID(artworkID, e.cfg.ModelVersion)
	return e.repo.Upsert(ctx, pointID, vector, &repository.ArtworkPayload{
		ArtworkID:    artworkID,
		ModelVersion: e.cfg.ModelVersion,
	})
}

func (e *ANNEngine) Remove(ctx context.Context, artworkID string) error {
	return e.repo.Delete(ctx, repository.PointID(artworkID, e.cfg.ModelVersion))
}

func (e *ANNEngine) Nearest(ctx context.Context, query domain.Vector, k int, exclude []string) ([]Match, error) {
	if query.Dim() != e.cfg.Dimension {
		return nil, domain.NewDimensionError(e.cfg.Dimension, query.Dim())
	}
	if k <= 0 {
		return nil, nil
	}
	results, err := e.repo.Search(ctx, query, k, e.cfg.ModelVersion, exclude)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{ArtworkID: r.ArtworkID, Score: float64(r.Score)})
	}
	// qdrant orders by score but not by ID within a score; re-sort so ties
	// come back deterministic like the exact engine.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ArtworkID < matches[j].ArtworkID
	})
	return matches, nil
}
