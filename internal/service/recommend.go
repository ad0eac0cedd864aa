package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artmarket/curator/internal/behavior"
	"github.com/artmarket/curator/internal/domain"
	"github.com/artmarket/curator/internal/logger"
	"github.com/artmarket/curator/internal/scorer"
	"github.com/artmarket/curator/internal/similarity"
	"github.com/artmarket/curator/internal/trending"
)

// ArtworkCatalog is the artwork metadata the recommender needs.
type ArtworkCatalog interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.Artwork, error)
	ListPublic(ctx context.Context, category, style string, limit int) ([]domain.Artwork, error)
}

// FeatureSource resolves feature vectors for a batch of artworks.
type FeatureSource interface {
	BatchGet(ctx context.Context, artworkIDs []string, modelVersion string) (map[string]domain.Vector, error)
}

// BehaviorReader is the per-user state the scorer consumes.
type BehaviorReader interface {
	Profile(ctx context.Context, userID string) (*behavior.UserProfile, error)
	SeenInSession(ctx context.Context, userID string, now time.Time) ([]string, error)
}

// TrendingReader serves the latest trending snapshot.
type TrendingReader interface {
	Current(ctx context.Context) (*trending.Snapshot, error)
}

// RecommendationLog persists served recommendations for feedback tracking.
type RecommendationLog interface {
	Create(ctx context.Context, rec *domain.RecommendationRecord) error
}

// RecommendConfig holds recommendation serving settings.
type RecommendConfig struct {
	ModelVersion string
	Profile      string
	DefaultTopN  int
	MaxTopN      int
	// CandidateFactor over-fetches the candidate pool relative to top_n so
	// exclusions and missing vectors do not starve the ranking.
	CandidateFactor int
}

// RecommendationService assembles candidate pools, scores them for a user,
// and records what was served.
type RecommendationService struct {
	catalog  ArtworkCatalog
	features FeatureSource
	behavior BehaviorReader
	trending TrendingReader
	engine   similarity.Engine
	scorer   *scorer.Scorer
	records  RecommendationLog
	logger   *logger.Logger
	cfg      RecommendConfig
}

// NewRecommendationService creates a recommendation service.
func NewRecommendationService(
	catalog ArtworkCatalog,
	features FeatureSource,
	behaviorReader BehaviorReader,
	trendingReader TrendingReader,
	engine similarity.Engine,
	rankScorer *scorer.Scorer,
	records RecommendationLog,
	log *logger.Logger,
	cfg RecommendConfig,
) *RecommendationService {
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = 20
	}
	if cfg.MaxTopN <= 0 {
		cfg.MaxTopN = 100
	}
	if cfg.CandidateFactor <= 0 {
		cfg.CandidateFactor = 3
	}
	return &RecommendationService{
		catalog:  catalog,
		features: features,
		behavior: behaviorReader,
		trending: trendingReader,
		engine:   engine,
		scorer:   rankScorer,
		records:  records,
		logger:   log,
		cfg:      cfg,
	}
}

// RecommendOptions narrows a recommendation request.
type RecommendOptions struct {
	TopN     int
	Category string
	Style    string
}

// RecommendationResult is a served ranking plus the artwork metadata the
// caller renders it with.
type RecommendationResult struct {
	Record   *domain.RecommendationRecord
	Artworks map[string]domain.Artwork
}

// ArtistRecommendation is one ranked artist with their strongest artwork.
type ArtistRecommendation struct {
	ArtistID              string          `json:"artist_id"`
	Score                 float64         `json:"score"`
	RepresentativeArtwork *domain.Artwork `json:"representative_artwork,omitempty"`
	Reason                string          `json:"reason"`
}

// RecommendArtworks returns a persisted, ranked list of artworks for the
// user. Cold-start users get the trending ranking; an exhausted candidate
// pool surfaces as domain.ErrEmptyPool.
func (s *RecommendationService) RecommendArtworks(ctx context.Context, userID string, opts RecommendOptions) (*RecommendationResult, error) {
	start := time.Now()
	topN := s.clampTopN(opts.TopN)

	profile, err := s.behavior.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user profile: %w", err)
	}
	seenList, err := s.behavior.SeenInSession(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("load session views: %w", err)
	}
	seen := make(map[string]struct{}, len(seenList))
	for _, id := range seenList {
		seen[id] = struct{}{}
	}

	snap, err := s.trending.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trending snapshot: %w", err)
	}

	poolSize := topN * s.cfg.CandidateFactor
	artworks, err := s.candidates(ctx, profile, snap, poolSize, opts)
	if err != nil {
		return nil, err
	}
	if len(artworks) == 0 {
		return nil, domain.ErrEmptyPool
	}

	ids := make([]string, 0, len(artworks))
	for _, a := range artworks {
		ids = append(ids, a.ID)
	}
	vectors, err := s.features.BatchGet(ctx, ids, s.cfg.ModelVersion)
	if err != nil {
		return nil, fmt.Errorf("load candidate vectors: %w", err)
	}

	byID := make(map[string]domain.Artwork, len(artworks))
	candidates := make([]scorer.Candidate, 0, len(artworks))
	for _, a := range artworks {
		vec, ok := vectors[a.ID]
		if !ok {
			// Not extracted yet; it cannot be scored on content, so it
			// sits out this request.
			continue
		}
		byID[a.ID] = a
		candidates = append(candidates, scorer.Candidate{ArtworkID: a.ID, Vector: vec})
	}
	if len(candidates) == 0 {
		return nil, domain.ErrEmptyPool
	}

	ranked, err := s.scorer.Rank(&scorer.Request{
		UserVector: profile.Vector,
		Affinities: profile.Affinities,
		Negatives:  profile.Negatives,
		Seen:       seen,
		Popularity: snap.Popularity,
		Candidates: candidates,
		TopN:       topN,
	})
	if err != nil {
		return nil, err
	}

	record := s.buildRecord(userID, ranked, start)
	if err := s.records.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persist recommendation: %w", err)
	}

	s.logger.WithFields(logger.Fields{
		logger.FieldUserID:           userID,
		logger.FieldRecommendationID: record.ID,
		logger.FieldCount:            len(record.Items),
		logger.FieldDurationMs:       time.Since(start).Milliseconds(),
	}).Info("served artwork recommendations")

	return &RecommendationResult{Record: record, Artworks: byID}, nil
}

// RecommendArtists ranks artists by their strongest-scoring artwork for the
// user.
func (s *RecommendationService) RecommendArtists(ctx context.Context, userID string, topN int) ([]ArtistRecommendation, error) {
	topN = s.clampTopN(topN)

	// Rank a wider slate of artworks, then collapse to artists.
	result, err := s.RecommendArtworks(ctx, userID, RecommendOptions{TopN: s.clampTopN(topN * s.cfg.CandidateFactor)})
	if err != nil {
		return nil, err
	}

	best := make(map[string]*ArtistRecommendation)
	order := make([]string, 0)
	for i := range result.Record.Items {
		item := &result.Record.Items[i]
		artwork, ok := result.Artworks[item.ArtworkID]
		if !ok {
			continue
		}
		// Items arrive score-descending, so the first artwork per artist
		// is already their best.
		if _, ok := best[artwork.ArtistID]; ok {
			continue
		}
		a := artwork
		best[artwork.ArtistID] = &ArtistRecommendation{
			ArtistID:              artwork.ArtistID,
			Score:                 item.Score,
			RepresentativeArtwork: &a,
			Reason:                item.Reason,
		}
		order = append(order, artwork.ArtistID)
	}

	out := make([]ArtistRecommendation, 0, len(order))
	for _, artistID := range order {
		out = append(out, *best[artistID])
		if len(out) == topN {
			break
		}
	}
	return out, nil
}

// candidates assembles the raw artwork pool before scoring. Warm users pull
// neighbors of their preference vector; cold users pull the trending
// ranking; an empty index or snapshot falls back to the public catalog.
func (s *RecommendationService) candidates(ctx context.Context, profile *behavior.UserProfile, snap *trending.Snapshot, limit int, opts RecommendOptions) ([]domain.Artwork, error) {
	var ids []string

	if !profile.IsColdStart() {
		matches, err := s.engine.Nearest(ctx, profile.Vector, limit, nil)
		if err != nil {
			return nil, fmt.Errorf("similarity search: %w", err)
		}
		for _, m := range matches {
			ids = append(ids, m.ArtworkID)
		}
	}
	if len(ids) == 0 {
		for _, e := range snap.Ranking(limit) {
			ids = append(ids, e.ArtworkID)
		}
	}
	if len(ids) == 0 {
		artworks, err := s.catalog.ListPublic(ctx, opts.Category, opts.Style, limit)
		if err != nil {
			return nil, fmt.Errorf("list catalog: %w", err)
		}
		return artworks, nil
	}

	artworks, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load candidate artworks: %w", err)
	}
	return filterArtworks(artworks, opts), nil
}

// filterArtworks keeps only servable artworks matching the request filters.
func filterArtworks(artworks []domain.Artwork, opts RecommendOptions) []domain.Artwork {
	out := artworks[:0]
	for _, a := range artworks {
		if a.Status != domain.ArtworkStatusActive || !a.IsPublic {
			continue
		}
		if opts.Category != "" && a.Category != opts.Category {
			continue
		}
		if opts.Style != "" && a.Style != opts.Style {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *RecommendationService) buildRecord(userID string, ranked []scorer.Ranked, generatedAt time.Time) *domain.RecommendationRecord {
	items := make(domain.RecommendedItems, 0, len(ranked))
	for i, r := range ranked {
		items = append(items, domain.RecommendedItem{
			ArtworkID: r.ArtworkID,
			Score:     r.Score,
			Position:  i,
			Breakdown: r.Breakdown,
			Reason:    reasonFor(r),
		})
	}

	profile := s.cfg.Profile
	if len(ranked) > 0 && ranked[0].ColdStart {
		profile = scorer.ProfileColdStart
	}
	return &domain.RecommendationRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		Items:        items,
		ModelVersion: s.cfg.ModelVersion,
		Profile:      profile,
		GeneratedAt:  generatedAt,
	}
}

// reasonFor names the signal that carried the item, for display next to the
// recommendation.
func reasonFor(r scorer.Ranked) string {
	if r.ColdStart {
		return "trending in the community"
	}
	b := r.Breakdown
	switch {
	case b.Content >= b.Behavior && b.Content >= b.Popularity:
		return "visually similar to artworks you liked"
	case b.Behavior >= b.Popularity:
		return "based on your interaction history"
	default:
		return "popular right now"
	}
}

func (s *RecommendationService) clampTopN(n int) int {
	if n <= 0 {
		return s.cfg.DefaultTopN
	}
	if n > s.cfg.MaxTopN {
		return s.cfg.MaxTopN
	}
	return n
}
