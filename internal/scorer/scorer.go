// Package scorer ranks candidate artworks for a user by blending content
// similarity, behavioral affinity, and popularity into one score per
// candidate. It is a pure computation: callers assemble the inputs, the
// scorer only orders them.
package scorer

import (
	"fmt"
	"sort"

	"github.com/artmarket/curator/internal/domain"
)

type Config struct {
	Dimension int
	Weights   Weights
	// Penalty is deducted from any artwork the user has negatively rated,
	// so disliked items sink instead of resurfacing.
	Penalty float64
}

// Candidate is one artwork under consideration, with its feature vector.
type Candidate struct {
	ArtworkID string
	Vector    domain.Vector
}

// Request carries everything a ranking needs. Affinities, Negatives, and
// Seen key by artwork ID; missing keys mean no signal.
type Request struct {
	// UserVector is the preference vector; the zero sentinel marks a
	// cold-start user and forces the pure-popularity profile.
	UserVector domain.Vector
	Affinities map[string]float64
	Negatives  map[string]struct{}
	// Seen holds artworks viewed in the current session. They are dropped
	// when the pool can spare them, otherwise ranked below unseen ones.
	Seen       map[string]struct{}
	Popularity func(artworkID string) float64
	Candidates []Candidate
	TopN       int
}

// Ranked is one scored candidate in the output order.
type Ranked struct {
	ArtworkID string
	Score     float64
	Breakdown domain.ScoreBreakdown
	// ColdStart marks that the pure-popularity fallback produced this
	// score.
	ColdStart bool
	// Seen marks a session-repeat that was kept only to fill the pool.
	Seen bool
}

type Scorer struct {
	cfg Config
}

func New(cfg Config) *Scorer {
	if cfg.Penalty <= 0 {
		cfg.Penalty = 1.0
	}
	return &Scorer{cfg: cfg}
}

// Rank scores the candidates and returns up to TopN of them, best first.
// Ordering is total: score descending, then artwork ID ascending, with
// session-seen items always after unseen ones. An empty pool is the caller's
// bug and returns ErrEmptyPool; absent personalization signal is not an
// error, it just flips the profile to pure popularity.
func (s *Scorer) Rank(req *Request) ([]Ranked, error) {
	if len(req.Candidates) == 0 {
		return nil, domain.ErrEmptyPool
	}
	if req.TopN <= 0 {
		return nil, fmt.Errorf("top_n must be positive, got %d", req.TopN)
	}
	if req.UserVector.Dim() != s.cfg.Dimension {
		return nil, domain.NewDimensionError(s.cfg.Dimension, req.UserVector.Dim())
	}

	coldStart := req.UserVector.IsZero()
	weights := s.cfg.Weights
	if coldStart {
		weights = ColdStartWeights()
	}

	// Session-seen candidates are dropped outright when the pool is large
	// enough to fill top_n without them. A short pool keeps them, ranked
	// last.
	keepSeen := len(req.Candidates) < req.TopN

	ranked := make([]Ranked, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		if c.Vector.Dim() != s.cfg.Dimension {
			return nil, domain.NewDimensionError(s.cfg.Dimension, c.Vector.Dim())
		}
		_, seen := req.Seen[c.ArtworkID]
		if seen && !keepSeen {
			continue
		}

		b := domain.ScoreBreakdown{
			Behavior: req.Affinities[c.ArtworkID],
		}
		if !coldStart {
			b.Content = req.UserVector.Cosine(c.Vector)
		}
		if req.Popularity != nil {
			b.Popularity = req.Popularity(c.ArtworkID)
		}
		if _, negative := req.Negatives[c.ArtworkID]; negative {
			b.Penalty = s.cfg.Penalty
		}

		score := weights.Content*b.Content +
			weights.Behavior*b.Behavior +
			weights.Popularity*b.Popularity -
			b.Penalty

		ranked = append(ranked, Ranked{
			ArtworkID: c.ArtworkID,
			Score:     score,
			Breakdown: b,
			ColdStart: coldStart,
			Seen:      seen,
		})
	}
	if len(ranked) == 0 {
		return nil, domain.ErrEmptyPool
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Seen != ranked[j].Seen {
			return !ranked[i].Seen
		}
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ArtworkID < ranked[j].ArtworkID
	})
	if len(ranked) > req.TopN {
		ranked = ranked[:req.TopN]
	}
	return ranked, nil
}

// Weights reports the configured profile weights before any cold-start
// override.
func (s *Scorer) Weights() Weights { return s.cfg.Weights }
