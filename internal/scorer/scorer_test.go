package scorer

import (
	"errors"
	"math"
	"testing"

	"github.com/artmarket/curator/internal/domain"
)

const tol = 1e-6

func TestRankBehaviorOutweighsContent(t *testing.T) {
	// With equal content and behavior weights, a strong direct-like
	// history beats a better visual match.
	s := New(Config{
		Dimension: 3,
		Weights:   Weights{Content: 0.5, Behavior: 0.5, Popularity: 0},
	})

	got, err := s.Rank(&Request{
		UserVector: domain.Vector{1, 0, 0},
		Affinities: map[string]float64{"B": 0.8},
		Candidates: []Candidate{
			{ArtworkID: "A", Vector: domain.Vector{0.9, float32(math.Sqrt(1 - 0.81)), 0}},
			{ArtworkID: "B", Vector: domain.Vector{0.2, float32(math.Sqrt(1 - 0.04)), 0}},
		},
		TopN: 2,
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if got[0].ArtworkID != "B" || got[1].ArtworkID != "A" {
		t.Fatalf("order = [%s %s], want [B A]", got[0].ArtworkID, got[1].ArtworkID)
	}
	if math.Abs(got[0].Score-0.5) > tol {
		t.Errorf("score(B) = %v, want 0.5", got[0].Score)
	}
	if math.Abs(got[1].Score-0.45) > tol {
		t.Errorf("score(A) = %v, want 0.45", got[1].Score)
	}
}

func TestRankColdStartUsesPopularityOnly(t *testing.T) {
	s := New(Config{
		Dimension: 3,
		Weights:   Weights{Content: 0.5, Behavior: 0.3, Popularity: 0.2},
	})

	popularity := map[string]float64{"hot": 1.0, "warm": 0.6, "cool": 0.1}
	got, err := s.Rank(&Request{
		UserVector: domain.ZeroVector(3),
		Popularity: func(id string) float64 { return popularity[id] },
		Candidates: []Candidate{
			{ArtworkID: "cool", Vector: domain.Vector{1, 0, 0}},
			{ArtworkID: "hot", Vector: domain.Vector{0, 1, 0}},
			{ArtworkID: "warm", Vector: domain.Vector{0, 0, 1}},
		},
		TopN: 3,
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	want := []string{"hot", "warm", "cool"}
	for i, id := range want {
		if got[i].ArtworkID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ArtworkID, id)
		}
	}
	for _, r := range got {
		if !r.ColdStart {
			t.Errorf("%s not marked cold-start", r.ArtworkID)
		}
		if r.Breakdown.Content != 0 {
			t.Errorf("%s content = %v, want 0 for cold start", r.ArtworkID, r.Breakdown.Content)
		}
		if math.Abs(r.Score-popularity[r.ArtworkID]) > tol {
			t.Errorf("%s score = %v, want popularity %v", r.ArtworkID, r.Score, popularity[r.ArtworkID])
		}
	}
}

func TestRankPenaltySinksDisliked(t *testing.T) {
	s := New(Config{
		Dimension: 2,
		Weights:   Weights{Content: 1},
		Penalty:   1.0,
	})

	got, err := s.Rank(&Request{
		UserVector: domain.Vector{1, 0},
		Negatives:  map[string]struct{}{"disliked": {}},
		Candidates: []Candidate{
			{ArtworkID: "disliked", Vector: domain.Vector{1, 0}},
			{ArtworkID: "weaker", Vector: domain.Vector{0.6, 0.8}},
		},
		TopN: 2,
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if got[0].ArtworkID != "weaker" {
		t.Errorf("order = [%s %s], want disliked last despite perfect similarity",
			got[0].ArtworkID, got[1].ArtworkID)
	}
	if math.Abs(got[0].Score-0.6) > tol {
		t.Errorf("score(weaker) = %v, want 0.6", got[0].Score)
	}
	if got[1].Breakdown.Penalty != 1.0 {
		t.Errorf("penalty = %v, want 1.0", got[1].Breakdown.Penalty)
	}
	if math.Abs(got[1].Score-0) > tol {
		t.Errorf("score(disliked) = %v, want 0 (similarity 1 minus penalty 1)", got[1].Score)
	}
}

func TestRankEmptyPool(t *testing.T) {
	s := New(Config{Dimension: 2, Weights: Weights{Content: 1}})

	_, err := s.Rank(&Request{
		UserVector: domain.Vector{1, 0},
		TopN:       5,
	})
	if !errors.Is(err, domain.ErrEmptyPool) {
		t.Errorf("err = %v, want ErrEmptyPool", err)
	}
}

func TestRankDimensionMismatch(t *testing.T) {
	s := New(Config{Dimension: 3, Weights: Weights{Content: 1}})

	_, err := s.Rank(&Request{
		UserVector: domain.Vector{1, 0, 0},
		Candidates: []Candidate{{ArtworkID: "bad", Vector: domain.Vector{1, 0}}},
		TopN:       1,
	})
	if !domain.IsDimensionError(err) {
		t.Errorf("err = %v, want DimensionError", err)
	}
}

func TestRankSeenExcludedWhenPoolIsLarge(t *testing.T) {
	s := New(Config{Dimension: 2, Weights: Weights{Content: 1}})

	got, err := s.Rank(&Request{
		UserVector: domain.Vector{1, 0},
		Seen:       map[string]struct{}{"seen": {}},
		Candidates: []Candidate{
			{ArtworkID: "seen", Vector: domain.Vector{1, 0}},
			{ArtworkID: "fresh", Vector: domain.Vector{0, 1}},
		},
		TopN: 1,
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 1 || got[0].ArtworkID != "fresh" {
		t.Errorf("got %+v, want only fresh (seen excluded)", got)
	}
}

func TestRankSeenKeptLastWhenPoolIsShort(t *testing.T) {
	s := New(Config{Dimension: 2, Weights: Weights{Content: 1}})

	got, err := s.Rank(&Request{
		UserVector: domain.Vector{1, 0},
		Seen:       map[string]struct{}{"seen": {}},
		Candidates: []Candidate{
			{ArtworkID: "seen", Vector: domain.Vector{1, 0}},
			{ArtworkID: "fresh", Vector: domain.Vector{0, 1}},
		},
		TopN: 5,
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
	// The seen item scores higher but still ranks below the unseen one.
	if got[0].ArtworkID != "fresh" || got[1].ArtworkID != "seen" {
		t.Errorf("order = [%s %s], want [fresh seen]", got[0].ArtworkID, got[1].ArtworkID)
	}
	if !got[1].Seen {
		t.Error("kept session-repeat not marked Seen")
	}
}

func TestRankTiesBreakByID(t *testing.T) {
	s := New(Config{Dimension: 2, Weights: Weights{Content: 1}})

	got, err := s.Rank(&Request{
		UserVector: domain.Vector{1, 0},
		Candidates: []Candidate{
			{ArtworkID: "c", Vector: domain.Vector{1, 0}},
			{ArtworkID: "a", Vector: domain.Vector{1, 0}},
			{ArtworkID: "b", Vector: domain.Vector{1, 0}},
		},
		TopN: 3,
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if got[i].ArtworkID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ArtworkID, id)
		}
	}
}

func TestRankTruncatesToTopN(t *testing.T) {
	s := New(Config{Dimension: 2, Weights: Weights{Content: 1}})

	got, err := s.Rank(&Request{
		UserVector: domain.Vector{1, 0},
		Candidates: []Candidate{
			{ArtworkID: "a", Vector: domain.Vector{1, 0}},
			{ArtworkID: "b", Vector: domain.Vector{0, 1}},
			{ArtworkID: "c", Vector: domain.Vector{0.6, 0.8}},
		},
		TopN: 2,
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d items, want 2", len(got))
	}
}

func TestProfileWeights(t *testing.T) {
	tests := []struct {
		name string
		want Weights
	}{
		{ProfileBalanced, Weights{0.5, 0.3, 0.2}},
		{ProfileContentHeavy, Weights{0.7, 0.2, 0.1}},
		{ProfileBehaviorHeavy, Weights{0.2, 0.6, 0.2}},
		{ProfileColdStart, Weights{0, 0, 1}},
	}
	for _, tt := range tests {
		got, err := ProfileWeights(tt.name)
		if err != nil {
			t.Errorf("ProfileWeights(%s): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ProfileWeights(%s) = %+v, want %+v", tt.name, got, tt.want)
		}
		if sum := got.Content + got.Behavior + got.Popularity; math.Abs(sum-1) > tol {
			t.Errorf("%s weights sum to %v, want 1", tt.name, sum)
		}
	}

	if _, err := ProfileWeights("aggressive"); err == nil {
		t.Error("unknown profile should error")
	}
}
