package similarity

import (
	"context"
	"testing"

	"github.com/artmarket/curator/internal/domain"
)

func TestLinearNearestOrdering(t *testing.T) {
	e := NewLinearEngine(3)
	ctx := context.Background()

	vectors := map[string]domain.Vector{
		"far":    {0, 0, 1},
		"close":  {1, 0, 0},
		"middle": {0.6, 0.8, 0},
	}
	for id, v := range vectors {
		if err := e.Add(ctx, id, v); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	got, err := e.Nearest(ctx, domain.Vector{1, 0, 0}, 3, nil)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	want := []string{"close", "middle", "far"}
	if len(got) != len(want) {
		t.Fatalf("got %d matches, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ArtworkID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ArtworkID, id)
		}
	}
	if got[0].Score != 1 {
		t.Errorf("exact match score = %v, want 1", got[0].Score)
	}
}

func TestLinearNearestTiesBreakByID(t *testing.T) {
	e := NewLinearEngine(2)
	ctx := context.Background()

	// All three are equidistant from the query.
	for _, id := range []string{"c", "a", "b"} {
		if err := e.Add(ctx, id, domain.Vector{0, 1}); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	got, err := e.Nearest(ctx, domain.Vector{1, 0}, 3, nil)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if got[i].ArtworkID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ArtworkID, id)
		}
	}
}

func TestLinearNearestExcludes(t *testing.T) {
	e := NewLinearEngine(2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := e.Add(ctx, id, domain.Vector{1, 0}); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	got, err := e.Nearest(ctx, domain.Vector{1, 0}, 10, []string{"b"})
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	for _, m := range got {
		if m.ArtworkID == "b" {
			t.Fatal("excluded ID appeared in results")
		}
	}
	if len(got) != 2 {
		t.Errorf("got %d matches, want 2", len(got))
	}
}

func TestLinearNearestTruncatesToK(t *testing.T) {
	e := NewLinearEngine(2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := e.Add(ctx, id, domain.Vector{1, 0}); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	got, err := e.Nearest(ctx, domain.Vector{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d matches, want 2", len(got))
	}
}

func TestLinearAddReplacesAndRemove(t *testing.T) {
	e := NewLinearEngine(2)
	ctx := context.Background()

	if err := e.Add(ctx, "a", domain.Vector{1, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := e.Add(ctx, "a", domain.Vector{0, 1}); err != nil {
		t.Fatalf("re-Add: %v", err)
	}
	if e.Len() != 1 {
		t.Fatalf("Len = %d after replace, want 1", e.Len())
	}

	got, err := e.Nearest(ctx, domain.Vector{0, 1}, 1, nil)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if got[0].Score != 1 {
		t.Errorf("score = %v after replace, want 1", got[0].Score)
	}

	if err := e.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := e.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove of absent ID: %v", err)
	}
	if e.Len() != 0 {
		t.Errorf("Len = %d after remove, want 0", e.Len())
	}
}

func TestLinearDimensionMismatch(t *testing.T) {
	e := NewLinearEngine(3)
	ctx := context.Background()

	if err := e.Add(ctx, "a", domain.Vector{1, 0}); !domain.IsDimensionError(err) {
		t.Errorf("Add err = %v, want DimensionError", err)
	}
	if _, err := e.Nearest(ctx, domain.Vector{1, 0}, 1, nil); !domain.IsDimensionError(err) {
		t.Errorf("Nearest err = %v, want DimensionError", err)
	}
}
