package feature

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/artmarket/curator/internal/domain"
)

// fakePersistence is an in-memory Persistence for tests.
type fakePersistence struct {
	features map[string]*domain.ArtworkFeature
	inserts  int
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{features: make(map[string]*domain.ArtworkFeature)}
}

func (f *fakePersistence) Insert(_ context.Context, feature *domain.ArtworkFeature) error {
	key := feature.ArtworkID + "@" + feature.ModelVersion
	if _, ok := f.features[key]; ok {
		return fmt.Errorf("feature %s: %w", key, domain.ErrConflict)
	}
	f.features[key] = feature
	f.inserts++
	return nil
}

func (f *fakePersistence) Get(_ context.Context, artworkID, modelVersion string) (*domain.ArtworkFeature, error) {
	if feat, ok := f.features[artworkID+"@"+modelVersion]; ok {
		return feat, nil
	}
	return nil, fmt.Errorf("feature %s@%s: %w", artworkID, modelVersion, domain.ErrNotFound)
}

func (f *fakePersistence) GetLatest(_ context.Context, artworkID string) (*domain.ArtworkFeature, error) {
	var latest *domain.ArtworkFeature
	for _, feat := range f.features {
		if feat.ArtworkID != artworkID {
			continue
		}
		if latest == nil || feat.CreatedAt.After(latest.CreatedAt) {
			latest = feat
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("feature %s: %w", artworkID, domain.ErrNotFound)
	}
	return latest, nil
}

func (f *fakePersistence) GetBatch(_ context.Context, artworkIDs []string, modelVersion string) ([]domain.ArtworkFeature, error) {
	var out []domain.ArtworkFeature
	for _, id := range artworkIDs {
		if feat, ok := f.features[id+"@"+modelVersion]; ok {
			out = append(out, *feat)
		}
	}
	return out, nil
}

func newTestStore() (*Store, *fakePersistence) {
	p := newFakePersistence()
	return NewStore(p, &StoreConfig{Dimension: 3, DefaultVersion: "v1"}), p
}

func TestStorePutAndGet(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	if _, err := store.Put(ctx, "art-1", domain.Vector{3, 4, 0}, "v1"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "art-1", "v1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Stored vectors are normalized on the way in.
	if got[0] != 0.6 || got[1] != 0.8 {
		t.Errorf("got %v, want normalized [0.6 0.8 0]", got)
	}
}

func TestStorePutConflict(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	if _, err := store.Put(ctx, "art-1", domain.Vector{1, 0, 0}, "v1"); err != nil {
		t.Fatalf("first Put: %v", err)
	}

	_, err := store.Put(ctx, "art-1", domain.Vector{0, 1, 0}, "v1")
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("second Put err = %v, want ErrConflict", err)
	}

	// A bumped model version is a new generation, not an overwrite.
	if _, err := store.Put(ctx, "art-1", domain.Vector{0, 1, 0}, "v2"); err != nil {
		t.Errorf("Put with new version: %v", err)
	}
}

func TestStorePutDimensionMismatch(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Put(context.Background(), "art-1", domain.Vector{1, 0}, "v1")
	if !domain.IsDimensionError(err) {
		t.Errorf("err = %v, want DimensionError", err)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Get(context.Background(), "missing", "v1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreBatchGetOmitsMisses(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if _, err := store.Put(ctx, id, domain.Vector{1, 0, 0}, "v1"); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	got, err := store.BatchGet(ctx, []string{"a", "b", "missing"}, "v1")
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if _, ok := got["missing"]; ok {
		t.Error("missing id should be omitted, not present")
	}
}

func TestStoreGetUsesCache(t *testing.T) {
	store, p := newTestStore()
	ctx := context.Background()

	if _, err := store.Put(ctx, "art-1", domain.Vector{1, 0, 0}, "v1"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Drop the backend row: the cache should still serve the read.
	delete(p.features, "art-1@v1")

	if _, err := store.Get(ctx, "art-1", "v1"); err != nil {
		t.Errorf("Get after backend delete: %v (cache should serve it)", err)
	}
}
