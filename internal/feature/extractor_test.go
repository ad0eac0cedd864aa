package feature

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artmarket/curator/internal/domain"
)

type fakeOracle struct {
	mu    sync.Mutex
	calls int
	embed func(ctx context.Context, image []byte) ([]float32, error)
}

func (o *fakeOracle) Embed(ctx context.Context, image []byte) ([]float32, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	return o.embed(ctx, image)
}

func (o *fakeOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	return []byte(ref), nil
}

func TestExtractCachesResult(t *testing.T) {
	oracle := &fakeOracle{embed: func(context.Context, []byte) ([]float32, error) {
		return []float32{3, 4, 0}, nil
	}}
	ex := NewExtractor(oracle, fakeFetcher{}, &ExtractorConfig{Dimension: 3, ModelVersion: "v1"})
	ctx := context.Background()

	first, err := ex.Extract(ctx, "art-1", "img-ref")
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	second, err := ex.Extract(ctx, "art-1", "img-ref")
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}

	if oracle.callCount() != 1 {
		t.Errorf("oracle called %d times, want 1", oracle.callCount())
	}
	if len(first.Vector) != len(second.Vector) {
		t.Fatalf("vector length mismatch: %d vs %d", len(first.Vector), len(second.Vector))
	}
	for i := range first.Vector {
		if first.Vector[i] != second.Vector[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, first.Vector[i], second.Vector[i])
		}
	}
	// Output is normalized to unit length.
	if first.Vector[0] != 0.6 || first.Vector[1] != 0.8 {
		t.Errorf("vector = %v, want normalized [0.6 0.8 0]", first.Vector)
	}
}

func TestExtractDimensionMismatch(t *testing.T) {
	oracle := &fakeOracle{embed: func(context.Context, []byte) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
	ex := NewExtractor(oracle, fakeFetcher{}, &ExtractorConfig{Dimension: 3, ModelVersion: "v1"})

	_, err := ex.Extract(context.Background(), "art-1", "img-ref")
	if !domain.IsDimensionError(err) {
		t.Errorf("err = %v, want DimensionError", err)
	}
}

func TestExtractTimeoutRetriesOnce(t *testing.T) {
	oracle := &fakeOracle{embed: func(ctx context.Context, _ []byte) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	ex := NewExtractor(oracle, fakeFetcher{}, &ExtractorConfig{
		Dimension:    3,
		ModelVersion: "v1",
		Timeout:      10 * time.Millisecond,
		RetryBackoff: time.Millisecond,
	})

	_, err := ex.Extract(context.Background(), "art-1", "img-ref")
	if !errors.Is(err, domain.ErrExtractionTimeout) {
		t.Fatalf("err = %v, want ErrExtractionTimeout", err)
	}
	if oracle.callCount() != 2 {
		t.Errorf("oracle called %d times, want 2 (original plus one retry)", oracle.callCount())
	}
}

func TestExtractRetrySucceeds(t *testing.T) {
	attempts := 0
	oracle := &fakeOracle{embed: func(ctx context.Context, _ []byte) ([]float32, error) {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []float32{0, 1, 0}, nil
	}}
	ex := NewExtractor(oracle, fakeFetcher{}, &ExtractorConfig{
		Dimension:    3,
		ModelVersion: "v1",
		Timeout:      10 * time.Millisecond,
		RetryBackoff: time.Millisecond,
	})

	feat, err := ex.Extract(context.Background(), "art-1", "img-ref")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if feat.Vector[1] != 1 {
		t.Errorf("vector = %v, want [0 1 0]", feat.Vector)
	}
}

func TestExtractConcurrentCoalesces(t *testing.T) {
	release := make(chan struct{})
	oracle := &fakeOracle{embed: func(context.Context, []byte) ([]float32, error) {
		<-release
		return []float32{1, 0, 0}, nil
	}}
	ex := NewExtractor(oracle, fakeFetcher{}, &ExtractorConfig{Dimension: 3, ModelVersion: "v1"})

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ex.Extract(context.Background(), "art-1", "img-ref")
		}(i)
	}
	// Give the goroutines time to pile onto the same flight.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
	}
	if oracle.callCount() != 1 {
		t.Errorf("oracle called %d times, want 1", oracle.callCount())
	}
}

func TestEvictForcesReextraction(t *testing.T) {
	oracle := &fakeOracle{embed: func(context.Context, []byte) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}}
	ex := NewExtractor(oracle, fakeFetcher{}, &ExtractorConfig{Dimension: 3, ModelVersion: "v1"})
	ctx := context.Background()

	if _, err := ex.Extract(ctx, "art-1", "img-ref"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	ex.Evict("art-1", "v1")
	if _, err := ex.Extract(ctx, "art-1", "img-ref"); err != nil {
		t.Fatalf("Extract after evict: %v", err)
	}
	if oracle.callCount() != 2 {
		t.Errorf("oracle called %d times, want 2 after eviction", oracle.callCount())
	}
}
