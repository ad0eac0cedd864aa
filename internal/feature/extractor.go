package feature

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/artmarket/curator/internal/domain"
	"github.com/artmarket/curator/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Oracle produces a raw embedding from image bytes. The neural backbone
// behind it is out of scope here; it may run on remote GPU hardware, so
// calls are slow and must be bounded by a deadline.
type Oracle interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

// ImageFetcher resolves an image reference to its bytes, typically from
// object storage.
type ImageFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// ExtractorConfig holds extractor configuration.
type ExtractorConfig struct {
	Dimension    int
	ModelVersion string
	Timeout      time.Duration
	RetryBackoff time.Duration
}

// Extractor wraps the embedding oracle and normalizes its output into the
// canonical vector format. A given model version is deterministic, so
// results are cached by (artwork_id, model_version) and never invalidated
// automatically; eviction is manual.
//
// Concurrent extractions for the same key coalesce into a single in-flight
// oracle call.
type Extractor struct {
	oracle  Oracle
	fetcher ImageFetcher
	cfg     ExtractorConfig

	flight singleflight.Group

	mu    sync.RWMutex
	cache map[string]*domain.ArtworkFeature
}

// NewExtractor creates a new Extractor.
func NewExtractor(oracle Oracle, fetcher ImageFetcher, cfg *ExtractorConfig) *Extractor {
	c := *cfg
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return &Extractor{
		oracle:  oracle,
		fetcher: fetcher,
		cfg:     c,
		cache:   make(map[string]*domain.ArtworkFeature),
	}
}

// ModelVersion returns the model version the extractor currently tags
// features with.
func (e *Extractor) ModelVersion() string {
	return e.cfg.ModelVersion
}

// Extract produces the canonical feature for an artwork image. Repeated
// calls for the same (artwork_id, model_version) return the cached vector
// without touching the oracle.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - artworkID: artwork identity the feature belongs to.
//   - imageRef: reference resolvable by the image fetcher.
// Returns:
//   - *domain.ArtworkFeature: normalized, version-tagged feature.
//   - error: DimensionError on shape violation, domain.ErrExtractionTimeout
//     when the oracle stays unresponsive after retry.
func (e *Extractor) Extract(ctx context.Context, artworkID, imageRef string) (*domain.ArtworkFeature, error) {
	key := cacheKey(artworkID, e.cfg.ModelVersion)

	e.mu.RLock()
	cached, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := e.flight.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have filled
		// the cache between the read above and the flight acquiring.
		e.mu.RLock()
		cached, ok := e.cache[key]
		e.mu.RUnlock()
		if ok {
			return cached, nil
		}
		return e.extract(ctx, artworkID, imageRef, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ArtworkFeature), nil
}

func (e *Extractor) extract(ctx context.Context, artworkID, imageRef, key string) (*domain.ArtworkFeature, error) {
	image, err := e.fetcher.Fetch(ctx, imageRef)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", imageRef, err)
	}

	raw, err := e.embedWithRetry(ctx, artworkID, image)
	if err != nil {
		return nil, err
	}

	vector := domain.Vector(raw)
	if vector.Dim() != e.cfg.Dimension {
		return nil, domain.NewDimensionError(e.cfg.Dimension, vector.Dim())
	}

	feature := &domain.ArtworkFeature{
		ID:           artworkID + "@" + e.cfg.ModelVersion,
		ArtworkID:    artworkID,
		ModelVersion: e.cfg.ModelVersion,
		Vector:       vector.Normalized(),
		CreatedAt:    time.Now().UTC(),
	}

	e.mu.Lock()
	e.cache[key] = feature
	e.mu.Unlock()

	return feature, nil
}

// embedWithRetry calls the oracle with a deadline, retrying once with
// backoff on timeout before surfacing ErrExtractionTimeout.
func (e *Extractor) embedWithRetry(ctx context.Context, artworkID string, image []byte) ([]float32, error) {
	raw, err := e.embedOnce(ctx, image)
	if err == nil {
		return raw, nil
	}
	if !isTimeout(err) {
		return nil, err
	}

	logger.CtxWarn(ctx, "embedding oracle timed out for artwork %s, retrying", artworkID)

	select {
	case <-time.After(e.cfg.RetryBackoff):
	case <-ctx.Done():
		return nil, fmt.Errorf("artwork %s: %w", artworkID, domain.ErrExtractionTimeout)
	}

	raw, err = e.embedOnce(ctx, image)
	if err == nil {
		return raw, nil
	}
	if isTimeout(err) {
		return nil, fmt.Errorf("artwork %s: %w", artworkID, domain.ErrExtractionTimeout)
	}
	return nil, err
}

func (e *Extractor) embedOnce(ctx context.Context, image []byte) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	return e.oracle.Embed(callCtx, image)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrExtractionTimeout)
}

// Evict drops the cached feature for an (artwork_id, model_version) pair.
// The cache has no automatic invalidation; this is the only way out.
func (e *Extractor) Evict(artworkID, modelVersion string) {
	e.mu.Lock()
	delete(e.cache, cacheKey(artworkID, modelVersion))
	e.mu.Unlock()
}
