package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	// Codecs for image metadata sniffing. Artist uploads are overwhelmingly
	// jpeg/png/webp with the occasional gif or bmp.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/google/uuid"

	"github.com/artmarket/curator/internal/domain"
	"github.com/artmarket/curator/internal/feature"
	"github.com/artmarket/curator/internal/logger"
	"github.com/artmarket/curator/internal/similarity"
	"github.com/artmarket/curator/internal/storage"
)

// ArtworkStore is the artwork catalog access the analyzer needs.
type ArtworkStore interface {
	Create(ctx context.Context, artwork *domain.Artwork) error
	Update(ctx context.Context, artwork *domain.Artwork) error
	GetByID(ctx context.Context, id string) (*domain.Artwork, error)
}

// FeatureExtractor turns an artwork image into a feature vector.
type FeatureExtractor interface {
	Extract(ctx context.Context, artworkID, imageRef string) (*domain.ArtworkFeature, error)
	ModelVersion() string
}

// FeatureSink persists an extracted vector.
type FeatureSink interface {
	Put(ctx context.Context, artworkID string, vector domain.Vector, modelVersion string) (*domain.ArtworkFeature, error)
}

// ArtworkService ingests artworks: it stores the image, extracts features,
// indexes them for similarity search, and activates the catalog record.
type ArtworkService struct {
	artworks  ArtworkStore
	store     storage.ObjectStorage
	fetcher   *storage.ImageFetcher
	extractor FeatureExtractor
	features  FeatureSink
	engine    similarity.Engine
	logger    *logger.Logger
}

func NewArtworkService(
	artworks ArtworkStore,
	objectStore storage.ObjectStorage,
	extractor FeatureExtractor,
	features FeatureSink,
	engine similarity.Engine,
	log *logger.Logger,
) *ArtworkService {
	return &ArtworkService{
		artworks:  artworks,
		store:     objectStore,
		fetcher:   storage.NewImageFetcher(objectStore),
		extractor: extractor,
		features:  features,
		engine:    engine,
		logger:    log,
	}
}

// SubmitInput is the metadata accompanying an artwork upload.
type SubmitInput struct {
	ArtistID    string
	Title       string
	Category    string
	Style       string
	Tags        []string
	ContentType string
	IsPublic    bool
	IsPortfolio bool
}

// Submit stores the image and creates a pending catalog record. The artwork
// becomes recommendable only after Analyze succeeds.
func (s *ArtworkService) Submit(ctx context.Context, in *SubmitInput, imageData []byte) (*domain.Artwork, error) {
	id := uuid.NewString()
	key := fmt.Sprintf("artworks/%s", id)

	err := s.store.Upload(ctx, key, bytes.NewReader(imageData), int64(len(imageData)), in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store artwork image: %w", err)
	}

	artwork := &domain.Artwork{
		ID:          id,
		ArtistID:    in.ArtistID,
		Title:       in.Title,
		Category:    in.Category,
		Style:       in.Style,
		Tags:        in.Tags,
		ImageRef:    key,
		IsPublic:    in.IsPublic,
		IsPortfolio: in.IsPortfolio,
		Status:      domain.ArtworkStatusPending,
	}
	if err := s.artworks.Create(ctx, artwork); err != nil {
		return nil, fmt.Errorf("create artwork record: %w", err)
	}

	s.logger.WithFields(logger.Fields{
		logger.FieldArtworkID: artwork.ID,
		logger.FieldStatus:    string(artwork.Status),
	}).Info("artwork submitted")
	return artwork, nil
}

// Analyze extracts and indexes an artwork's feature vector and activates the
// record. It is idempotent: re-analyzing an already-active artwork refreshes
// the index entry and succeeds.
func (s *ArtworkService) Analyze(ctx context.Context, artworkID string) (*domain.Artwork, error) {
	start := time.Now()

	artwork, err := s.artworks.GetByID(ctx, artworkID)
	if err != nil {
		return nil, err
	}

	imageData, err := s.fetcher.Fetch(ctx, artwork.ImageRef)
	if err != nil {
		return nil, err
	}
	if width, height, format, err := sniffImageMeta(imageData); err == nil {
		artwork.Width = width
		artwork.Height = height
		artwork.Format = format
	} else {
		s.logger.WithField(logger.FieldArtworkID, artworkID).
			WithError(err).Warn("could not read image dimensions")
	}

	feat, err := s.extractor.Extract(ctx, artworkID, artwork.ImageRef)
	if err != nil {
		return nil, err
	}

	if _, err := s.features.Put(ctx, artworkID, feat.Vector, feat.ModelVersion); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		// Already persisted by a previous run; the vector is immutable per
		// model version, so this is the re-analyze path.
	}
	if err := s.engine.Add(ctx, artworkID, feat.Vector); err != nil {
		return nil, fmt.Errorf("index artwork vector: %w", err)
	}

	artwork.Status = domain.ArtworkStatusActive
	if err := s.artworks.Update(ctx, artwork); err != nil {
		return nil, fmt.Errorf("activate artwork: %w", err)
	}

	s.logger.WithFields(logger.Fields{
		logger.FieldArtworkID:    artworkID,
		logger.FieldModelVersion: feat.ModelVersion,
		logger.FieldDurationMs:   time.Since(start).Milliseconds(),
	}).Info("artwork analyzed and indexed")
	return artwork, nil
}

// Hide removes an artwork from recommendation circulation without deleting
// its history.
func (s *ArtworkService) Hide(ctx context.Context, artworkID string) error {
	artwork, err := s.artworks.GetByID(ctx, artworkID)
	if err != nil {
		return err
	}
	if err := s.engine.Remove(ctx, artworkID); err != nil {
		return fmt.Errorf("deindex artwork: %w", err)
	}
	artwork.Status = domain.ArtworkStatusHidden
	return s.artworks.Update(ctx, artwork)
}

// ImageURL returns the public URL for an artwork's image.
func (s *ArtworkService) ImageURL(artwork *domain.Artwork) string {
	return s.store.GetURL(artwork.ImageRef)
}

func sniffImageMeta(data []byte) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, format, nil
}

var _ FeatureExtractor = (*feature.Extractor)(nil)
