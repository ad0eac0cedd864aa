package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/artmarket/curator/internal/api"
	"github.com/artmarket/curator/internal/behavior"
	"github.com/artmarket/curator/internal/config"
	"github.com/artmarket/curator/internal/feature"
	"github.com/artmarket/curator/internal/logger"
	"github.com/artmarket/curator/internal/repository"
	"github.com/artmarket/curator/internal/scorer"
	"github.com/artmarket/curator/internal/service"
	"github.com/artmarket/curator/internal/similarity"
	"github.com/artmarket/curator/internal/storage"
	"github.com/artmarket/curator/internal/trending"
)

const version = "1.0.0"

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "curator-api",
		Environment: cfg.Log.Environment,
		LogFile:     cfg.Log.File,
	})
	logger.SetDefaultLogger(logg)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logg.WithError(err).Fatal("Failed to initialize database")
	}

	artworkRepo := repository.NewArtworkRepository(db)
	featureRepo := repository.NewFeatureRepository(db)
	eventRepo := repository.NewEventRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	statRepo := repository.NewStatRepository(db)
	recommendationRepo := repository.NewRecommendationRepository(db)

	ctx := context.Background()

	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		logg.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		logg.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	featureStore := feature.NewStore(featureRepo, &feature.StoreConfig{
		Dimension:      cfg.Engine.Dimension,
		DefaultVersion: cfg.Engine.ModelVersion,
	})

	oracle := feature.NewHTTPOracle(&feature.HTTPOracleConfig{
		Endpoint: cfg.Oracle.Endpoint,
		APIKey:   cfg.Oracle.APIKey,
		Model:    cfg.Oracle.Model,
	})
	extractor := feature.NewExtractor(oracle, storage.NewImageFetcher(objectStorage), &feature.ExtractorConfig{
		Dimension:    cfg.Engine.Dimension,
		ModelVersion: cfg.Engine.ModelVersion,
		Timeout:      cfg.Oracle.Timeout,
		RetryBackoff: cfg.Oracle.RetryBackoff,
	})

	engine, err := buildEngine(ctx, cfg, featureRepo, logg)
	if err != nil {
		logg.WithError(err).Fatal("Failed to initialize similarity engine")
	}

	aggregator := behavior.NewAggregator(eventRepo, preferenceRepo, statRepo, featureStore, behavior.AggregatorConfig{
		Dimension:     cfg.Engine.Dimension,
		ModelVersion:  cfg.Engine.ModelVersion,
		Decay:         cfg.Engine.PreferenceDecay,
		SessionWindow: cfg.Engine.SessionWindow,
	}, logg)

	trendingStore, err := buildTrendingStore(ctx, cfg)
	if err != nil {
		logg.WithError(err).Fatal("Failed to initialize trending store")
	}
	trendingService := service.NewTrendingService(
		trending.NewComputer(eventRepo, trending.ComputerConfig{
			HalfLife: cfg.Trending.HalfLife,
			Window:   cfg.Trending.Window,
		}),
		trendingStore,
		logg,
	)

	weights, err := scorer.ProfileWeights(cfg.Engine.Profile)
	if err != nil {
		logg.WithError(err).Fatal("Invalid weight profile")
	}
	rankScorer := scorer.New(scorer.Config{
		Dimension: cfg.Engine.Dimension,
		Weights:   weights,
		Penalty:   cfg.Engine.DislikePenalty,
	})

	recommendationService := service.NewRecommendationService(
		artworkRepo,
		featureStore,
		aggregator,
		trendingService,
		engine,
		rankScorer,
		recommendationRepo,
		logg,
		service.RecommendConfig{
			ModelVersion:    cfg.Engine.ModelVersion,
			Profile:         cfg.Engine.Profile,
			MaxTopN:         cfg.Engine.MaxTopN,
			CandidateFactor: cfg.Engine.CandidateFactor,
		},
	)
	artworkService := service.NewArtworkService(artworkRepo, objectStorage, extractor, featureStore, engine, logg)
	feedbackService := service.NewFeedbackService(aggregator, recommendationRepo, logg)
	analyticsService := service.NewAnalyticsService(recommendationRepo, eventRepo, aggregator, logg)

	router := api.SetupRouter(&api.Services{
		Recommendations: recommendationService,
		Trending:        trendingService,
		Artworks:        artworkService,
		Feedback:        feedbackService,
		Analytics:       analyticsService,
		Aggregator:      aggregator,
	}, logg, api.RouterConfig{
		Mode:           cfg.Server.Mode,
		Version:        version,
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logg.WithFields(logger.Fields{"port": cfg.Server.Port, "mode": cfg.Server.Mode}).
			Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.WithError(err).Fatal("Server forced to shutdown")
	}
	logg.Info("Server exited")
}

// buildEngine constructs the configured similarity engine. The linear engine
// warms its in-memory index from the feature table; the ANN engine delegates
// to qdrant.
func buildEngine(ctx context.Context, cfg *config.Config, featureRepo *repository.FeatureRepository, logg *logger.Logger) (similarity.Engine, error) {
	if cfg.Similarity.Engine == "ann" {
		qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Engine.Dimension,
		})
		if err != nil {
			return nil, err
		}
		if err := qdrantRepo.EnsureCollection(ctx); err != nil {
			return nil, err
		}
		return similarity.NewANNEngine(qdrantRepo, similarity.ANNConfig{
			Dimension:    cfg.Engine.Dimension,
			ModelVersion: cfg.Engine.ModelVersion,
			RecallFloor:  cfg.Similarity.RecallFloor,
		}), nil
	}

	engine := similarity.NewLinearEngine(cfg.Engine.Dimension)
	const pageSize = 1000
	for offset := 0; ; offset += pageSize {
		features, err := featureRepo.ListByVersion(ctx, cfg.Engine.ModelVersion, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for i := range features {
			if err := engine.Add(ctx, features[i].ArtworkID, features[i].Vector); err != nil {
				return nil, err
			}
		}
		if len(features) < pageSize {
			break
		}
	}
	logg.WithField(logger.FieldCount, engine.Len()).Info("Similarity index warmed")
	return engine, nil
}

func buildTrendingStore(ctx context.Context, cfg *config.Config) (trending.SnapshotStore, error) {
	if cfg.Trending.Store != "redis" {
		return trending.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return trending.NewRedisStore(client, "curator:trending"), nil
}
