package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/artmarket/curator/internal/behavior"
	"github.com/artmarket/curator/internal/config"
	"github.com/artmarket/curator/internal/feature"
	"github.com/artmarket/curator/internal/logger"
	"github.com/artmarket/curator/internal/repository"
	"github.com/artmarket/curator/internal/service"
	"github.com/artmarket/curator/internal/trending"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "curator-worker",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	once := flag.Bool("once", false, "Compute one trending snapshot and exit")
	rebuildUser := flag.String("rebuild-user", "", "Rebuild preference state for a single user and exit")
	rebuildAll := flag.Bool("rebuild-all", false, "Rebuild preference state for every user in the event log and exit")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	eventRepo := repository.NewEventRepository(db)
	featureRepo := repository.NewFeatureRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	statRepo := repository.NewStatRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	if *rebuildUser != "" || *rebuildAll {
		featureStore := feature.NewStore(featureRepo, &feature.StoreConfig{
			Dimension:      cfg.Engine.Dimension,
			DefaultVersion: cfg.Engine.ModelVersion,
		})
		aggregator := behavior.NewAggregator(eventRepo, preferenceRepo, statRepo, featureStore, behavior.AggregatorConfig{
			Dimension:     cfg.Engine.Dimension,
			ModelVersion:  cfg.Engine.ModelVersion,
			Decay:         cfg.Engine.PreferenceDecay,
			SessionWindow: cfg.Engine.SessionWindow,
		}, appLogger)

		if err := runRebuild(ctx, aggregator, eventRepo, *rebuildUser, appLogger); err != nil {
			appLogger.WithError(err).Fatal("Rebuild failed")
		}
		return
	}

	trendingStore, err := buildTrendingStore(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize trending store")
	}
	trendingService := service.NewTrendingService(
		trending.NewComputer(eventRepo, trending.ComputerConfig{
			HalfLife: cfg.Trending.HalfLife,
			Window:   cfg.Trending.Window,
		}),
		trendingStore,
		appLogger,
	)

	if _, err := trendingService.Refresh(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to compute trending snapshot")
	}
	if *once {
		return
	}

	appLogger.WithField("interval", cfg.Trending.Interval.String()).Info("Starting trending refresh loop")
	ticker := time.NewTicker(cfg.Trending.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			appLogger.Info("Worker exited")
			return
		case <-ticker.C:
			if _, err := trendingService.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				appLogger.WithError(err).Error("Trending refresh failed")
			}
		}
	}
}

// runRebuild replays the event log into derived preference state, either for
// one user or for every user that appears in the log.
func runRebuild(ctx context.Context, aggregator *behavior.Aggregator, events *repository.EventRepository, userID string, appLogger *logger.Logger) error {
	userIDs := []string{userID}
	if userID == "" {
		var err error
		userIDs, err = events.ListUserIDs(ctx)
		if err != nil {
			return err
		}
	}

	rebuilt := 0
	for _, id := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := aggregator.Rebuild(ctx, id); err != nil {
			appLogger.WithError(err).WithField("user_id", id).Error("Failed to rebuild user")
			continue
		}
		rebuilt++
	}

	appLogger.WithFields(logger.Fields{
		"total":   len(userIDs),
		"rebuilt": rebuilt,
	}).Info("Rebuild completed")
	return nil
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
		return nil, err
	}
	return trending.NewRedisStore(client, "curator:trending"), nil
}
