package api

import (
	"github.com/gin-gonic/gin"

	"github.com/artmarket/curator/internal/api/handler"
	"github.com/artmarket/curator/internal/api/middleware"
	"github.com/artmarket/curator/internal/behavior"
	"github.com/artmarket/curator/internal/logger"
	"github.com/artmarket/curator/internal/service"
)

// Services bundles everything the router wires handlers to.
type Services struct {
	Recommendations *service.RecommendationService
	Trending        *service.TrendingService
	Artworks        *service.ArtworkService
	Feedback        *service.FeedbackService
	Analytics       *service.AnalyticsService
	Aggregator      *behavior.Aggregator
}

// RouterConfig holds router-level settings.
type RouterConfig struct {
	Mode           string
	Version        string
	AllowedOrigins []string
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(svcs *Services, log *logger.Logger, cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.AllowedOrigins,
		AllowAllOrigins: len(cfg.AllowedOrigins) == 0,
	}))

	healthHandler := handler.NewHealthHandler(cfg.Version)
	recHandler := handler.NewRecommendationHandler(svcs.Recommendations, svcs.Trending, svcs.Artworks)
	artworkHandler := handler.NewArtworkHandler(svcs.Artworks)
	feedbackHandler := handler.NewFeedbackHandler(svcs.Feedback, svcs.Aggregator)
	analyticsHandler := handler.NewAnalyticsHandler(svcs.Analytics)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Recommendations
		v1.GET("/recommendations/artworks", recHandler.RecommendArtworks)
		v1.GET("/recommendations/artists", recHandler.RecommendArtists)
		v1.GET("/trending", recHandler.Trending)

		// Artworks
		v1.POST("/artworks", artworkHandler.Submit)
		v1.POST("/artworks/:id/analyze", artworkHandler.Analyze)
		v1.DELETE("/artworks/:id", artworkHandler.Hide)

		// Feedback loop
		v1.POST("/feedback", feedbackHandler.Submit)
		v1.POST("/events", feedbackHandler.RecordEvent)
		v1.POST("/users/:id/rebuild", feedbackHandler.RebuildUser)

		// Analytics
		v1.GET("/analytics/performance", analyticsHandler.Performance)
		v1.GET("/users/:id/behavior", analyticsHandler.UserBehavior)
	}

	return r
}
