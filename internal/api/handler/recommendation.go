package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/artmarket/curator/internal/domain"
	"github.com/artmarket/curator/internal/service"
)

// RecommendationHandler serves personalized artwork and artist rankings.
type RecommendationHandler struct {
	recommendations *service.RecommendationService
	trendings       *service.TrendingService
	artworks        *service.ArtworkService
}

func NewRecommendationHandler(
	recommendations *service.RecommendationService,
	trendings *service.TrendingService,
	artworks *service.ArtworkService,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommendations: recommendations,
		trendings:       trendings,
		artworks:        artworks,
	}
}

type recommendedArtworkResponse struct {
	ArtworkID string                `json:"artwork_id"`
	Score     float64               `json:"score"`
	Position  int                   `json:"position"`
	Reason    string                `json:"reason"`
	Breakdown domain.ScoreBreakdown `json:"breakdown"`
	Title     string                `json:"title,omitempty"`
	ArtistID  string                `json:"artist_id,omitempty"`
	Category  string                `json:"category,omitempty"`
	ImageURL  string                `json:"image_url,omitempty"`
}

// RecommendArtworks handles GET /api/v1/recommendations/artworks.
func (h *RecommendationHandler) RecommendArtworks(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	result, err := h.recommendations.RecommendArtworks(c.Request.Context(), userID, service.RecommendOptions{
		TopN:     intQuery(c, "top_n"),
		Category: c.Query("category"),
		Style:    c.Query("style"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]recommendedArtworkResponse, 0, len(result.Record.Items))
	for _, item := range result.Record.Items {
		resp := recommendedArtworkResponse{
			ArtworkID: item.ArtworkID,
			Score:     item.Score,
			Position:  item.Position,
			Reason:    item.Reason,
			Breakdown: item.Breakdown,
		}
		if artwork, ok := result.Artworks[item.ArtworkID]; ok {
			resp.Title = artwork.Title
			resp.ArtistID = artwork.ArtistID
			resp.Category = artwork.Category
			resp.ImageURL = h.artworks.ImageURL(&artwork)
		}
		items = append(items, resp)
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendation_id": result.Record.ID,
		"user_id":           result.Record.UserID,
		"profile":           result.Record.Profile,
		"model_version":     result.Record.ModelVersion,
		"generated_at":      result.Record.GeneratedAt,
		"items":             items,
	})
}

// RecommendArtists handles GET /api/v1/recommendations/artists.
func (h *RecommendationHandler) RecommendArtists(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	artists, err := h.recommendations.RecommendArtists(c.Request.Context(), userID, intQuery(c, "top_n"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "artists": artists})
}

// Trending handles GET /api/v1/trending.
func (h *RecommendationHandler) Trending(c *gin.Context) {
	entries, err := h.trendings.Ranking(c.Request.Context(), intQuery(c, "top_n"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func intQuery(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
