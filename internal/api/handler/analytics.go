package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/artmarket/curator/internal/service"
)

// AnalyticsHandler serves recommendation performance reporting.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Performance handles GET /api/v1/analytics/performance. The window defaults
// to the last seven days.
func (h *AnalyticsHandler) Performance(c *gin.Context) {
	end := time.Now().UTC()
	start := end.Add(-7 * 24 * time.Hour)

	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
			return
		}
		start = parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
			return
		}
		end = parsed
	}

	report, err := h.analytics.Performance(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// UserBehavior handles GET /api/v1/users/:id/behavior.
func (h *AnalyticsHandler) UserBehavior(c *gin.Context) {
	report, err := h.analytics.UserBehavior(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
