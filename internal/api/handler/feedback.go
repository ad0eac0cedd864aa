package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artmarket/curator/internal/behavior"
	"github.com/artmarket/curator/internal/domain"
	"github.com/artmarket/curator/internal/service"
)

// FeedbackHandler accepts interaction events and recommendation outcomes.
type FeedbackHandler struct {
	feedback   *service.FeedbackService
	aggregator *behavior.Aggregator
}

func NewFeedbackHandler(feedback *service.FeedbackService, aggregator *behavior.Aggregator) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, aggregator: aggregator}
}

type feedbackRequest struct {
	UserID           string `json:"user_id" binding:"required"`
	RecommendationID string `json:"recommendation_id"`
	ArtworkID        string `json:"artwork_id" binding:"required"`
	Outcome          string `json:"outcome" binding:"required"`
}

// Submit handles POST /api/v1/feedback.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	err := h.feedback.Submit(c.Request.Context(), &service.Feedback{
		UserID:           req.UserID,
		RecommendationID: req.RecommendationID,
		ArtworkID:        req.ArtworkID,
		Outcome:          domain.Outcome(req.Outcome),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

type eventRequest struct {
	UserID    string  `json:"user_id" binding:"required"`
	ArtworkID string  `json:"artwork_id" binding:"required"`
	Type      string  `json:"type" binding:"required"`
	Strength  float64 `json:"strength"`
}

// RecordEvent handles POST /api/v1/events for raw interaction signals that
// arrive outside the feedback loop, such as organic views and likes.
func (h *FeedbackHandler) RecordEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	event := &domain.InteractionEvent{
		UserID:    req.UserID,
		ArtworkID: req.ArtworkID,
		Type:      domain.EventType(req.Type),
		Strength:  req.Strength,
	}
	if !event.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type: " + req.Type})
		return
	}
	if err := h.aggregator.Record(c.Request.Context(), event); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// RebuildUser handles POST /api/v1/users/:id/rebuild. It replays the user's
// event history to repair derived state.
func (h *FeedbackHandler) RebuildUser(c *gin.Context) {
	if err := h.aggregator.Rebuild(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
