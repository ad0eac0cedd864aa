package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artmarket/curator/internal/domain"
	"github.com/artmarket/curator/internal/logger"
)

// EventRecorder folds a new interaction event into user state.
type EventRecorder interface {
	Record(ctx context.Context, event *domain.InteractionEvent) error
}

// OutcomeLog attaches feedback outcomes to previously served
// recommendations.
type OutcomeLog interface {
	SetItemOutcome(ctx context.Context, recID, artworkID string, outcome domain.Outcome) error
}

// FeedbackService closes the loop: outcomes reported against served
// recommendations become interaction events that move future rankings.
type FeedbackService struct {
	recorder EventRecorder
	outcomes OutcomeLog
	logger   *logger.Logger
}

func NewFeedbackService(recorder EventRecorder, outcomes OutcomeLog, log *logger.Logger) *FeedbackService {
	return &FeedbackService{recorder: recorder, outcomes: outcomes, logger: log}
}

// Feedback is one reported outcome for a recommended artwork.
type Feedback struct {
	UserID           string
	RecommendationID string
	ArtworkID        string
	Outcome          domain.Outcome
}

// Submit validates the outcome, derives the interaction event it implies,
// and tags the originating recommendation. A malformed outcome is the
// caller's error; an unknown recommendation ID is not, it is logged and the
// event still counts.
func (s *FeedbackService) Submit(ctx context.Context, fb *Feedback) error {
	if !fb.Outcome.Valid() {
		return fmt.Errorf("outcome %q: %w", fb.Outcome, domain.ErrInvalidOutcome)
	}

	if event := eventForOutcome(fb); event != nil {
		if err := s.recorder.Record(ctx, event); err != nil {
			return fmt.Errorf("record feedback event: %w", err)
		}
	}

	if fb.RecommendationID == "" {
		// Feedback can arrive for artworks found outside a served list.
		return nil
	}
	err := s.outcomes.SetItemOutcome(ctx, fb.RecommendationID, fb.ArtworkID, fb.Outcome)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.WithFields(logger.Fields{
			logger.FieldUserID:           fb.UserID,
			logger.FieldRecommendationID: fb.RecommendationID,
			logger.FieldArtworkID:        fb.ArtworkID,
		}).Warn("feedback for unknown recommendation, event recorded anyway")
		return nil
	}
	if err != nil {
		return fmt.Errorf("attach outcome: %w", err)
	}
	return nil
}

// eventForOutcome maps a feedback outcome to the interaction event it
// implies. Ignores are recorded on the recommendation only; they say nothing
// about taste.
func eventForOutcome(fb *Feedback) *domain.InteractionEvent {
	var eventType domain.EventType
	var strength float64

	switch fb.Outcome {
	case domain.OutcomeClick:
		eventType = domain.EventView
	case domain.OutcomeConvert:
		eventType = domain.EventFeedbackPositive
		strength = 2.0
	case domain.OutcomeExplicitLike:
		eventType = domain.EventLike
	case domain.OutcomeExplicitDislike:
		eventType = domain.EventDislike
	default:
		return nil
	}

	return &domain.InteractionEvent{
		UserID:    fb.UserID,
		ArtworkID: fb.ArtworkID,
		Type:      eventType,
		Strength:  strength,
		Timestamp: time.Now().UTC(),
	}
}
