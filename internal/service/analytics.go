package service

import (
	"context"
	"fmt"
	"time"

	"github.com/artmarket/curator/internal/behavior"
	"github.com/artmarket/curator/internal/domain"
	"github.com/artmarket/curator/internal/logger"
	"github.com/artmarket/curator/internal/scorer"
)

// RecommendationHistory reads back served recommendations for reporting.
type RecommendationHistory interface {
	ListByTimeRange(ctx context.Context, start, end time.Time) ([]domain.RecommendationRecord, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// InteractionCounter summarizes a user's raw interaction volume.
type InteractionCounter interface {
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// AnalyticsService reports how recommendations perform in aggregate and per
// user.
type AnalyticsService struct {
	history  RecommendationHistory
	events   InteractionCounter
	behavior BehaviorReader
	logger   *logger.Logger
}

func NewAnalyticsService(history RecommendationHistory, events InteractionCounter, behaviorReader BehaviorReader, log *logger.Logger) *AnalyticsService {
	return &AnalyticsService{
		history:  history,
		events:   events,
		behavior: behaviorReader,
		logger:   log,
	}
}

// PerformanceReport aggregates outcome counts over a reporting window.
type PerformanceReport struct {
	Start             time.Time      `json:"start"`
	End               time.Time      `json:"end"`
	TotalServed       int            `json:"total_served"`
	TotalImpressions  int            `json:"total_impressions"`
	Clicks            int            `json:"clicks"`
	Conversions       int            `json:"conversions"`
	Dislikes          int            `json:"dislikes"`
	ClickThroughRate  float64        `json:"click_through_rate"`
	ConversionRate    float64        `json:"conversion_rate"`
	AverageScore      float64        `json:"average_score"`
	ColdStartServings int            `json:"cold_start_servings"`
	ProfileBreakdown  map[string]int `json:"profile_breakdown"`
}

// Performance aggregates recommendation outcomes inside [start, end).
func (s *AnalyticsService) Performance(ctx context.Context, start, end time.Time) (*PerformanceReport, error) {
	records, err := s.history.ListByTimeRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}

	report := &PerformanceReport{
		Start:            start,
		End:              end,
		TotalServed:      len(records),
		ProfileBreakdown: make(map[string]int),
	}
	var scoreSum float64
	for i := range records {
		rec := &records[i]
		report.ProfileBreakdown[rec.Profile]++
		if rec.Profile == scorer.ProfileColdStart {
			report.ColdStartServings++
		}
		for _, item := range rec.Items {
			report.TotalImpressions++
			scoreSum += item.Score
			switch item.Outcome {
			case domain.OutcomeClick:
				report.Clicks++
			case domain.OutcomeConvert:
				report.Clicks++
				report.Conversions++
			case domain.OutcomeExplicitDislike:
				report.Dislikes++
			}
		}
	}
	if report.TotalImpressions > 0 {
		report.ClickThroughRate = float64(report.Clicks) / float64(report.TotalImpressions)
		report.ConversionRate = float64(report.Conversions) / float64(report.TotalImpressions)
		report.AverageScore = scoreSum / float64(report.TotalImpressions)
	}
	return report, nil
}

// UserBehaviorReport summarizes one user's engagement with the engine.
type UserBehaviorReport struct {
	UserID              string  `json:"user_id"`
	InteractionCount    int64   `json:"interaction_count"`
	RecommendationCount int64   `json:"recommendation_count"`
	PositiveArtworks    int     `json:"positive_artworks"`
	NegativeArtworks    int     `json:"negative_artworks"`
	ColdStart           bool    `json:"cold_start"`
	ProfileStrength     float64 `json:"profile_strength"`
}

// UserBehavior reports a user's interaction volume and how much preference
// signal the engine holds for them. Profile strength saturates at ten
// positive interactions.
func (s *AnalyticsService) UserBehavior(ctx context.Context, userID string) (*UserBehaviorReport, error) {
	interactions, err := s.events.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}
	served, err := s.history.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count recommendations: %w", err)
	}
	profile, err := s.behavior.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	positives := 0
	for id, aff := range profile.Affinities {
		if aff > 0 {
			if _, neg := profile.Negatives[id]; !neg {
				positives++
			}
		}
	}

	strength := float64(profile.InteractionCount) / 10
	if strength > 1 {
		strength = 1
	}
	return &UserBehaviorReport{
		UserID:              userID,
		InteractionCount:    interactions,
		RecommendationCount: served,
		PositiveArtworks:    positives,
		NegativeArtworks:    len(profile.Negatives),
		ColdStart:           profile.IsColdStart(),
		ProfileStrength:     strength,
	}, nil
}

var _ BehaviorReader = (*behavior.Aggregator)(nil)
