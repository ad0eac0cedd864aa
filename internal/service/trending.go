package service

import (
	"context"
	"fmt"
	"time"

	"github.com/artmarket/curator/internal/logger"
	"github.com/artmarket/curator/internal/trending"
)

// TrendingService owns the trending snapshot lifecycle: a worker calls
// Refresh on a schedule, request paths read through Current and Ranking.
type TrendingService struct {
	computer *trending.Computer
	store    trending.SnapshotStore
	logger   *logger.Logger
}

func NewTrendingService(computer *trending.Computer, store trending.SnapshotStore, log *logger.Logger) *TrendingService {
	return &TrendingService{computer: computer, store: store, logger: log}
}

// Refresh recomputes the trending ranking from the event log and publishes
// it.
func (s *TrendingService) Refresh(ctx context.Context) (*trending.Snapshot, error) {
	start := time.Now()
	snap, err := s.computer.Compute(ctx, start.UTC())
	if err != nil {
		return nil, fmt.Errorf("compute trending: %w", err)
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, err
	}

	s.logger.WithFields(logger.Fields{
		logger.FieldCount:      snap.Len(),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("trending snapshot refreshed")
	return snap, nil
}

// Current returns the latest published snapshot. Before the first refresh it
// computes one inline so readers never see nil.
func (s *TrendingService) Current(ctx context.Context) (*trending.Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return s.Refresh(ctx)
	}
	return snap, nil
}

// Ranking returns the top n trending artworks.
func (s *TrendingService) Ranking(ctx context.Context, n int) ([]trending.Entry, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Ranking(n), nil
}
