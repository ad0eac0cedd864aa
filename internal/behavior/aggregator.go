// Package behavior turns the raw interaction log into the per-user state the
// scorer reads: a decayed preference vector and per-artwork stats. The event
// log is the source of truth; everything else here can be rebuilt from it.
package behavior

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artmarket/curator/internal/domain"
	"github.com/artmarket/curator/internal/logger"
)

// EventLog is the append-only interaction record.
type EventLog interface {
	Append(ctx context.Context, event *domain.InteractionEvent) error
	ListByUser(ctx context.Context, userID string) ([]domain.InteractionEvent, error)
	ListSeenSince(ctx context.Context, userID string, cutoff time.Time) ([]string, error)
}

// PreferenceStore persists the derived per-user preference vectors.
type PreferenceStore interface {
	Upsert(ctx context.Context, pref *domain.UserPreferenceVector) error
	Get(ctx context.Context, userID string) (*domain.UserPreferenceVector, error)
	Delete(ctx context.Context, userID string) error
}

// StatStore persists the derived per-(user, artwork) counters.
type StatStore interface {
	Upsert(ctx context.Context, stat *domain.BehaviorStat) error
	Get(ctx context.Context, userID, artworkID string) (*domain.BehaviorStat, error)
	ListByUser(ctx context.Context, userID string) ([]domain.BehaviorStat, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// VectorSource resolves an artwork's feature vector.
type VectorSource interface {
	Get(ctx context.Context, artworkID, modelVersion string) (domain.Vector, error)
}

type AggregatorConfig struct {
	Dimension    int
	ModelVersion string
	// Decay is the weight kept for the old preference vector on each
	// positive event; (1 - Decay) goes to the new artwork. Must be in
	// (0, 1).
	Decay float64
	// SessionWindow bounds how far back "seen this session" reaches.
	SessionWindow time.Duration
}

// Aggregator folds interaction events into user state. Writes for a user are
// serialized on a per-user lock; users never contend with each other.
type Aggregator struct {
	events EventLog
	prefs  PreferenceStore
	stats  StatStore
	source VectorSource
	cfg    AggregatorConfig
	locks  *keyedMutex
	log    *logger.Logger
}

func NewAggregator(events EventLog, prefs PreferenceStore, stats StatStore, source VectorSource, cfg AggregatorConfig, log *logger.Logger) *Aggregator {
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		cfg.Decay = 0.8
	}
	if cfg.SessionWindow <= 0 {
		cfg.SessionWindow = 30 * time.Minute
	}
	return &Aggregator{
		events: events,
		prefs:  prefs,
		stats:  stats,
		source: source,
		cfg:    cfg,
		locks:  newKeyedMutex(),
		log:    log,
	}
}

// Record appends an interaction event and updates the user's derived state.
// The event is durable before any cache moves, so a crash between the two
// loses nothing a Rebuild cannot restore.
func (a *Aggregator) Record(ctx context.Context, event *domain.InteractionEvent) error {
	if !event.Type.Valid() {
		return fmt.Errorf("unknown event type %q", event.Type)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	unlock := a.locks.Lock(event.UserID)
	defer unlock()

	if err := a.events.Append(ctx, event); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return a.apply(ctx, event)
}

// apply folds one event into the derived stat row and preference vector.
// Callers must hold the user's lock.
func (a *Aggregator) apply(ctx context.Context, event *domain.InteractionEvent) error {
	if err := a.applyStat(ctx, event); err != nil {
		return err
	}
	if !event.Type.IsPositive() {
		// Negative and neutral events count against the artwork but do
		// not steer the preference vector.
		return nil
	}
	return a.applyPreference(ctx, event)
}

func (a *Aggregator) applyStat(ctx context.Context, event *domain.InteractionEvent) error {
	stat, err := a.stats.Get(ctx, event.UserID, event.ArtworkID)
	if errors.Is(err, domain.ErrNotFound) {
		stat = &domain.BehaviorStat{
			ID:        uuid.NewString(),
			UserID:    event.UserID,
			ArtworkID: event.ArtworkID,
		}
	} else if err != nil {
		return fmt.Errorf("load stat: %w", err)
	}

	strength := event.EffectiveStrength()
	switch {
	case event.Type == domain.EventView:
		stat.ViewCount++
		stat.Score += strength
	case event.Type.IsPositive():
		stat.PositiveCount++
		stat.Score += strength
	case event.Type.IsNegative():
		stat.NegativeCount++
		stat.Score -= strength
	}
	stat.LastEventAt = event.Timestamp

	if err := a.stats.Upsert(ctx, stat); err != nil {
		return fmt.Errorf("upsert stat: %w", err)
	}
	return nil
}

func (a *Aggregator) applyPreference(ctx context.Context, event *domain.InteractionEvent) error {
	artVec, err := a.source.Get(ctx, event.ArtworkID, a.cfg.ModelVersion)
	if errors.Is(err, domain.ErrNotFound) {
		// No features yet for this artwork. The event is in the log, so
		// a later Rebuild picks it up once extraction has run.
		a.log.WithFields(logger.Fields{
			logger.FieldUserID:    event.UserID,
			logger.FieldArtworkID: event.ArtworkID,
		}).Debug("skipping preference update, artwork has no features")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load artwork vector: %w", err)
	}

	pref, err := a.prefs.Get(ctx, event.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		pref = &domain.UserPreferenceVector{
			UserID: event.UserID,
			Vector: domain.ZeroVector(a.cfg.Dimension),
		}
	} else if err != nil {
		return fmt.Errorf("load preference: %w", err)
	}

	pref.Vector = blend(pref.Vector, artVec, a.cfg.Decay)
	pref.InteractionCount++
	pref.LastUpdated = event.Timestamp

	if err := a.prefs.Upsert(ctx, pref); err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// blend mixes the artwork vector into the old preference with exponential
// decay and renormalizes to unit length. A zero old vector collapses to the
// artwork vector itself, so the first positive signal fully seeds the
// profile.
func blend(old, artwork domain.Vector, decay float64) domain.Vector {
	return old.Scale(decay).Add(artwork.Scale(1 - decay)).Normalized()
}

// GetUserVector returns the user's preference vector. Users with no positive
// history get the zero vector, which downstream reads as the cold-start
// sentinel.
func (a *Aggregator) GetUserVector(ctx context.Context, userID string) (domain.Vector, int, error) {
	pref, err := a.prefs.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ZeroVector(a.cfg.Dimension), 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load preference: %w", err)
	}
	return pref.Vector, int(pref.InteractionCount), nil
}

// Affinity reports how much the user has warmed to an artwork, in [0, 1).
// The raw signed strength total saturates so a pile of views never outranks
// a genuine like.
func (a *Aggregator) Affinity(ctx context.Context, userID, artworkID string) (float64, error) {
	stat, err := a.stats.Get(ctx, userID, artworkID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load stat: %w", err)
	}
	return saturate(stat.Score), nil
}

// HasNegative reports whether the user has ever disliked or negatively
// rated the artwork.
func (a *Aggregator) HasNegative(ctx context.Context, userID, artworkID string) (bool, error) {
	stat, err := a.stats.Get(ctx, userID, artworkID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load stat: %w", err)
	}
	return stat.NegativeCount > 0, nil
}

// UserProfile is one consistent read of everything the scorer needs about a
// user.
type UserProfile struct {
	Vector           domain.Vector
	InteractionCount int
	Affinities       map[string]float64
	Negatives        map[string]struct{}
}

// IsColdStart reports whether the user has no usable preference signal.
func (p *UserProfile) IsColdStart() bool {
	return p.Vector.IsZero()
}

// Profile loads the user's vector and per-artwork state in one call.
func (a *Aggregator) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	vec, count, err := a.GetUserVector(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := a.stats.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}

	profile := &UserProfile{
		Vector:           vec,
		InteractionCount: count,
		Affinities:       make(map[string]float64, len(stats)),
		Negatives:        make(map[string]struct{}),
	}
	for _, s := range stats {
		profile.Affinities[s.ArtworkID] = saturate(s.Score)
		if s.NegativeCount > 0 {
			profile.Negatives[s.ArtworkID] = struct{}{}
		}
	}
	return profile, nil
}

// SeenInSession returns the artwork IDs the user viewed inside the session
// window ending now.
func (a *Aggregator) SeenInSession(ctx context.Context, userID string, now time.Time) ([]string, error) {
	return a.events.ListSeenSince(ctx, userID, now.Add(-a.cfg.SessionWindow))
}

// Rebuild discards the user's derived state and replays their full event
// history in log order. The result is identical to what incremental updates
// would have produced, which makes this the recovery path for cache loss or
// a decay-parameter change.
func (a *Aggregator) Rebuild(ctx context.Context, userID string) error {
	unlock := a.locks.Lock(userID)
	defer unlock()

	events, err := a.events.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	if err := a.prefs.Delete(ctx, userID); err != nil {
		return fmt.Errorf("reset preference: %w", err)
	}
	if err := a.stats.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}

	for i := range events {
		if err := a.apply(ctx, &events[i]); err != nil {
			return fmt.Errorf("replay event %s: %w", events[i].ID, err)
		}
	}

	a.log.WithFields(logger.Fields{
		logger.FieldUserID: userID,
		logger.FieldCount:  len(events),
	}).Info("rebuilt user behavior state")
	return nil
}

// saturate maps a raw signed strength total into [0, 1). Non-positive totals
// floor at zero.
func saturate(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	return raw / (1 + raw)
}
