package behavior

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/artmarket/curator/internal/domain"
	"github.com/artmarket/curator/internal/logger"
)

const tol = 1e-6

type memEventLog struct {
	mu     sync.Mutex
	events []domain.InteractionEvent
}

func (l *memEventLog) Append(_ context.Context, event *domain.InteractionEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, *event)
	return nil
}

func (l *memEventLog) ListByUser(_ context.Context, userID string) ([]domain.InteractionEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.InteractionEvent
	for _, e := range l.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (l *memEventLog) ListSeenSince(_ context.Context, userID string, cutoff time.Time) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, e := range l.events {
		if e.UserID != userID || e.Type != domain.EventView || e.Timestamp.Before(cutoff) {
			continue
		}
		if _, ok := seen[e.ArtworkID]; ok {
			continue
		}
		seen[e.ArtworkID] = struct{}{}
		out = append(out, e.ArtworkID)
	}
	return out, nil
}

type memPreferenceStore struct {
	mu    sync.Mutex
	prefs map[string]domain.UserPreferenceVector
}

func newMemPreferenceStore() *memPreferenceStore {
	return &memPreferenceStore{prefs: make(map[string]domain.UserPreferenceVector)}
}

func (s *memPreferenceStore) Upsert(_ context.Context, pref *domain.UserPreferenceVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[pref.UserID] = *pref
	return nil
}

func (s *memPreferenceStore) Get(_ context.Context, userID string) (*domain.UserPreferenceVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prefs[userID]; ok {
		copied := p
		copied.Vector = p.Vector.Clone()
		return &copied, nil
	}
	return nil, fmt.Errorf("preference %s: %w", userID, domain.ErrNotFound)
}

func (s *memPreferenceStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prefs, userID)
	return nil
}

type memStatStore struct {
	mu    sync.Mutex
	stats map[string]domain.BehaviorStat
}

func newMemStatStore() *memStatStore {
	return &memStatStore{stats: make(map[string]domain.BehaviorStat)}
}

func (s *memStatStore) Upsert(_ context.Context, stat *domain.BehaviorStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[stat.UserID+"/"+stat.ArtworkID] = *stat
	return nil
}

func (s *memStatStore) Get(_ context.Context, userID, artworkID string) (*domain.BehaviorStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stats[userID+"/"+artworkID]; ok {
		copied := st
		return &copied, nil
	}
	return nil, fmt.Errorf("stat %s/%s: %w", userID, artworkID, domain.ErrNotFound)
}

func (s *memStatStore) ListByUser(_ context.Context, userID string) ([]domain.BehaviorStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BehaviorStat
	for _, st := range s.stats {
		if st.UserID == userID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *memStatStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, st := range s.stats {
		if st.UserID == userID {
			delete(s.stats, k)
		}
	}
	return nil
}

type memVectorSource struct {
	vectors map[string]domain.Vector
}

func (s *memVectorSource) Get(_ context.Context, artworkID, _ string) (domain.Vector, error) {
	if v, ok := s.vectors[artworkID]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("feature %s: %w", artworkID, domain.ErrNotFound)
}

type fixture struct {
	agg    *Aggregator
	events *memEventLog
	prefs  *memPreferenceStore
	stats  *memStatStore
}

func newFixture(t *testing.T, vectors map[string]domain.Vector, decay float64) *fixture {
	t.Helper()
	events := &memEventLog{}
	prefs := newMemPreferenceStore()
	stats := newMemStatStore()
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	agg := NewAggregator(events, prefs, stats, &memVectorSource{vectors: vectors}, AggregatorConfig{
		Dimension:     3,
		ModelVersion:  "v1",
		Decay:         decay,
		SessionWindow: 30 * time.Minute,
	}, log)
	return &fixture{agg: agg, events: events, prefs: prefs, stats: stats}
}

func (f *fixture) record(t *testing.T, userID, artworkID string, typ domain.EventType, at time.Time) {
	t.Helper()
	err := f.agg.Record(context.Background(), &domain.InteractionEvent{
		UserID:    userID,
		ArtworkID: artworkID,
		Type:      typ,
		Timestamp: at,
	})
	if err != nil {
		t.Fatalf("Record %s %s: %v", typ, artworkID, err)
	}
}

func TestDecayedPreferenceUpdate(t *testing.T) {
	vectors := map[string]domain.Vector{
		"art-x": {1, 0, 0},
		"art-y": {0, 1, 0},
	}
	f := newFixture(t, vectors, 0.5)
	now := time.Now().UTC()

	// First like from a cold profile seeds the vector with the artwork.
	f.record(t, "u1", "art-x", domain.EventLike, now)
	vec, count, err := f.agg.GetUserVector(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUserVector: %v", err)
	}
	if count != 1 {
		t.Errorf("interaction count = %d, want 1", count)
	}
	if math.Abs(float64(vec[0])-1) > tol {
		t.Errorf("after first like vec = %v, want [1 0 0]", vec)
	}

	// Second like on an orthogonal artwork lands halfway, renormalized.
	f.record(t, "u1", "art-y", domain.EventLike, now.Add(time.Minute))
	vec, _, err = f.agg.GetUserVector(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUserVector: %v", err)
	}
	want := 1 / math.Sqrt2
	if math.Abs(float64(vec[0])-want) > tol || math.Abs(float64(vec[1])-want) > tol {
		t.Errorf("after second like vec = %v, want [%.4f %.4f 0]", vec, want, want)
	}
	if vec.Norm() < 1-tol || vec.Norm() > 1+tol {
		t.Errorf("norm = %v, want unit length", vec.Norm())
	}
}

func TestNegativeEventsDoNotMoveVector(t *testing.T) {
	vectors := map[string]domain.Vector{
		"art-x": {1, 0, 0},
		"art-y": {0, 1, 0},
	}
	f := newFixture(t, vectors, 0.5)
	now := time.Now().UTC()

	f.record(t, "u1", "art-x", domain.EventLike, now)
	f.record(t, "u1", "art-y", domain.EventDislike, now.Add(time.Minute))

	vec, count, err := f.agg.GetUserVector(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUserVector: %v", err)
	}
	if count != 1 {
		t.Errorf("interaction count = %d, want 1 (dislike should not count)", count)
	}
	if math.Abs(float64(vec[0])-1) > tol {
		t.Errorf("vec = %v, want [1 0 0] unchanged by the dislike", vec)
	}

	neg, err := f.agg.HasNegative(context.Background(), "u1", "art-y")
	if err != nil {
		t.Fatalf("HasNegative: %v", err)
	}
	if !neg {
		t.Error("HasNegative = false, want true after a dislike")
	}
}

func TestColdStartReturnsZeroVector(t *testing.T) {
	f := newFixture(t, nil, 0.5)

	vec, count, err := f.agg.GetUserVector(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetUserVector: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if !vec.IsZero() || vec.Dim() != 3 {
		t.Errorf("vec = %v, want the 3-dim zero sentinel", vec)
	}

	profile, err := f.agg.Profile(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !profile.IsColdStart() {
		t.Error("IsColdStart = false for a user with no history")
	}
}

func TestRebuildMatchesIncremental(t *testing.T) {
	vectors := map[string]domain.Vector{
		"art-x": {1, 0, 0},
		"art-y": {0, 1, 0},
		"art-z": {0, 0, 1},
	}
	f := newFixture(t, vectors, 0.5)
	now := time.Now().UTC()

	f.record(t, "u1", "art-x", domain.EventLike, now)
	f.record(t, "u1", "art-y", domain.EventView, now.Add(time.Minute))
	f.record(t, "u1", "art-z", domain.EventContractRequest, now.Add(2*time.Minute))
	f.record(t, "u1", "art-y", domain.EventDislike, now.Add(3*time.Minute))

	ctx := context.Background()
	beforeVec, beforeCount, err := f.agg.GetUserVector(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserVector: %v", err)
	}
	beforeProfile, err := f.agg.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}

	if err := f.agg.Rebuild(ctx, "u1"); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	afterVec, afterCount, err := f.agg.GetUserVector(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserVector after rebuild: %v", err)
	}
	if beforeCount != afterCount {
		t.Errorf("interaction count %d != %d after rebuild", afterCount, beforeCount)
	}
	for i := range beforeVec {
		if math.Abs(float64(beforeVec[i])-float64(afterVec[i])) > tol {
			t.Fatalf("vector diverged at %d: %v vs %v", i, beforeVec, afterVec)
		}
	}

	afterProfile, err := f.agg.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("Profile after rebuild: %v", err)
	}
	if len(afterProfile.Affinities) != len(beforeProfile.Affinities) {
		t.Fatalf("affinity count %d != %d", len(afterProfile.Affinities), len(beforeProfile.Affinities))
	}
	for id, want := range beforeProfile.Affinities {
		if got := afterProfile.Affinities[id]; math.Abs(got-want) > tol {
			t.Errorf("affinity %s = %v after rebuild, want %v", id, got, want)
		}
	}
}

func TestAffinitySaturates(t *testing.T) {
	vectors := map[string]domain.Vector{"art-x": {1, 0, 0}}
	f := newFixture(t, vectors, 0.5)
	now := time.Now().UTC()
	ctx := context.Background()

	aff, err := f.agg.Affinity(ctx, "u1", "art-x")
	if err != nil {
		t.Fatalf("Affinity: %v", err)
	}
	if aff != 0 {
		t.Errorf("affinity with no history = %v, want 0", aff)
	}

	prev := 0.0
	for i := 0; i < 20; i++ {
		f.record(t, "u1", "art-x", domain.EventLike, now.Add(time.Duration(i)*time.Minute))
		aff, err = f.agg.Affinity(ctx, "u1", "art-x")
		if err != nil {
			t.Fatalf("Affinity: %v", err)
		}
		if aff <= prev {
			t.Fatalf("affinity should grow strictly: %v then %v", prev, aff)
		}
		if aff >= 1 {
			t.Fatalf("affinity = %v, must stay below 1", aff)
		}
		prev = aff
	}
}

func TestMissingFeatureSkipsVectorUpdate(t *testing.T) {
	f := newFixture(t, nil, 0.5)
	now := time.Now().UTC()
	ctx := context.Background()

	// Artwork has no features yet. The event must still land in the log
	// and the stat row, with the vector untouched.
	f.record(t, "u1", "art-unextracted", domain.EventLike, now)

	vec, count, err := f.agg.GetUserVector(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserVector: %v", err)
	}
	if count != 0 || !vec.IsZero() {
		t.Errorf("vector moved (count=%d vec=%v) despite missing features", count, vec)
	}

	aff, err := f.agg.Affinity(ctx, "u1", "art-unextracted")
	if err != nil {
		t.Fatalf("Affinity: %v", err)
	}
	if aff == 0 {
		t.Error("stat should still record the like")
	}
	if len(f.events.events) != 1 {
		t.Errorf("event log has %d entries, want 1", len(f.events.events))
	}
}

func TestSeenInSessionWindow(t *testing.T) {
	f := newFixture(t, map[string]domain.Vector{"a": {1, 0, 0}, "b": {0, 1, 0}}, 0.5)
	now := time.Now().UTC()
	ctx := context.Background()

	f.record(t, "u1", "a", domain.EventView, now.Add(-2*time.Hour))
	f.record(t, "u1", "b", domain.EventView, now.Add(-5*time.Minute))
	f.record(t, "u1", "a", domain.EventLike, now.Add(-time.Minute))

	seen, err := f.agg.SeenInSession(ctx, "u1", now)
	if err != nil {
		t.Fatalf("SeenInSession: %v", err)
	}
	if len(seen) != 1 || seen[0] != "b" {
		t.Errorf("seen = %v, want [b] (old view expired, like is not a view)", seen)
	}
}

func TestRecordRejectsUnknownType(t *testing.T) {
	f := newFixture(t, nil, 0.5)

	err := f.agg.Record(context.Background(), &domain.InteractionEvent{
		UserID:    "u1",
		ArtworkID: "a",
		Type:      domain.EventType("purchase"),
	})
	if err == nil {
		t.Fatal("Record accepted an unknown event type")
	}
	if len(f.events.events) != 0 {
		t.Error("rejected event must not reach the log")
	}
}

func TestConcurrentRecordsSameUser(t *testing.T) {
	vectors := map[string]domain.Vector{"art-x": {1, 0, 0}}
	f := newFixture(t, vectors, 0.5)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := f.agg.Record(ctx, &domain.InteractionEvent{
				UserID:    "u1",
				ArtworkID: "art-x",
				Type:      domain.EventLike,
				Timestamp: time.Now().UTC(),
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("Record: %v", err)
			}
		}(i)
	}
	wg.Wait()

	_, count, err := f.agg.GetUserVector(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserVector: %v", err)
	}
	if count != n {
		t.Errorf("interaction count = %d, want %d (no lost updates)", count, n)
	}
}
