// Package trending ranks artworks by recency-weighted positive attention.
// Scores decay on a short half-life so last week's hit does not shadow
// today's, and the ranking doubles as the cold-start recommendation source.
package trending

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/artmarket/curator/internal/domain"
)

// PositiveEventSource lists positive interaction events inside a time range.
type PositiveEventSource interface {
	ListPositiveSince(ctx context.Context, since, until time.Time) ([]domain.InteractionEvent, error)
}

type ComputerConfig struct {
	// HalfLife is how long a positive event takes to lose half its weight.
	// This decays much faster than user preferences; trending is about now.
	HalfLife time.Duration
	// Window bounds how far back events are considered at all.
	Window time.Duration
}

// Entry is one artwork's standing in a trending snapshot.
type Entry struct {
	ArtworkID string
	// Score is the decayed sum of positive event strengths.
	Score float64
	// Popularity is Score rescaled into [0, 1] against the snapshot leader.
	Popularity float64
}

// Snapshot is a trending ranking frozen at a point in time.
type Snapshot struct {
	GeneratedAt time.Time
	// Entries is ordered by score descending, artwork ID ascending on ties.
	Entries []Entry

	index map[string]int
}

// Computer builds trending snapshots from the interaction log.
type Computer struct {
	events PositiveEventSource
	cfg    ComputerConfig
}

func NewComputer(events PositiveEventSource, cfg ComputerConfig) *Computer {
	if cfg.HalfLife <= 0 {
		cfg.HalfLife = 24 * time.Hour
	}
	if cfg.Window <= 0 {
		cfg.Window = 7 * 24 * time.Hour
	}
	return &Computer{events: events, cfg: cfg}
}

// Compute scans positive events in the window ending at now and returns the
// decayed ranking. No events in the window yields an empty snapshot, not an
// error.
func (c *Computer) Compute(ctx context.Context, now time.Time) (*Snapshot, error) {
	events, err := c.events.ListPositiveSince(ctx, now.Add(-c.cfg.Window), now)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	halfLife := c.cfg.HalfLife.Seconds()
	for i := range events {
		e := &events[i]
		age := now.Sub(e.Timestamp).Seconds()
		if age < 0 {
			age = 0
		}
		scores[e.ArtworkID] += e.EffectiveStrength() * math.Exp2(-age/halfLife)
	}

	return newSnapshot(now, scores), nil
}

func newSnapshot(now time.Time, scores map[string]float64) *Snapshot {
	snap := &Snapshot{
		GeneratedAt: now,
		Entries:     make([]Entry, 0, len(scores)),
		index:       make(map[string]int, len(scores)),
	}
	var max float64
	for id, score := range scores {
		snap.Entries = append(snap.Entries, Entry{ArtworkID: id, Score: score})
		if score > max {
			max = score
		}
	}
	sort.Slice(snap.Entries, func(i, j int) bool {
		if snap.Entries[i].Score != snap.Entries[j].Score {
			return snap.Entries[i].Score > snap.Entries[j].Score
		}
		return snap.Entries[i].ArtworkID < snap.Entries[j].ArtworkID
	})
	for i := range snap.Entries {
		if max > 0 {
			snap.Entries[i].Popularity = snap.Entries[i].Score / max
		}
		snap.index[snap.Entries[i].ArtworkID] = i
	}
	return snap
}

// Popularity returns the artwork's normalized popularity, zero if the
// artwork is not trending.
func (s *Snapshot) Popularity(artworkID string) float64 {
	if s == nil {
		return 0
	}
	if i, ok := s.index[artworkID]; ok {
		return s.Entries[i].Popularity
	}
	return 0
}

// Ranking returns the top n entries. n <= 0 or beyond the snapshot length
// returns everything.
func (s *Snapshot) Ranking(n int) []Entry {
	if s == nil {
		return nil
	}
	if n <= 0 || n > len(s.Entries) {
		n = len(s.Entries)
	}
	out := make([]Entry, n)
	copy(out, s.Entries[:n])
	return out
}

// Len reports the number of trending artworks in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}
