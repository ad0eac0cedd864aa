package trending

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore holds the latest trending snapshot so request paths never
// recompute it inline.
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	// Load returns the latest snapshot, or nil when none has been saved.
	Load(ctx context.Context) (*Snapshot, error)
}

// MemoryStore is the single-instance store.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, nil
}

// RedisStore shares the snapshot across instances through a sorted set. The
// raw decayed scores live in the set; popularity is rescaled on load.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "curator:trending"
	}
	return &RedisStore{client: client, key: keyPrefix}
}

func (s *RedisStore) scoreKey() string { return s.key + ":scores" }
func (s *RedisStore) metaKey() string  { return s.key + ":generated_at" }

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	members := make([]redis.Z, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		members = append(members, redis.Z{Score: e.Score, Member: e.ArtworkID})
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.scoreKey())
	if len(members) > 0 {
		pipe.ZAdd(ctx, s.scoreKey(), members...)
	}
	pipe.Set(ctx, s.metaKey(), strconv.FormatInt(snap.GeneratedAt.UnixNano(), 10), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save trending snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := s.client.Get(ctx, s.metaKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load trending snapshot: %w", err)
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot timestamp: %w", err)
	}

	members, err := s.client.ZRevRangeWithScores(ctx, s.scoreKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load trending scores: %w", err)
	}

	scores := make(map[string]float64, len(members))
	for _, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			continue
		}
		scores[id] = m.Score
	}
	return newSnapshot(time.Unix(0, nanos).UTC(), scores), nil
}
