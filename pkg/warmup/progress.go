package warmup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProgressStore records which workflow steps of a run have completed.
// Implementations must be safe for concurrent use.
type ProgressStore interface {
	// Done reports whether the step already completed for the cohort.
	Done(ctx context.Context, runID, cohort, step string) (bool, error)

	// MarkDone records the step as completed.
	MarkDone(ctx context.Context, runID, cohort, step string) error
}

func progressMember(cohort, step string) string {
	return cohort + "|" + step
}

// MemoryProgress keeps progress in process memory. It allows resuming a run
// within the same process only.
type MemoryProgress struct {
	mu   sync.Mutex
	done map[string]map[string]struct{}
}

// NewMemoryProgress creates an empty in-memory progress store.
func NewMemoryProgress() *MemoryProgress {
	return &MemoryProgress{done: make(map[string]map[string]struct{})}
}

// Done implements ProgressStore.
func (m *MemoryProgress) Done(_ context.Context, runID, cohort, step string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.done[runID][progressMember(cohort, step)]
	return ok, nil
}

// MarkDone implements ProgressStore.
func (m *MemoryProgress) MarkDone(_ context.Context, runID, cohort, step string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.done[runID]
	if !ok {
		run = make(map[string]struct{})
		m.done[runID] = run
	}
	run[progressMember(cohort, step)] = struct{}{}
	return nil
}

// DefaultProgressTTL keeps Redis progress long enough to resume a multi-week ramp.
const DefaultProgressTTL = 30 * 24 * time.Hour

// RedisProgress keeps progress in a Redis set per run, so a run can be
// resumed from another process.
type RedisProgress struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisProgress creates a Redis-backed progress store.
func NewRedisProgress(redisClient *redis.Client, ttl time.Duration) *RedisProgress {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultProgressTTL
	}
	return &RedisProgress{redis: redisClient, ttl: ttl}
}

func progressKey(runID string) string {
	return "sendgrid:warmup:" + runID + ":done"
}

// Done implements ProgressStore.
func (p *RedisProgress) Done(ctx context.Context, runID, cohort, step string) (bool, error) {
	ok, err := p.redis.SIsMember(ctx, progressKey(runID), progressMember(cohort, step)).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember: %w", err)
	}
	return ok, nil
}

// MarkDone implements ProgressStore.
func (p *RedisProgress) MarkDone(ctx context.Context, runID, cohort, step string) error {
	key := progressKey(runID)

	pipe := p.redis.TxPipeline()
	pipe.SAdd(ctx, key, progressMember(cohort, step))
	pipe.Expire(ctx, key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store warm-up progress in redis: %w", err)
	}
	return nil
}

// Reset forgets all progress of a run.
func (p *RedisProgress) Reset(ctx context.Context, runID string) error {
	if err := p.redis.Del(ctx, progressKey(runID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
