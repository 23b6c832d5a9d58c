package probsource

import (
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/oddsmith/internal/metrics"
)

// ScoreCache provides in-memory TTL caching of raw model scores, keyed by
// contest. Scores for a contest are stable until the model retrains, so a
// short TTL keeps repeated decision cycles from hammering the model API.
type ScoreCache struct {
	cache   *cache.Cache
	ttl     time.Duration
	maxSize int

	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewScoreCache creates a score cache with the given TTL and size bound.
func NewScoreCache(ttl time.Duration, maxSize int) *ScoreCache {
	return &ScoreCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves cached scores for a contest, or nil on a miss.
func (sc *ScoreCache) Get(contestID uuid.UUID) map[string]float64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if v, found := sc.cache.Get(contestID.String()); found {
		if scores, ok := v.(map[string]float64); ok {
			sc.hitCount++
			sc.updateMetricsLocked()
			return scores
		}
	}
	sc.missCount++
	sc.updateMetricsLocked()
	return nil
}

// Set stores scores for a contest.
func (sc *ScoreCache) Set(contestID uuid.UUID, scores map[string]float64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.cache.ItemCount() >= sc.maxSize {
		sc.cache.DeleteExpired()
	}
	sc.cache.Set(contestID.String(), scores, sc.ttl)
}

// Invalidate removes a single contest's scores, used when the feed reports
// a late scratch or the model version changes mid-day.
func (sc *ScoreCache) Invalidate(contestID uuid.UUID) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache.Delete(contestID.String())
}

// Clear flushes the entire cache.
func (sc *ScoreCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache.Flush()
	sc.hitCount = 0
	sc.missCount = 0
}

// Stats returns hit/miss counts and the hit ratio.
func (sc *ScoreCache) Stats() (hits, misses uint64, ratio float64) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	hits = sc.hitCount
	misses = sc.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of cached contests.
func (sc *ScoreCache) ItemCount() int {
	return sc.cache.ItemCount()
}

func (sc *ScoreCache) updateMetricsLocked() {
	total := sc.hitCount + sc.missCount
	if total == 0 {
		return
	}
	metrics.ModelCacheHitRatio.Set(float64(sc.hitCount) / float64(total))
}
