package probsource

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/metrics"
	"github.com/yourusername/oddsmith/internal/models"
)

// CachedSource wraps a Source with a per-contest score cache.
type CachedSource struct {
	source Source
	cache  *ScoreCache
	logger *logrus.Logger
}

// NewCachedSource creates a cached source from config.
func NewCachedSource(source Source, cfg config.ModelAPIConfig, logger *logrus.Logger) *CachedSource {
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedSource{
		source: source,
		cache:  NewScoreCache(time.Duration(cfg.CacheTTLSeconds)*time.Second, cfg.CacheMaxEntries),
		logger: logger,
	}
}

// Scores returns cached scores when present, fetching otherwise.
func (c *CachedSource) Scores(ctx context.Context, contest *models.Contest) (map[string]float64, error) {
	if cached := c.cache.Get(contest.ID); cached != nil {
		metrics.ModelRequestsTotal.WithLabelValues("ok", "true").Inc()
		c.logger.WithField("contest_id", contest.ID).Debug("Score cache hit")
		return cached, nil
	}

	scores, err := c.source.Scores(ctx, contest)
	if err != nil {
		return nil, err
	}
	c.cache.Set(contest.ID, scores)
	return scores, nil
}

// Invalidate drops cached scores for a contest.
func (c *CachedSource) Invalidate(contestID uuid.UUID) {
	c.cache.Invalidate(contestID)
}

// Stats returns cache statistics.
func (c *CachedSource) Stats() (hits, misses uint64, ratio float64) {
	return c.cache.Stats()
}

// Close releases the underlying source.
func (c *CachedSource) Close() error {
	return c.source.Close()
}
