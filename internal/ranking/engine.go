// Package ranking computes leaderboard positions and percentile labels over
// global, category, and geographically local scopes.
package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/cache"
	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/store"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/types"
	"github.com/markdotcom5/markmvp5-sub000/pkg/logger"
	"github.com/markdotcom5/markmvp5-sub000/pkg/metrics"
)

// Default engine configuration.
const (
	defaultCacheTTL = 5 * time.Minute
)

// Source is the read-only score data the engine consumes.
type Source interface {
	ScoreDistribution(ctx context.Context, category string) ([]store.ScoreRecord, error)
	ScoresWithin(ctx context.Context, origin model.Coordinates, radiusKm float64) ([]store.ScoreRecord, error)
}

// Engine computes rankings, memoized through a TTL cache. Cache keys embed
// the participant's current score so a changed score can never be served a
// stale rank.
type Engine struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration
	log    logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCacheTTL sets how long computed rankings stay valid.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New creates a ranking engine over the given source and cache.
func New(source Source, c cache.Cache, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		cache:  c,
		ttl:    defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank returns the participant's position within the scope. Ties share a
// rank (one plus the count of strictly greater scores), which makes the
// result deterministic for identical inputs.
func (e *Engine) Rank(ctx context.Context, p model.Participant, scope Scope) (types.RankingResult, error) {
	if err := scope.Validate(); err != nil {
		return types.RankingResult{}, err
	}

	score := p.Score
	if scope.Kind == KindCategory {
		score = p.Metric(scope.Category)
	}
	key := fmt.Sprintf("%s:%s:%s:%.4f", scope.Kind, scope.Category, p.ID, score)
	if res, ok := e.cached(ctx, key); ok {
		return res, nil
	}

	start := time.Now()
	dist, err := e.source.ScoreDistribution(ctx, scope.Category)
	if err != nil {
		return types.RankingResult{}, wrapUnavailable("score distribution", err)
	}

	res := compute(score, dist)
	metrics.RecordRankComputation(time.Since(start))
	e.put(ctx, key, res)
	return res, nil
}

// LocalRank restricts the population to participants within radiusKm of
// origin; total is the count inside that radius, not the global population.
func (e *Engine) LocalRank(ctx context.Context, p model.Participant, origin model.Coordinates, radiusKm float64) (types.RankingResult, error) {
	if radiusKm <= 0 {
		return types.RankingResult{}, fmt.Errorf("%w: radius must be positive", ErrInvalidScope)
	}

	key := fmt.Sprintf("local:%.3f:%.3f:%.1f:%s:%.4f", origin.Lat, origin.Lon, radiusKm, p.ID, p.Score)
	if res, ok := e.cached(ctx, key); ok {
		return res, nil
	}

	start := time.Now()
	dist, err := e.source.ScoresWithin(ctx, origin, radiusKm)
	if err != nil {
		return types.RankingResult{}, wrapUnavailable("local scores", err)
	}

	res := compute(p.Score, dist)
	metrics.RecordRankComputation(time.Since(start))
	e.put(ctx, key, res)
	return res, nil
}

func (e *Engine) cached(ctx context.Context, key string) (types.RankingResult, bool) {
	raw, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		if e.log != nil {
			e.log.Warn(ctx, "ranking cache read failed", logger.Error(err))
		}
		return types.RankingResult{}, false
	}
	if !ok {
		metrics.RecordCacheMiss()
		return types.RankingResult{}, false
	}
	var res types.RankingResult
	if err := json.Unmarshal(raw, &res); err != nil {
		metrics.RecordCacheMiss()
		return types.RankingResult{}, false
	}
	metrics.RecordCacheHit()
	return res, true
}

// put stores a successful computation. Failures are never cached.
func (e *Engine) put(ctx context.Context, key string, res types.RankingResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, raw, e.ttl); err != nil && e.log != nil {
		e.log.Warn(ctx, "ranking cache write failed", logger.Error(err))
	}
}

// compute derives rank, percentile, and label from a score distribution.
func compute(score float64, dist []store.ScoreRecord) types.RankingResult {
	total := len(dist)
	if total == 0 {
		return types.RankingResult{Rank: 0, Total: 0, Percentile: 0, Label: Label(0)}
	}

	greater := 0
	for _, r := range dist {
		if r.Score > score {
			greater++
		}
	}
	rank := greater + 1
	percentile := math.Round(float64(total-rank)/float64(total)*1000) / 10

	return types.RankingResult{
		Rank:       rank,
		Total:      total,
		Percentile: percentile,
		Label:      Label(percentile),
	}
}

func wrapUnavailable(op string, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, store.ErrUnavailable, err)
}
