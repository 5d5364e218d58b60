// Package service provides the guidance orchestrator consumed by the
// external route layer: it wires the session controller, ranking engine,
// achievement evaluator, content generator, and notification bus together.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/cache"
	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/generator"
	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/store"
	"github.com/markdotcom5/markmvp5-sub000/internal/bus"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/achievement"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/types"
	"github.com/markdotcom5/markmvp5-sub000/internal/ranking"
	"github.com/markdotcom5/markmvp5-sub000/internal/session"
	"github.com/markdotcom5/markmvp5-sub000/pkg/logger"
	"github.com/markdotcom5/markmvp5-sub000/pkg/metrics"
)

// Default service configuration.
const (
	defaultTickInterval = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
	defaultCacheTTL     = 5 * time.Minute
)

// Service implements the guidance façade for the external route layer.
type Service struct {
	mu      sync.RWMutex
	started bool

	// Collaborators, injectable for tests and alternate deployments.
	source    store.Source
	gen       generator.Generator
	rankCache cache.Cache

	// Core components, built on Start.
	engine     *ranking.Engine
	evaluator  *achievement.Evaluator
	notifier   *bus.Bus
	controller *session.Controller

	// Configuration.
	tickInterval time.Duration
	callTimeout  time.Duration
	cacheTTL     time.Duration

	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the participant score source.
func WithSource(src store.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithGenerator sets the content generator.
func WithGenerator(g generator.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.gen = g
		}
	}
}

// WithRankingCache sets the ranking cache backend.
func WithRankingCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.rankCache = c
		}
	}
}

// WithTickInterval sets the monitor loop cadence.
func WithTickInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.tickInterval = interval
		}
	}
}

// WithCallTimeout bounds every external call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.callTimeout = timeout
		}
	}
}

// WithCacheTTL sets how long computed rankings stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tickInterval: defaultTickInterval,
		callTimeout:  defaultCallTimeout,
		cacheTTL:     defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the engine components. Idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.log == nil {
		s.log = logger.Get()
	}

	s.log.Info(ctx, "starting guidance engine...")

	if s.source == nil {
		s.source = store.NewInMemorySource()
		s.log.Info(ctx, "using in-memory participant source")
	}
	if s.gen == nil {
		s.gen = generator.NewStaticGenerator()
		s.log.Info(ctx, "using canned content generator")
	}
	if s.rankCache == nil {
		s.rankCache = cache.NewMemoryCache()
		s.log.Info(ctx, "using in-memory ranking cache")
	}

	s.engine = ranking.New(s.source, s.rankCache,
		ranking.WithCacheTTL(s.cacheTTL),
		ranking.WithLogger(s.log),
	)
	s.evaluator = achievement.NewEvaluator()
	s.notifier = bus.New(bus.WithLogger(s.log))
	s.controller = session.NewController(
		s.source,
		s.engine,
		s.evaluator,
		s.gen,
		s.notifier,
		session.WithTickInterval(s.tickInterval),
		session.WithCallTimeout(s.callTimeout),
		session.WithLogger(s.log),
	)

	s.started = true
	s.log.Info(ctx, "guidance engine started",
		logger.Duration("tickInterval", s.tickInterval),
		logger.Duration("callTimeout", s.callTimeout),
		logger.Duration("cacheTTL", s.cacheTTL),
	)
	return nil
}

// Stop gracefully shuts the engine down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.log.Info(context.Background(), "stopping guidance engine...")

	s.controller.Shutdown()
	if closer, ok := s.rankCache.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.log.Info(context.Background(), "guidance engine stopped")
}

// InitializeGuidance creates (or returns) the participant's session.
func (s *Service) InitializeGuidance(ctx context.Context, participantID string) (types.SessionSnapshot, error) {
	return s.controller.Initialize(ctx, participantID)
}

// ToggleGuidanceMode flips the participant between manual and assisted.
func (s *Service) ToggleGuidanceMode(ctx context.Context, participantID string) (types.SessionSnapshot, error) {
	return s.controller.ToggleMode(ctx, participantID)
}

// GetState returns the participant's session snapshot, if one exists.
func (s *Service) GetState(ctx context.Context, participantID string) (types.SessionSnapshot, bool) {
	return s.controller.GetState(ctx, participantID)
}

// SubmitAction records an inbound participant action. The controller runs
// the whole pipeline under the participant's session mutex: effect
// application, unlock and rank announcements, and the mode-appropriate
// guidance result. Requires an initialized session.
func (s *Service) SubmitAction(ctx context.Context, participantID, action string, actionCtx map[string]interface{}) (types.GuidanceResult, error) {
	return s.controller.ProcessAction(ctx, participantID, action, actionCtx)
}

// RankQuery selects the population for GetRanking.
type RankQuery struct {
	Scope    string  // global | category | local
	Category string  // required for category scope
	RadiusKm float64 // required for local scope
	// Origin overrides the participant's own location for local scope.
	Origin *model.Coordinates
}

// GetRanking computes the participant's position for the requested scope.
func (s *Service) GetRanking(ctx context.Context, participantID string, q RankQuery) (types.RankingResult, error) {
	tctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	p, err := s.source.GetParticipant(tctx, participantID)
	cancel()
	if err != nil {
		return types.RankingResult{}, wrapStoreErr(err)
	}

	switch q.Scope {
	case "", ranking.KindGlobal:
		return s.engine.Rank(ctx, p, ranking.GlobalScope())
	case ranking.KindCategory:
		return s.engine.Rank(ctx, p, ranking.CategoryScope(q.Category))
	case ranking.KindLocal:
		origin := p.Location
		if q.Origin != nil {
			origin = *q.Origin
		}
		return s.engine.LocalRank(ctx, p, origin, q.RadiusKm)
	default:
		return types.RankingResult{}, fmt.Errorf("%w: unknown scope %q", ranking.ErrInvalidScope, q.Scope)
	}
}

// SubscribeToUpdates registers a live delivery channel for the participant.
func (s *Service) SubscribeToUpdates(participantID string, ch bus.Channel) {
	s.notifier.Subscribe(participantID, ch)
}

// UnsubscribeFromUpdates removes one channel registration.
func (s *Service) UnsubscribeFromUpdates(participantID string, ch bus.Channel) {
	s.notifier.Unsubscribe(participantID, ch)
}

// Stats is a point-in-time view of engine load.
type Stats struct {
	Started          bool   `json:"started"`
	Sessions         int    `json:"sessions"`
	AssistedSessions int    `json:"assisted_sessions"`
	LiveChannels     int    `json:"live_channels"`
	TickInterval     string `json:"tick_interval"`
	CacheTTL         string `json:"cache_ttl"`
}

// GetStats returns engine statistics for monitoring.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:      s.started,
		TickInterval: s.tickInterval.String(),
		CacheTTL:     s.cacheTTL.String(),
	}
	if s.started {
		stats.Sessions = s.controller.SessionCount()
		stats.AssistedSessions = s.controller.AssistedCount()
		stats.LiveChannels = s.notifier.TotalChannels()
		metrics.UpdateAssistedSessions(stats.AssistedSessions)
	}
	return stats
}

func wrapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}
