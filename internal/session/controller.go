// Package session owns the per-participant guidance mode state machine and
// the monitoring loop that recomputes the next-best-action while a
// participant is in assisted mode.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/generator"
	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/store"
	"github.com/markdotcom5/markmvp5-sub000/internal/bus"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/achievement"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/confidence"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/types"
	"github.com/markdotcom5/markmvp5-sub000/internal/ranking"
	"github.com/markdotcom5/markmvp5-sub000/pkg/logger"
	"github.com/markdotcom5/markmvp5-sub000/pkg/metrics"
)

// Default controller configuration.
const (
	defaultTickInterval = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

// Store is the participant projection access the controller needs.
type Store interface {
	GetParticipant(ctx context.Context, id string) (model.Participant, error)
	SaveParticipant(ctx context.Context, p model.Participant) error
}

// Ranker computes a participant's ranking within a scope.
type Ranker interface {
	Rank(ctx context.Context, p model.Participant, scope ranking.Scope) (types.RankingResult, error)
}

// Session is the ephemeral per-participant engine state. Its mutex
// serializes action processing and monitor ticks for the participant.
type Session struct {
	mu sync.Mutex

	participantID  string
	mode           model.Mode
	recommendation *model.Recommendation
	confidence     int
	updatedAt      time.Time

	// cancel is non-nil exactly while the monitor loop is live; it cancels
	// the loop in O(1).
	cancel context.CancelFunc

	// degraded marks a monitor loop whose last tick failed, so the error
	// event fires once per outage instead of once per tick.
	degraded bool
}

func (s *Session) snapshotLocked() types.SessionSnapshot {
	snap := types.SessionSnapshot{
		ParticipantID: s.participantID,
		Mode:          string(s.mode),
		Confidence:    s.confidence,
		UpdatedAt:     s.updatedAt,
	}
	if s.recommendation != nil {
		snap.Recommendation = &types.Recommendation{
			Action:   s.recommendation.Action,
			Focus:    s.recommendation.Focus,
			Coaching: s.recommendation.Coaching,
		}
	}
	return snap
}

func (s *Session) snapshot() types.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Controller keys sessions by participant id, enforcing exactly one live
// session per participant.
type Controller struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store     Store
	ranker    Ranker
	evaluator *achievement.Evaluator
	gen       generator.Generator
	fallback  generator.Generator
	notifier  *bus.Bus

	interval    time.Duration
	callTimeout time.Duration
	log         logger.Logger
}

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithTickInterval sets the monitor loop cadence.
func WithTickInterval(interval time.Duration) Option {
	return func(c *Controller) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithCallTimeout bounds each external call made during recomputation.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// NewController creates a session controller over its collaborators.
func NewController(st Store, ranker Ranker, evaluator *achievement.Evaluator, gen generator.Generator, notifier *bus.Bus, opts ...Option) *Controller {
	c := &Controller{
		sessions:    make(map[string]*Session),
		store:       st,
		ranker:      ranker,
		evaluator:   evaluator,
		gen:         gen,
		fallback:    generator.NewStaticGenerator(),
		notifier:    notifier,
		interval:    defaultTickInterval,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get()
	}
	return c
}

// Initialize creates a manual-mode session for the participant, or returns
// the existing one unchanged. Fails with store.ErrNotFound for unknown
// participants.
func (c *Controller) Initialize(ctx context.Context, participantID string) (types.SessionSnapshot, error) {
	if _, err := c.getParticipant(ctx, participantID); err != nil {
		return types.SessionSnapshot{}, err
	}

	c.mu.Lock()
	s, ok := c.sessions[participantID]
	if !ok {
		s = &Session{
			participantID: participantID,
			mode:          model.ModeManual,
			updatedAt:     time.Now().UTC(),
		}
		c.sessions[participantID] = s
	}
	c.mu.Unlock()

	return s.snapshot(), nil
}

// ToggleMode flips the participant between manual and assisted. The
// transition to assisted computes an initial recommendation synchronously
// before committing; on failure no partial transition is left behind. The
// transition to manual cancels the monitor loop and leaves the last known
// recommendation in place.
func (c *Controller) ToggleMode(ctx context.Context, participantID string) (types.SessionSnapshot, error) {
	s, err := c.lookup(participantID)
	if err != nil {
		return types.SessionSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == model.ModeManual {
		rec, conf, err := c.recompute(ctx, participantID)
		if err != nil {
			return types.SessionSnapshot{}, err
		}
		rec.Coaching = c.coach(ctx, generator.PromptContext{
			ParticipantID: participantID,
			NextAction:    rec.Action,
			Focus:         rec.Focus,
			Confidence:    conf,
		})
		s.recommendation = &rec
		s.confidence = conf
		s.mode = model.ModeAssisted
		c.startMonitorLocked(s)
	} else {
		c.stopMonitorLocked(s)
		s.mode = model.ModeManual
		// Recommendation intentionally left in place, stale but showable.
	}
	s.updatedAt = time.Now().UTC()

	c.persistMode(ctx, participantID, s.mode)
	metrics.UpdateAssistedSessions(c.AssistedCount())

	return s.snapshotLocked(), nil
}

// ProcessAction handles an inbound action: it folds the action's effects
// into the participant projection, announces unlocks and rank movement, and
// returns the mode-appropriate guidance. The whole pipeline runs under the
// session mutex, so concurrent submissions for the same participant
// serialize instead of overwriting each other's read-modify-write.
func (c *Controller) ProcessAction(ctx context.Context, participantID, action string, actionCtx map[string]interface{}) (types.GuidanceResult, error) {
	s, err := c.lookup(participantID)
	if err != nil {
		return types.GuidanceResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := c.getParticipant(ctx, participantID)
	if err != nil {
		return types.GuidanceResult{}, err
	}

	prevScore := p.Score
	applyAction(&p, action, actionCtx)
	p.LastActive = time.Now().UTC()
	if err := c.store.SaveParticipant(ctx, p); err != nil {
		return types.GuidanceResult{}, wrapStoreErr(err)
	}

	unlocked := c.unlockNew(ctx, &p)

	var rank types.RankingResult
	ranked := false
	if p.Score != prevScore {
		rank, err = c.rankGlobal(ctx, p)
		if err != nil {
			return types.GuidanceResult{}, err
		}
		ranked = true
		c.notifier.Publish(ctx, participantID, model.NewEvent(model.EventRankUpdate,
			map[string]interface{}{
				"rank":       rank.Rank,
				"total":      rank.Total,
				"percentile": rank.Percentile,
				"label":      rank.Label,
			}))
	}

	if s.mode == model.ModeManual {
		res := types.GuidanceResult{
			Mode:         string(model.ModeManual),
			Suggestion:   quickSuggestion(action),
			Confidence:   s.confidence,
			Achievements: unlocked,
		}
		if s.recommendation != nil {
			res.Recommendation = &types.Recommendation{
				Action: s.recommendation.Action,
				Focus:  s.recommendation.Focus,
			}
		}
		return res, nil
	}

	// Assisted: recompute from the projection just written instead of
	// re-reading it. On failure the stored recommendation is untouched.
	if !ranked {
		rank, err = c.rankGlobal(ctx, p)
		if err != nil {
			return types.GuidanceResult{}, err
		}
	}
	conf := confidence.ForParticipant(p)
	rec := deriveRecommendation(p, rank)
	rec.Coaching = c.coach(ctx, generator.PromptContext{
		ParticipantID: participantID,
		Action:        action,
		NextAction:    rec.Action,
		Focus:         rec.Focus,
		Confidence:    conf,
	})
	s.recommendation = &rec
	s.confidence = conf
	s.updatedAt = time.Now().UTC()

	return types.GuidanceResult{
		Mode: string(model.ModeAssisted),
		Recommendation: &types.Recommendation{
			Action:   rec.Action,
			Focus:    rec.Focus,
			Coaching: rec.Coaching,
		},
		Coaching:     rec.Coaching,
		Confidence:   conf,
		Achievements: unlocked,
	}, nil
}

// GetState returns a snapshot of the participant's session, if any. Pure
// read, no side effects.
func (c *Controller) GetState(_ context.Context, participantID string) (types.SessionSnapshot, bool) {
	c.mu.Lock()
	s, ok := c.sessions[participantID]
	c.mu.Unlock()
	if !ok {
		return types.SessionSnapshot{}, false
	}
	return s.snapshot(), true
}

// MonitorActive reports whether a monitor loop is live for the participant.
func (c *Controller) MonitorActive(participantID string) bool {
	c.mu.Lock()
	s, ok := c.sessions[participantID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// AssistedCount returns the number of sessions currently in assisted mode.
func (c *Controller) AssistedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sessions {
		if s.mode == model.ModeAssisted {
			n++
		}
	}
	return n
}

// SessionCount returns the number of live sessions.
func (c *Controller) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Shutdown cancels every live monitor loop.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		c.stopMonitorLocked(s)
		s.mu.Unlock()
	}
	metrics.UpdateAssistedSessions(0)
}

func (c *Controller) lookup(participantID string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[participantID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, participantID)
	}
	return s, nil
}

func (c *Controller) getParticipant(ctx context.Context, id string) (model.Participant, error) {
	tctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	p, err := c.store.GetParticipant(tctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Participant{}, err
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return model.Participant{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		return model.Participant{}, err
	}
	return p, nil
}

// coach asks the content generator for coaching text, falling back to the
// canned generator on failure. Generation failure is never fatal.
func (c *Controller) coach(ctx context.Context, pc generator.PromptContext) string {
	tctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	text, err := c.gen.Generate(tctx, pc)
	if err == nil {
		return text
	}
	c.log.Warn(ctx, "content generator failed; using canned coaching",
		logger.String("participant", pc.ParticipantID),
		logger.Error(err),
	)
	text, _ = c.fallback.Generate(ctx, pc)
	return text
}

// persistMode writes the mode back to the participant projection.
// Best effort; a store hiccup must not fail the transition that already
// happened in memory.
func (c *Controller) persistMode(ctx context.Context, participantID string, mode model.Mode) {
	p, err := c.getParticipant(ctx, participantID)
	if err != nil {
		c.log.Warn(ctx, "could not load participant to persist mode", logger.Error(err))
		return
	}
	p.Mode = mode
	if err := c.store.SaveParticipant(ctx, p); err != nil {
		c.log.Warn(ctx, "could not persist guidance mode", logger.Error(err))
	}
}

// recompute derives the next-best-action and confidence for a participant,
// unlocking and announcing any newly satisfied achievements along the way.
// It is called synchronously from toggles and from every monitor tick. The
// caller holds the session mutex.
func (c *Controller) recompute(ctx context.Context, participantID string) (model.Recommendation, int, error) {
	p, err := c.getParticipant(ctx, participantID)
	if err != nil {
		return model.Recommendation{}, 0, err
	}

	c.unlockNew(ctx, &p)

	rank, err := c.rankGlobal(ctx, p)
	if err != nil {
		return model.Recommendation{}, 0, err
	}

	conf := confidence.ForParticipant(p)
	rec := deriveRecommendation(p, rank)
	return rec, conf, nil
}

// unlockNew persists and announces newly satisfied achievements, returning
// their ids. A persistence failure drops the unlocks silently so the same
// criteria fire again on the next evaluation.
func (c *Controller) unlockNew(ctx context.Context, p *model.Participant) []string {
	newly := c.evaluator.Evaluate(*p)
	if len(newly) == 0 {
		return nil
	}

	if p.Unlocked == nil {
		p.Unlocked = make(map[string]bool, len(newly))
	}
	for _, crit := range newly {
		p.Unlocked[crit.ID] = true
	}
	if err := c.store.SaveParticipant(ctx, *p); err != nil {
		c.log.Warn(ctx, "could not persist achievement unlocks", logger.Error(err))
		return nil
	}

	ids := make([]string, 0, len(newly))
	for _, crit := range newly {
		metrics.RecordAchievementUnlock()
		c.notifier.Publish(ctx, p.ID, model.NewEvent(model.EventAchievementUnlocked,
			map[string]interface{}{
				"id":          crit.ID,
				"name":        crit.Name,
				"description": crit.Description,
			}))
		ids = append(ids, crit.ID)
	}
	return ids
}

// rankGlobal computes the participant's global rank under the call timeout.
func (c *Controller) rankGlobal(ctx context.Context, p model.Participant) (types.RankingResult, error) {
	tctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.ranker.Rank(tctx, p, ranking.GlobalScope())
}

// wrapStoreErr normalizes unexpected store failures to ErrUnavailable while
// letting the package sentinels pass through for errors.Is.
func wrapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
