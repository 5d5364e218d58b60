package session

import (
	"context"
	"time"

	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
	"github.com/markdotcom5/markmvp5-sub000/pkg/logger"
	"github.com/markdotcom5/markmvp5-sub000/pkg/metrics"
)

// startMonitorLocked starts the recomputation loop for s. No-op when a loop
// is already live, so re-entering assisted mode can never double-schedule.
// Caller holds s.mu.
func (c *Controller) startMonitorLocked(s *Session) {
	if s.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go c.runMonitor(loopCtx, s)
}

// stopMonitorLocked cancels the loop in O(1). An in-flight tick may finish
// but will not publish or reschedule after cancellation. Caller holds s.mu.
func (c *Controller) stopMonitorLocked(s *Session) {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// runMonitor fires a recomputation on a fixed interval until canceled.
func (c *Controller) runMonitor(ctx context.Context, s *Session) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx, s)
		}
	}
}

// tick recomputes the next-best-action once. If the previous tick (or an
// inbound action) still holds the session, the tick is skipped rather than
// queued; recomputation must not pile up behind slow external calls.
func (c *Controller) tick(ctx context.Context, s *Session) {
	if !s.mu.TryLock() {
		metrics.RecordMonitorTickSkipped()
		return
	}
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	metrics.RecordMonitorTick()

	rec, conf, err := c.recompute(ctx, s.participantID)
	if err != nil {
		// Transient outage: keep the previous recommendation and
		// confidence, skip this tick, fire again at the next interval.
		metrics.RecordMonitorTickError()
		c.log.Warn(ctx, "monitor tick failed; keeping previous recommendation",
			logger.String("participant", s.participantID),
			logger.Error(err),
		)
		if !s.degraded {
			s.degraded = true
			c.notifier.Publish(ctx, s.participantID, model.NewEvent(model.EventError,
				map[string]interface{}{
					"kind":   "guidance_degraded",
					"detail": "recomputation temporarily unavailable",
				}))
		}
		return
	}
	if ctx.Err() != nil {
		// Canceled while recomputing: finish without publishing.
		return
	}
	s.degraded = false

	changed := s.recommendation == nil || !s.recommendation.Same(rec)
	s.confidence = conf
	s.updatedAt = time.Now().UTC()
	if !changed {
		return
	}

	s.recommendation = &rec
	metrics.RecordRecommendationSwap()
	// Only a recommendation-changed event leaves the tick; rank movement is
	// announced separately by score-affecting flows.
	c.notifier.Publish(ctx, s.participantID, model.NewEvent(model.EventProgressUpdate,
		map[string]interface{}{
			"kind":       "recommendation_changed",
			"action":     rec.Action,
			"focus":      rec.Focus,
			"confidence": conf,
		}))
}
