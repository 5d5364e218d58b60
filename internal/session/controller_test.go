package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/cache"
	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/generator"
	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/store"
	"github.com/markdotcom5/markmvp5-sub000/internal/bus"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/achievement"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
	"github.com/markdotcom5/markmvp5-sub000/internal/ranking"
	"github.com/markdotcom5/markmvp5-sub000/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// flakyStore wraps the in-memory source with an injectable outage, a
// read counter, and an optional per-read delay that widens race windows.
type flakyStore struct {
	*store.InMemorySource
	fail  atomic.Bool
	gets  atomic.Int64
	delay atomic.Int64
}

func (f *flakyStore) GetParticipant(ctx context.Context, id string) (model.Participant, error) {
	f.gets.Add(1)
	if d := f.delay.Load(); d > 0 {
		time.Sleep(time.Duration(d))
	}
	if f.fail.Load() {
		return model.Participant{}, fmt.Errorf("%w: injected outage", store.ErrUnavailable)
	}
	return f.InMemorySource.GetParticipant(ctx, id)
}

// collectChannel records delivered payloads for assertions.
type collectChannel struct {
	id  string
	mu  sync.Mutex
	got [][]byte
}

func (c *collectChannel) ID() string { return c.id }

func (c *collectChannel) Send(_ context.Context, payload []byte) error {
	c.mu.Lock()
	c.got = append(c.got, payload)
	c.mu.Unlock()
	return nil
}

func (c *collectChannel) events() []map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]interface{}, 0, len(c.got))
	for _, raw := range c.got {
		var ev map[string]interface{}
		if json.Unmarshal(raw, &ev) == nil {
			out = append(out, ev)
		}
	}
	return out
}

type testRig struct {
	store      *flakyStore
	controller *Controller
	bus        *bus.Bus
	cache      *cache.MemoryCache
}

func newTestRig(interval time.Duration) *testRig {
	fs := &flakyStore{InMemorySource: store.NewInMemorySource()}
	fs.Seed(model.Participant{
		ID:    "cadet-1",
		Score: 100,
		Metrics: map[string]float64{
			model.MetricAssessmentScore: 50,
		},
	})

	c := cache.NewMemoryCache(cache.WithSweepInterval(time.Hour))
	engine := ranking.New(fs.InMemorySource, c, ranking.WithCacheTTL(time.Nanosecond))
	b := bus.New()
	ctrl := NewController(
		fs,
		engine,
		achievement.NewEvaluator(),
		generator.NewStaticGenerator(),
		b,
		WithTickInterval(interval),
		WithCallTimeout(time.Second),
	)
	return &testRig{store: fs, controller: ctrl, bus: b, cache: c}
}

func TestInitialize(t *testing.T) {
	Convey("Given a controller over a seeded store", t, func() {
		rig := newTestRig(time.Hour)
		defer rig.controller.Shutdown()
		defer rig.cache.Close()
		ctx := context.Background()

		Convey("Initialize creates a manual session", func() {
			snap, err := rig.controller.Initialize(ctx, "cadet-1")
			So(err, ShouldBeNil)
			So(snap.Mode, ShouldEqual, "manual")
			So(snap.Recommendation, ShouldBeNil)

			Convey("And a second call returns the same session unchanged", func() {
				again, err := rig.controller.Initialize(ctx, "cadet-1")
				So(err, ShouldBeNil)
				So(again, ShouldResemble, snap)
				So(rig.controller.SessionCount(), ShouldEqual, 1)
			})
		})

		Convey("Initialize for an unknown participant fails with NotFound", func() {
			_, err := rig.controller.Initialize(ctx, "ghost")
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
		})

		Convey("Operations before Initialize fail with SessionNotFound", func() {
			_, err := rig.controller.ToggleMode(ctx, "cadet-1")
			So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)

			_, err = rig.controller.ProcessAction(ctx, "cadet-1", "module_completed", nil)
			So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)
		})
	})
}

func TestToggleMode(t *testing.T) {
	Convey("Given an initialized session", t, func() {
		rig := newTestRig(time.Hour)
		defer rig.controller.Shutdown()
		defer rig.cache.Close()
		ctx := context.Background()
		_, err := rig.controller.Initialize(ctx, "cadet-1")
		So(err, ShouldBeNil)

		Convey("Toggling to assisted computes an initial recommendation and starts the loop", func() {
			snap, err := rig.controller.ToggleMode(ctx, "cadet-1")
			So(err, ShouldBeNil)
			So(snap.Mode, ShouldEqual, "assisted")
			So(snap.Recommendation, ShouldNotBeNil)
			So(snap.Recommendation.Action, ShouldEqual, "retake_assessment")
			So(snap.Recommendation.Coaching, ShouldNotBeEmpty)
			So(rig.controller.MonitorActive("cadet-1"), ShouldBeTrue)

			Convey("Confidence is an integer in [0,100]", func() {
				So(snap.Confidence, ShouldBeGreaterThanOrEqualTo, 0)
				So(snap.Confidence, ShouldBeLessThanOrEqualTo, 100)
			})

			Convey("Toggling back to manual cancels the loop but keeps the recommendation", func() {
				back, err := rig.controller.ToggleMode(ctx, "cadet-1")
				So(err, ShouldBeNil)
				So(back.Mode, ShouldEqual, "manual")
				So(back.Recommendation, ShouldNotBeNil)
				So(rig.controller.MonitorActive("cadet-1"), ShouldBeFalse)
			})
		})

		Convey("A failed initial recomputation leaves the session fully manual", func() {
			rig.store.fail.Store(true)
			_, err := rig.controller.ToggleMode(ctx, "cadet-1")
			So(errors.Is(err, store.ErrUnavailable), ShouldBeTrue)

			snap, ok := rig.controller.GetState(ctx, "cadet-1")
			So(ok, ShouldBeTrue)
			So(snap.Mode, ShouldEqual, "manual")
			So(rig.controller.MonitorActive("cadet-1"), ShouldBeFalse)
		})
	})
}

func TestMonitorLifecycle(t *testing.T) {
	Convey("Given an assisted session with a fast tick", t, func() {
		interval := 25 * time.Millisecond
		rig := newTestRig(interval)
		defer rig.controller.Shutdown()
		defer rig.cache.Close()
		ctx := context.Background()

		_, err := rig.controller.Initialize(ctx, "cadet-1")
		So(err, ShouldBeNil)
		_, err = rig.controller.ToggleMode(ctx, "cadet-1")
		So(err, ShouldBeNil)

		Convey("Starting the monitor again is a no-op, not a second loop", func() {
			s, lookupErr := rig.controller.lookup("cadet-1")
			So(lookupErr, ShouldBeNil)
			s.mu.Lock()
			rig.controller.startMonitorLocked(s)
			s.mu.Unlock()

			_, err := rig.controller.ToggleMode(ctx, "cadet-1") // back to manual
			So(err, ShouldBeNil)

			// Let any tick that was already mid-flight drain first.
			time.Sleep(interval)
			before := rig.store.gets.Load()
			time.Sleep(4 * interval)

			Convey("After cancellation no tick fires, so no loop leaked", func() {
				So(rig.store.gets.Load(), ShouldEqual, before)
			})
		})

		Convey("After toggling out of assisted, no tick fires within 2x the interval", func() {
			_, err := rig.controller.ToggleMode(ctx, "cadet-1")
			So(err, ShouldBeNil)
			time.Sleep(interval)
			before := rig.store.gets.Load()
			time.Sleep(3 * interval)
			So(rig.store.gets.Load(), ShouldEqual, before)
		})

		Convey("A degraded loop announces the outage once, not per tick", func() {
			ch := &collectChannel{id: "tab-err"}
			rig.bus.Subscribe("cadet-1", ch)

			rig.store.fail.Store(true)
			time.Sleep(6 * interval)

			var errEvents int
			for _, ev := range ch.events() {
				if ev["type"] == "error" {
					errEvents++
				}
			}
			So(errEvents, ShouldEqual, 1)
		})

		Convey("A failing tick keeps the previous recommendation and the loop alive", func() {
			snap, _ := rig.controller.GetState(ctx, "cadet-1")
			So(snap.Recommendation.Action, ShouldEqual, "retake_assessment")

			rig.store.fail.Store(true)
			time.Sleep(4 * interval)

			after, _ := rig.controller.GetState(ctx, "cadet-1")
			So(after.Recommendation.Action, ShouldEqual, "retake_assessment")

			Convey("And the loop recovers on the next successful tick", func() {
				ch := &collectChannel{id: "tab-1"}
				rig.bus.Subscribe("cadet-1", ch)

				p, _ := rig.store.InMemorySource.GetParticipant(ctx, "cadet-1")
				p.Metrics[model.MetricAssessmentScore] = 95
				p.Metrics[model.MetricCertificationProgress] = 1
				p.Metrics[model.MetricStreakDays] = 9
				So(rig.store.SaveParticipant(ctx, p), ShouldBeNil)
				rig.store.fail.Store(false)

				time.Sleep(6 * interval)

				recovered, _ := rig.controller.GetState(ctx, "cadet-1")
				So(recovered.Recommendation.Action, ShouldEqual, "practice_core_module")

				var sawChange bool
				for _, ev := range ch.events() {
					if ev["type"] == "progress_update" {
						payload, _ := ev["payload"].(map[string]interface{})
						if payload["kind"] == "recommendation_changed" {
							sawChange = true
						}
					}
				}
				So(sawChange, ShouldBeTrue)
			})
		})
	})
}

func TestProcessAction(t *testing.T) {
	Convey("Given an initialized session", t, func() {
		rig := newTestRig(time.Hour)
		defer rig.controller.Shutdown()
		defer rig.cache.Close()
		ctx := context.Background()
		_, err := rig.controller.Initialize(ctx, "cadet-1")
		So(err, ShouldBeNil)

		Convey("Manual mode persists the action and returns a lightweight suggestion", func() {
			res, err := rig.controller.ProcessAction(ctx, "cadet-1", "module_completed", nil)
			So(err, ShouldBeNil)
			So(res.Mode, ShouldEqual, "manual")
			So(res.Suggestion, ShouldNotBeEmpty)
			So(res.Coaching, ShouldBeEmpty)

			p, getErr := rig.store.InMemorySource.GetParticipant(ctx, "cadet-1")
			So(getErr, ShouldBeNil)
			So(p.Score, ShouldEqual, 110)
		})

		Convey("A score-affecting action announces the new rank", func() {
			ch := &collectChannel{id: "tab-rank"}
			rig.bus.Subscribe("cadet-1", ch)

			_, err := rig.controller.ProcessAction(ctx, "cadet-1", "module_completed",
				map[string]interface{}{"difficulty": "hard"})
			So(err, ShouldBeNil)

			var sawRank bool
			for _, ev := range ch.events() {
				if ev["type"] == "rank_update" {
					sawRank = true
				}
			}
			So(sawRank, ShouldBeTrue)
		})

		Convey("Assisted mode returns full guidance", func() {
			_, err := rig.controller.ToggleMode(ctx, "cadet-1")
			So(err, ShouldBeNil)

			res, err := rig.controller.ProcessAction(ctx, "cadet-1", "assessment_submitted", nil)
			So(err, ShouldBeNil)
			So(res.Mode, ShouldEqual, "assisted")
			So(res.Recommendation, ShouldNotBeNil)
			So(res.Coaching, ShouldNotBeEmpty)
			So(res.Confidence, ShouldBeGreaterThanOrEqualTo, 0)
			So(res.Confidence, ShouldBeLessThanOrEqualTo, 100)
		})

		Convey("An outage during an assisted action surfaces without corrupting state", func() {
			_, err := rig.controller.ToggleMode(ctx, "cadet-1")
			So(err, ShouldBeNil)
			stored, _ := rig.controller.GetState(ctx, "cadet-1")

			rig.store.fail.Store(true)
			_, err = rig.controller.ProcessAction(ctx, "cadet-1", "module_completed", nil)
			So(errors.Is(err, store.ErrUnavailable), ShouldBeTrue)

			after, _ := rig.controller.GetState(ctx, "cadet-1")
			So(after.Mode, ShouldEqual, "assisted")
			So(after.Recommendation, ShouldResemble, stored.Recommendation)
		})
	})
}

func TestConcurrentActions(t *testing.T) {
	Convey("Given many simultaneous submissions for one participant", t, func() {
		rig := newTestRig(time.Hour)
		defer rig.controller.Shutdown()
		defer rig.cache.Close()
		ctx := context.Background()
		_, err := rig.controller.Initialize(ctx, "cadet-1")
		So(err, ShouldBeNil)

		// Slow reads so overlapping submissions would clobber each other
		// if they were not serialized.
		rig.store.delay.Store(int64(5 * time.Millisecond))

		const submits = 10
		var wg sync.WaitGroup
		var failures atomic.Int64
		for i := 0; i < submits; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := rig.controller.ProcessAction(ctx, "cadet-1", ActionModuleCompleted, nil); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Every submission lands and the score is the exact sum", func() {
			So(failures.Load(), ShouldEqual, 0)
			p, getErr := rig.store.InMemorySource.GetParticipant(ctx, "cadet-1")
			So(getErr, ShouldBeNil)
			So(p.Score, ShouldEqual, 100+submits*moduleBasePoints)
		})
	})
}

func TestAchievementFlow(t *testing.T) {
	Convey("Given a participant sitting on unlock thresholds", t, func() {
		rig := newTestRig(time.Hour)
		defer rig.controller.Shutdown()
		defer rig.cache.Close()
		ctx := context.Background()

		p, _ := rig.store.InMemorySource.GetParticipant(ctx, "cadet-1")
		p.Metrics[model.MetricAssessmentScore] = 92
		So(rig.store.SaveParticipant(ctx, p), ShouldBeNil)

		ch := &collectChannel{id: "tab-1"}
		rig.bus.Subscribe("cadet-1", ch)

		_, err := rig.controller.Initialize(ctx, "cadet-1")
		So(err, ShouldBeNil)

		Convey("Toggling to assisted unlocks and announces the achievement once", func() {
			_, err := rig.controller.ToggleMode(ctx, "cadet-1")
			So(err, ShouldBeNil)

			unlocks := 0
			for _, ev := range ch.events() {
				if ev["type"] == "achievement_unlocked" {
					unlocks++
				}
			}
			So(unlocks, ShouldEqual, 1)

			Convey("And the unlock is persisted, so recomputing does not repeat it", func() {
				_, err := rig.controller.ProcessAction(ctx, "cadet-1", "module_completed", nil)
				So(err, ShouldBeNil)

				unlocks := 0
				for _, ev := range ch.events() {
					if ev["type"] == "achievement_unlocked" {
						unlocks++
					}
				}
				So(unlocks, ShouldEqual, 1)
			})
		})
	})
}
