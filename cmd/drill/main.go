// Command drill exercises the guidance engine in process: it seeds a cohort
// of cadets, toggles a share of them into assisted mode, and replays random
// training actions while printing the events the engine emits.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/store"
	service "github.com/markdotcom5/markmvp5-sub000/internal/app"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
	"github.com/markdotcom5/markmvp5-sub000/pkg/logger"
)

// Default configuration constants.
const (
	defaultCadets        = 20
	defaultDuration      = 30 * time.Second
	defaultTick          = 500 * time.Millisecond
	defaultAssistedShare = 0.5
)

var actions = []string{
	service.ActionModuleCompleted,
	service.ActionAssessmentSubmitted,
	service.ActionDailyCheckin,
}

// printChannel is a loopback delivery channel that writes every event to
// stdout.
type printChannel struct {
	id      string
	verbose bool
	count   atomic.Int64
}

func (c *printChannel) ID() string { return c.id }

func (c *printChannel) Send(_ context.Context, payload []byte) error {
	c.count.Add(1)
	if c.verbose {
		fmt.Printf("[%s] %s\n", c.id, payload)
	}
	return nil
}

func main() {
	var (
		cadets   = flag.Int("cadets", defaultCadets, "Number of cadets to seed")
		duration = flag.Duration("duration", defaultDuration, "How long to replay actions")
		tick     = flag.Duration("tick", defaultTick, "Assisted monitor loop interval")
		assisted = flag.Float64("assisted", defaultAssistedShare, "Share of cadets toggled into assisted mode")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		verbose  = flag.Bool("verbose", false, "Print every delivered event")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	_ = logger.SetLevelString("warn")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rng := rand.New(rand.NewSource(*seed))

	src := store.NewInMemorySource()
	ids := seedCadets(src, *cadets, rng)

	svc := service.New(
		service.WithSource(src),
		service.WithTickInterval(*tick),
		service.WithCacheTTL(2*time.Second),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start engine: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// One loopback channel per cadet so deliveries can be counted.
	channels := make(map[string]*printChannel, len(ids))
	for _, id := range ids {
		ch := &printChannel{id: id, verbose: *verbose}
		channels[id] = ch
		svc.SubscribeToUpdates(id, ch)
	}

	for _, id := range ids {
		if _, err := svc.InitializeGuidance(ctx, id); err != nil {
			os.Stderr.WriteString("init failed for " + id + ": " + err.Error() + "\n")
			return
		}
		if rng.Float64() < *assisted {
			if _, err := svc.ToggleGuidanceMode(ctx, id); err != nil {
				os.Stderr.WriteString("toggle failed for " + id + ": " + err.Error() + "\n")
			}
		}
	}

	fmt.Printf("drill: %d cadets seeded, replaying actions for %s\n", len(ids), *duration)

	var submitted int
	deadline := time.After(*duration)

replay:
	for {
		select {
		case <-ctx.Done():
			break replay
		case <-deadline:
			break replay
		case <-time.After(time.Duration(rng.Intn(200)) * time.Millisecond):
			id := ids[rng.Intn(len(ids))]
			action := actions[rng.Intn(len(actions))]
			if _, err := svc.SubmitAction(ctx, id, action, randomContext(action, rng)); err != nil {
				os.Stderr.WriteString("action failed for " + id + ": " + err.Error() + "\n")
				continue
			}
			submitted++
		}
	}

	fmt.Printf("drill: submitted %d actions\n", submitted)

	var delivered int64
	for _, ch := range channels {
		delivered += ch.count.Load()
	}
	fmt.Printf("drill: delivered %d events\n", delivered)

	// Final standings for the top of the cohort.
	for _, id := range ids[:min(5, len(ids))] {
		res, err := svc.GetRanking(ctx, id, service.RankQuery{})
		if err != nil {
			os.Stderr.WriteString("ranking failed for " + id + ": " + err.Error() + "\n")
			continue
		}
		fmt.Printf("drill: %-10s rank %d/%d (%.1f%%, %s)\n", id, res.Rank, res.Total, res.Percentile, res.Label)
	}

	fmt.Printf("drill: stats %+v\n", svc.GetStats())
}

func seedCadets(src *store.InMemorySource, n int, rng *rand.Rand) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("cadet-%03d", i+1)
		src.Seed(model.Participant{
			ID:    id,
			Mode:  model.ModeManual,
			Score: float64(rng.Intn(200)),
			Metrics: map[string]float64{
				model.MetricAssessmentScore:       float64(rng.Intn(100)),
				model.MetricStreakDays:            float64(rng.Intn(10)),
				model.MetricCertificationProgress: rng.Float64(),
				model.MetricOverallProgress:       rng.Float64(),
			},
			Location: model.Coordinates{
				Lat: 40 + rng.Float64()*2,
				Lon: -74 + rng.Float64()*2,
			},
			LastActive: time.Now().UTC(),
		})
		ids = append(ids, id)
	}
	return ids
}

func randomContext(action string, rng *rand.Rand) map[string]interface{} {
	switch action {
	case service.ActionModuleCompleted:
		difficulty := "normal"
		if rng.Intn(3) == 0 {
			difficulty = "hard"
		}
		return map[string]interface{}{
			"difficulty": difficulty,
			"minutes":    float64(10 + rng.Intn(50)),
			"category":   "navigation",
		}
	case service.ActionAssessmentSubmitted:
		return map[string]interface{}{"score": float64(rng.Intn(101))}
	case service.ActionDailyCheckin:
		return map[string]interface{}{"minutes": float64(5 + rng.Intn(30))}
	default:
		return nil
	}
}
