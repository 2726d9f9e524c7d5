// Package refresh keeps the snapshot store warm: a run force-resolves the
// location list and then every location's menu, and a Scheduler repeats runs
// daily, on an interval, or once.
package refresh

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/japaniel/diningmenu/pkg/cache"
	"github.com/japaniel/diningmenu/pkg/catalog"
	"github.com/japaniel/diningmenu/pkg/logger"
	"github.com/japaniel/diningmenu/pkg/resolver"
	"github.com/japaniel/diningmenu/pkg/telemetry"
)

// Resolver is the part of resolver.Resolver a refresh run drives.
type Resolver interface {
	ResolveLocations(ctx context.Context, force bool) ([]catalog.DiningLocation, resolver.Tier)
	ResolveMenu(ctx context.Context, locationID, locationName string, force bool) ([]catalog.MenuItem, resolver.Tier)
	CacheStats() (locations, menus cache.Stats)
}

var _ Resolver = (*resolver.Resolver)(nil)

// Summary describes one finished run.
type Summary struct {
	RunID     string        `json:"runId"`
	Trigger   string        `json:"trigger"`
	Locations int           `json:"locations"`
	Items     int           `json:"items"`
	Failed    []string      `json:"failed,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Runner) { r.log = log }
}

// WithTelemetry sets the metrics sink.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(r *Runner) { r.tel = t }
}

// Runner performs refresh runs. Runs do not overlap; a run started while
// another is in progress waits for it.
type Runner struct {
	res     Resolver
	workers int
	delay   time.Duration

	mu  sync.Mutex
	log *zap.SugaredLogger
	tel *telemetry.Telemetry
}

// NewRunner creates a Runner that spreads menu fetches over workers goroutines,
// starting at most one fetch per delay.
func NewRunner(res Resolver, workers int, delay time.Duration, opts ...Option) *Runner {
	r := &Runner{
		res:     res,
		workers: workers,
		delay:   delay,
		log:     logger.GetLogger("refresh"),
		tel:     telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run force-refreshes the location list and then each location's menu.
// Locations that can only be served from a fallback are listed in
// Summary.Failed; they never abort the run. The error is non-nil only when ctx
// ended before every menu was attempted.
func (r *Runner) Run(ctx context.Context, trigger string) (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := Summary{RunID: uuid.NewString(), Trigger: trigger}
	log := r.log.With("run", sum.RunID)
	start := time.Now()
	log.Infow("refresh started", "trigger", trigger)

	locs, tier := r.res.ResolveLocations(ctx, true)
	if tier.Fallback() {
		log.Warnw("location list served from fallback", "tier", tier)
	}
	sum.Locations = len(locs)

	limit := rate.Inf
	if r.delay > 0 {
		limit = rate.Every(r.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	var (
		items    atomic.Int64
		failedMu sync.Mutex
	)
	pool := NewWorkerPool(r.workers, len(locs), log)
	pool.Start(ctx)

	var err error
	for _, loc := range locs {
		loc := loc
		err = pool.Submit(ctx, func(ctx context.Context) error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			menu, tier := r.res.ResolveMenu(ctx, loc.ID, loc.LocationName, true)
			items.Add(int64(len(menu)))
			if tier.Fallback() {
				failedMu.Lock()
				sum.Failed = append(sum.Failed, loc.ID)
				failedMu.Unlock()
				log.Warnw("menu refresh fell back", "location", loc.ID, "tier", tier)
			}
			return nil
		})
		if err != nil {
			break
		}
	}
	pool.Close()

	if err == nil {
		err = ctx.Err()
	}
	slices.Sort(sum.Failed)
	sum.Items = int(items.Load())
	sum.Duration = time.Since(start)
	r.tel.IncrementRefreshRuns(ctx, trigger)

	locStats, menuStats := r.res.CacheStats()
	log.Infow("refresh finished",
		"locations", sum.Locations,
		"items", sum.Items,
		"failed", len(sum.Failed),
		"duration", sum.Duration,
		"cachedLocations", locStats.Size,
		"cachedMenus", menuStats.Size,
		"error", err,
	)
	return sum, err
}
