package refresh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/japaniel/diningmenu/pkg/cache"
	"github.com/japaniel/diningmenu/pkg/catalog"
	"github.com/japaniel/diningmenu/pkg/config"
	"github.com/japaniel/diningmenu/pkg/resolver"
)

type fakeResolver struct {
	mu        sync.Mutex
	locTier   resolver.Tier
	menuTiers map[string]resolver.Tier
	forced    []bool
	menuCalls []string
	names     map[string]string
	onMenu    func()
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{locTier: resolver.TierLive, menuTiers: map[string]resolver.Tier{}, names: map[string]string{}}
}

func (f *fakeResolver) ResolveLocations(_ context.Context, force bool) ([]catalog.DiningLocation, resolver.Tier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced = append(f.forced, force)
	return []catalog.DiningLocation{
		{ID: "40", LocationName: "College Nine"},
		{ID: "05", LocationName: "Cowell"},
		{ID: "50", LocationName: "Porter Market"},
	}, f.locTier
}

func (f *fakeResolver) ResolveMenu(_ context.Context, id, name string, force bool) ([]catalog.MenuItem, resolver.Tier) {
	f.mu.Lock()
	f.forced = append(f.forced, force)
	f.menuCalls = append(f.menuCalls, id)
	f.names[id] = name
	tier, ok := f.menuTiers[id]
	onMenu := f.onMenu
	f.mu.Unlock()
	if onMenu != nil {
		onMenu()
	}
	if !ok {
		tier = resolver.TierLive
	}
	return catalog.GenericMenu(id), tier
}

func (f *fakeResolver) CacheStats() (cache.Stats, cache.Stats) {
	return cache.Stats{Size: 1, Keys: []string{"locations"}}, cache.Stats{}
}

func (f *fakeResolver) runs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.menuCalls {
		if id == "40" {
			n++
		}
	}
	return n
}

func TestRunRefreshesEveryMenu(t *testing.T) {
	res := newFakeResolver()
	res.menuTiers["05"] = resolver.TierStale
	core, logs := observer.New(zapcore.InfoLevel)
	r := NewRunner(res, 2, 0, WithLogger(zap.New(core).Sugar()))

	sum, err := r.Run(context.Background(), "manual")
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, "manual", sum.Trigger)
	assert.Equal(t, 3, sum.Locations)
	assert.Equal(t, 15, sum.Items)
	assert.Equal(t, []string{"05"}, sum.Failed)

	assert.ElementsMatch(t, []string{"40", "05", "50"}, res.menuCalls)
	assert.Equal(t, "Porter Market", res.names["50"])
	for _, f := range res.forced {
		assert.True(t, f, "refresh always bypasses cache and store")
	}

	finished := logs.FilterMessage("refresh finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, sum.RunID, finished[0].ContextMap()["run"])
	assert.Equal(t, 1, logs.FilterMessage("menu refresh fell back").Len())
}

func TestRunSpacesFetches(t *testing.T) {
	res := newFakeResolver()
	r := NewRunner(res, 1, 30*time.Millisecond, WithLogger(zap.NewNop().Sugar()))

	start := time.Now()
	_, err := r.Run(context.Background(), "manual")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestRunStopsOnCancel(t *testing.T) {
	res := newFakeResolver()
	ctx, cancel := context.WithCancel(context.Background())
	res.onMenu = cancel
	r := NewRunner(res, 1, 20*time.Millisecond, WithLogger(zap.NewNop().Sugar()))

	sum, err := r.Run(ctx, "manual")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, len(res.menuCalls), 3)
	assert.Equal(t, 3, sum.Locations)
}

func scheduler(t *testing.T, res *fakeResolver, cfg config.ScheduleConfig, opts ...SchedulerOption) *Scheduler {
	t.Helper()
	r := NewRunner(res, 1, 0, WithLogger(zap.NewNop().Sugar()))
	opts = append([]SchedulerOption{WithSchedulerLogger(zap.NewNop().Sugar())}, opts...)
	s, err := NewScheduler(r, cfg, opts...)
	require.NoError(t, err)
	return s
}

func TestNextDaily(t *testing.T) {
	cfg := config.Default().Schedule
	cfg.TimeHHMM = "06:30"
	s := scheduler(t, newFakeResolver(), cfg)
	la := cfg.Location()

	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 5, 1, 5, 0, 0, 0, la), time.Date(2024, 5, 1, 6, 30, 0, 0, la)},
		{time.Date(2024, 5, 1, 6, 30, 0, 0, la), time.Date(2024, 5, 2, 6, 30, 0, 0, la)},
		{time.Date(2024, 5, 1, 23, 59, 0, 0, la), time.Date(2024, 5, 2, 6, 30, 0, 0, la)},
		{time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 6, 30, 0, 0, la)},
		// spring-forward day is 23 hours long
		{time.Date(2024, 3, 9, 7, 0, 0, 0, la), time.Date(2024, 3, 10, 6, 30, 0, 0, la)},
	}
	for _, tt := range tests {
		assert.True(t, tt.want.Equal(s.Next(tt.now)), "now %s: got %s want %s", tt.now, s.Next(tt.now), tt.want)
	}
}

func TestNextInterval(t *testing.T) {
	cfg := config.Default().Schedule
	cfg.Mode = config.ModeInterval
	cfg.Interval = 90 * time.Minute
	s := scheduler(t, newFakeResolver(), cfg)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(90*time.Minute), s.Next(now))
}

func TestNewSchedulerRejectsBadConfig(t *testing.T) {
	r := NewRunner(newFakeResolver(), 1, 0)
	for _, mutate := range []func(*config.ScheduleConfig){
		func(c *config.ScheduleConfig) { c.TimeHHMM = "25:00" },
		func(c *config.ScheduleConfig) { c.Mode = config.ModeInterval; c.Interval = 0 },
		func(c *config.ScheduleConfig) { c.Mode = "hourly" },
	} {
		cfg := config.Default().Schedule
		mutate(&cfg)
		_, err := NewScheduler(r, cfg)
		assert.Error(t, err)
	}
}

func TestStartOnceRunsOnce(t *testing.T) {
	res := newFakeResolver()
	cfg := config.Default().Schedule
	cfg.Mode = config.ModeOnce
	s := scheduler(t, res, cfg)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, res.runs())
}

func TestStartRepeatsUntilCanceled(t *testing.T) {
	res := newFakeResolver()
	cfg := config.Default().Schedule
	cfg.Mode = config.ModeInterval
	cfg.Interval = time.Hour
	cfg.RunAtStart = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var waits []time.Duration
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	after := func(d time.Duration) <-chan time.Time {
		mu.Lock()
		defer mu.Unlock()
		waits = append(waits, d)
		ch := make(chan time.Time, 1)
		if len(waits) <= 2 {
			ch <- now
		} else {
			cancel()
		}
		return ch
	}
	s := scheduler(t, res, cfg, WithClock(func() time.Time { return now }, after))

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	// one run at start plus one per fired timer
	assert.Equal(t, 3, res.runs())
	assert.Equal(t, []time.Duration{time.Hour, time.Hour, time.Hour}, waits)
}
