// Package resolver answers location and menu lookups through a fixed chain of
// sources: the in-memory cache, the snapshot store, a live fetch of the listing
// site, the last value the cache ever held, and finally the static catalog.
// Every call returns a usable value; failures are logged and counted, never
// returned.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/japaniel/diningmenu/pkg/cache"
	"github.com/japaniel/diningmenu/pkg/catalog"
	"github.com/japaniel/diningmenu/pkg/config"
	"github.com/japaniel/diningmenu/pkg/extract"
	"github.com/japaniel/diningmenu/pkg/logger"
	"github.com/japaniel/diningmenu/pkg/snapshot"
	"github.com/japaniel/diningmenu/pkg/telemetry"
)

// ErrUnknownLocation means no name is known for a location id, so its menu page
// cannot be addressed.
var ErrUnknownLocation = errors.New("unknown location")

// Tier names the source that answered a resolution.
type Tier string

const (
	TierCached Tier = "CACHED"
	TierStored Tier = "STORED"
	TierLive   Tier = "LIVE"
	TierStale  Tier = "STALE_FALLBACK"
	TierStatic Tier = "STATIC_FALLBACK"
)

const (
	kindLocations = "locations"
	kindMenuItems = "menuItems"

	locationsKey = "locations"
)

func menuKey(locationID string) string { return "menuItems:" + locationID }

// Fetcher retrieves a remote document in one attempt.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// Store persists resolved catalogs.
type Store interface {
	SaveLocations(ctx context.Context, locs []catalog.DiningLocation) error
	LoadLocations(ctx context.Context) ([]catalog.DiningLocation, bool)
	SaveMenuItems(ctx context.Context, locationID string, items []catalog.MenuItem) error
	LoadMenuItems(ctx context.Context, locationID string) ([]catalog.MenuItem, bool)
	RecordScrape(ctx context.Context, kind snapshot.Kind, locationID string) error
	LastScrape(ctx context.Context, kind snapshot.Kind, locationID string) (time.Time, bool)
}

var _ Store = (*snapshot.Store)(nil)

// resolution is the internal outcome of one lookup. Err carries the failure
// that pushed the lookup past the live tier, if any.
type resolution[T any] struct {
	Value T
	Tier  Tier
	Err   error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithTelemetry sets the metrics and tracing sink.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(r *Resolver) { r.tel = t }
}

// WithCaches injects the caches, replacing the ones built from the config.
func WithCaches(locations *cache.Cache[[]catalog.DiningLocation], menus *cache.Cache[[]catalog.MenuItem]) Option {
	return func(r *Resolver) {
		r.locations = locations
		r.menus = menus
	}
}

// Resolver is safe for concurrent use.
type Resolver struct {
	fetcher Fetcher
	store   Store

	locations *cache.Cache[[]catalog.DiningLocation]
	menus     *cache.Cache[[]catalog.MenuItem]

	baseURL          string
	siteName         string
	locationsTimeout time.Duration
	menuTimeout      time.Duration
	singleFlight     bool

	group singleflight.Group
	log   *zap.SugaredLogger
	tel   *telemetry.Telemetry
}

// New creates a Resolver.
func New(cfg *config.Config, fetcher Fetcher, store Store, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:          fetcher,
		store:            store,
		baseURL:          cfg.BaseURL,
		siteName:         cfg.SiteName,
		locationsTimeout: cfg.LocationsTimeout,
		menuTimeout:      cfg.MenuTimeout,
		singleFlight:     cfg.SingleFlight,
		log:              logger.GetLogger("resolver"),
		tel:              telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.locations == nil {
		r.locations = cache.New(
			cache.WithTTL[[]catalog.DiningLocation](cfg.CacheTTL),
			cache.WithClone(catalog.CloneLocations),
		)
	}
	if r.menus == nil {
		r.menus = cache.New(
			cache.WithTTL[[]catalog.MenuItem](cfg.CacheTTL),
			cache.WithClone(catalog.CloneMenuItems),
		)
	}
	return r
}

// Locations returns the dining locations. force skips the cache and the
// snapshot store and goes straight to the live site.
func (r *Resolver) Locations(ctx context.Context, force bool) []catalog.DiningLocation {
	locs, _ := r.ResolveLocations(ctx, force)
	return locs
}

// ResolveLocations is Locations that also reports which tier answered.
func (r *Resolver) ResolveLocations(ctx context.Context, force bool) ([]catalog.DiningLocation, Tier) {
	res := r.resolveLocations(ctx, force)
	r.report(ctx, kindLocations, "", res.Tier, len(res.Value), res.Err)
	return res.Value, res.Tier
}

// MenuItems returns the menu for locationID, looking up the location's name
// from known locations.
func (r *Resolver) MenuItems(ctx context.Context, locationID string, force bool) []catalog.MenuItem {
	return r.MenuItemsFor(ctx, locationID, "", force)
}

// MenuItemsFor is MenuItems with an explicit location name for the menu page
// address. An empty name is looked up.
func (r *Resolver) MenuItemsFor(ctx context.Context, locationID, locationName string, force bool) []catalog.MenuItem {
	items, _ := r.ResolveMenu(ctx, locationID, locationName, force)
	return items
}

// ResolveMenu is MenuItemsFor that also reports which tier answered.
func (r *Resolver) ResolveMenu(ctx context.Context, locationID, locationName string, force bool) ([]catalog.MenuItem, Tier) {
	res := r.resolveMenu(ctx, locationID, locationName, force)
	r.report(ctx, kindMenuItems, locationID, res.Tier, len(res.Value), res.Err)
	return res.Value, res.Tier
}

// Fallback reports whether the tier means the live source could not be used.
func (t Tier) Fallback() bool { return t == TierStale || t == TierStatic }

// LastRefreshed reports when kind (and locationID, for menus) was last resolved live.
func (r *Resolver) LastRefreshed(ctx context.Context, kind snapshot.Kind, locationID string) (time.Time, bool) {
	return r.store.LastScrape(ctx, kind, locationID)
}

// CacheStats reports the live entries of both caches.
func (r *Resolver) CacheStats() (locations, menus cache.Stats) {
	return r.locations.Stats(), r.menus.Stats()
}

func (r *Resolver) report(ctx context.Context, kind, locationID string, tier Tier, n int, err error) {
	r.tel.RecordResolution(ctx, kind, string(tier))
	if err != nil {
		r.log.Warnw("live resolution failed, serving fallback",
			"kind", kind, "location", locationID, "tier", tier, "count", n, "error", err)
		return
	}
	r.log.Debugw("resolved", "kind", kind, "location", locationID, "tier", tier, "count", n)
}

func (r *Resolver) resolveLocations(ctx context.Context, force bool) resolution[[]catalog.DiningLocation] {
	if !force {
		if v, ok := r.locations.Get(locationsKey); ok && len(v) > 0 {
			return resolution[[]catalog.DiningLocation]{Value: v, Tier: TierCached}
		}
		if v, ok := r.store.LoadLocations(ctx); ok && len(v) > 0 {
			r.locations.Set(locationsKey, v)
			return resolution[[]catalog.DiningLocation]{Value: v, Tier: TierStored}
		}
	}

	v, err := shared(ctx, r, locationsKey, r.liveLocations)
	if err == nil {
		return resolution[[]catalog.DiningLocation]{Value: catalog.CloneLocations(v), Tier: TierLive}
	}
	if v, ok := r.locations.Stale(locationsKey); ok && len(v) > 0 {
		return resolution[[]catalog.DiningLocation]{Value: v, Tier: TierStale, Err: err}
	}
	return resolution[[]catalog.DiningLocation]{
		Value: catalog.FallbackLocations(r.baseURL, r.siteName),
		Tier:  TierStatic,
		Err:   err,
	}
}

func (r *Resolver) resolveMenu(ctx context.Context, locationID, locationName string, force bool) resolution[[]catalog.MenuItem] {
	if locationID == "" {
		return resolution[[]catalog.MenuItem]{Value: []catalog.MenuItem{}, Tier: TierStatic}
	}
	key := menuKey(locationID)

	if !force {
		if v, ok := r.menus.Get(key); ok && len(v) > 0 {
			return resolution[[]catalog.MenuItem]{Value: v, Tier: TierCached}
		}
		if v, ok := r.store.LoadMenuItems(ctx, locationID); ok && len(v) > 0 {
			r.menus.Set(key, v)
			return resolution[[]catalog.MenuItem]{Value: v, Tier: TierStored}
		}
	}

	v, err := shared(ctx, r, key, func(ctx context.Context) ([]catalog.MenuItem, error) {
		return r.liveMenu(ctx, locationID, locationName)
	})
	if err == nil {
		return resolution[[]catalog.MenuItem]{Value: catalog.CloneMenuItems(v), Tier: TierLive}
	}
	if v, ok := r.menus.Stale(key); ok && len(v) > 0 {
		return resolution[[]catalog.MenuItem]{Value: v, Tier: TierStale, Err: err}
	}
	return resolution[[]catalog.MenuItem]{Value: catalog.FallbackMenu(locationID), Tier: TierStatic, Err: err}
}

// shared runs fn once per key among concurrent callers when single-flight is
// enabled. The shared run is detached from any one caller's cancellation; a
// caller whose context ends stops waiting.
func shared[T any](ctx context.Context, r *Resolver, key string, fn func(context.Context) (T, error)) (T, error) {
	if !r.singleFlight {
		return fn(ctx)
	}
	ch := r.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (r *Resolver) liveLocations(ctx context.Context) ([]catalog.DiningLocation, error) {
	ctx, span := r.tel.StartSpan(ctx, "resolver.live_locations")
	defer span.End()

	body, err := r.fetch(ctx, kindLocations, r.baseURL, r.locationsTimeout)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	doc, err := extract.Parse(body)
	if err != nil {
		return nil, err
	}
	locs, err := extract.Locations(doc, catalog.FallbackLocations(r.baseURL, r.siteName), func(id, name string) string {
		return catalog.MenuURL(r.baseURL, r.siteName, id, name)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("extract locations: %w", err)
	}
	r.tel.AddEntities(ctx, kindLocations, len(locs))
	span.SetAttributes(attribute.Int("entities", len(locs)))

	r.locations.Set(locationsKey, locs)
	if err := r.store.SaveLocations(ctx, locs); err != nil {
		r.log.Warnw("could not persist locations", "error", err)
	}
	if err := r.store.RecordScrape(ctx, snapshot.KindLocations, ""); err != nil {
		r.log.Warnw("could not record locations scrape", "error", err)
	}
	r.log.Infow("resolved locations live", "count", len(locs))
	return locs, nil
}

func (r *Resolver) liveMenu(ctx context.Context, locationID, locationName string) ([]catalog.MenuItem, error) {
	ctx, span := r.tel.StartSpan(ctx, "resolver.live_menu")
	defer span.End()
	span.SetAttributes(attribute.String("location", locationID))

	if locationName == "" {
		locationName = r.locationName(ctx, locationID)
	}
	if locationName == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLocation, locationID)
	}

	url := catalog.MenuURL(r.baseURL, r.siteName, locationID, locationName)
	body, err := r.fetch(ctx, kindMenuItems, url, r.menuTimeout)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	doc, err := extract.Parse(body)
	if err != nil {
		return nil, err
	}
	items, err := extract.MenuItems(doc, locationID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("extract menu %s: %w", locationID, err)
	}
	r.tel.AddEntities(ctx, kindMenuItems, len(items))
	span.SetAttributes(attribute.Int("entities", len(items)))

	r.menus.Set(menuKey(locationID), items)
	if err := r.store.SaveMenuItems(ctx, locationID, items); err != nil {
		r.log.Warnw("could not persist menu items", "location", locationID, "error", err)
	}
	if err := r.store.RecordScrape(ctx, snapshot.KindMenuItems, locationID); err != nil {
		r.log.Warnw("could not record menu scrape", "location", locationID, "error", err)
	}
	r.log.Infow("resolved menu live", "location", locationID, "count", len(items))
	return items, nil
}

// locationName finds the display name the menu page is addressed by: cached
// locations first, then stored ones, then the static catalog.
func (r *Resolver) locationName(ctx context.Context, locationID string) string {
	if locs, ok := r.locations.Stale(locationsKey); ok {
		if name := nameIn(locs, locationID); name != "" {
			return name
		}
	}
	if locs, ok := r.store.LoadLocations(ctx); ok {
		if name := nameIn(locs, locationID); name != "" {
			return name
		}
	}
	name, _, _ := catalog.Lookup(locationID)
	return name
}

func nameIn(locs []catalog.DiningLocation, id string) string {
	for _, l := range locs {
		if l.ID == id {
			return l.LocationName
		}
	}
	return ""
}

func (r *Resolver) fetch(ctx context.Context, kind, url string, timeout time.Duration) ([]byte, error) {
	start := time.Now()
	body, err := r.fetcher.Fetch(ctx, url, timeout)
	r.tel.RecordFetch(ctx, kind, time.Since(start), err)
	return body, err
}
