// Package snapshot persists resolved catalogs so they survive a restart, along
// with a ledger of the last successful live resolution per key.
//
// Three documents are kept: "locations", "menu-items" (keyed by location id) and
// "last-scrape". Every write replaces a whole document.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/diningmenu/pkg/catalog"
	"github.com/japaniel/diningmenu/pkg/logger"
)

// ErrNotFound is returned by a Backend for a document that does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Document names.
const (
	docLocations  = "locations"
	docMenuItems  = "menu-items"
	docLastScrape = "last-scrape"
)

// Kind identifies what a scrape ledger entry describes.
type Kind string

const (
	KindLocations Kind = "locations"
	KindMenuItems Kind = "menuItems"
)

type locationsDoc struct {
	Locations   []catalog.DiningLocation `json:"locations"`
	LastUpdated string                   `json:"lastUpdated"`
	Timestamp   int64                    `json:"timestamp"`
}

type menuEntry struct {
	MenuItems   []catalog.MenuItem `json:"menuItems"`
	LastUpdated string             `json:"lastUpdated"`
	Timestamp   int64              `json:"timestamp"`
}

type scrapeMark struct {
	Timestamp int64  `json:"timestamp"`
	Date      string `json:"date"`
}

type ledgerDoc struct {
	Locations *scrapeMark           `json:"locations,omitempty"`
	MenuItems map[string]scrapeMark `json:"menuItems,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for swallowed I/O failures.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock replaces time.Now for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store reads and writes snapshot documents through a Backend.
//
// Read failures are logged and reported as not found. Write failures are
// logged and returned. Read-modify-write of one document is serialized within
// the process; separate processes sharing a backend race last-writer-wins.
type Store struct {
	backend Backend
	log     *zap.SugaredLogger
	now     func() time.Time

	menuMu   sync.Mutex
	ledgerMu sync.Mutex
}

// New creates a Store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     logger.GetLogger("snapshot"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) stamp() (string, int64) {
	t := s.now().UTC()
	return t.Format("2006-01-02T15:04:05.000Z"), t.UnixMilli()
}

// SaveLocations replaces the locations document.
func (s *Store) SaveLocations(ctx context.Context, locs []catalog.DiningLocation) error {
	if locs == nil {
		locs = []catalog.DiningLocation{}
	}
	date, ts := s.stamp()
	if err := s.write(ctx, docLocations, locationsDoc{Locations: locs, LastUpdated: date, Timestamp: ts}); err != nil {
		return err
	}
	s.log.Debugw("saved locations", "count", len(locs))
	return nil
}

// LoadLocations returns the stored locations. found is true for a stored empty list.
func (s *Store) LoadLocations(ctx context.Context) (locs []catalog.DiningLocation, found bool) {
	var doc locationsDoc
	if !s.read(ctx, docLocations, &doc) {
		return nil, false
	}
	if doc.Locations == nil {
		doc.Locations = []catalog.DiningLocation{}
	}
	return doc.Locations, true
}

// SaveMenuItems replaces the entry for locationID, keeping every other location's entry.
func (s *Store) SaveMenuItems(ctx context.Context, locationID string, items []catalog.MenuItem) error {
	if locationID == "" {
		return fmt.Errorf("save menu items: empty location id")
	}
	if items == nil {
		items = []catalog.MenuItem{}
	}

	s.menuMu.Lock()
	defer s.menuMu.Unlock()

	all := map[string]menuEntry{}
	if !s.read(ctx, docMenuItems, &all) || all == nil {
		all = map[string]menuEntry{}
	}
	date, ts := s.stamp()
	all[locationID] = menuEntry{MenuItems: items, LastUpdated: date, Timestamp: ts}
	if err := s.write(ctx, docMenuItems, all); err != nil {
		return err
	}
	s.log.Debugw("saved menu items", "location", locationID, "count", len(items))
	return nil
}

// LoadMenuItems returns the stored items for locationID.
func (s *Store) LoadMenuItems(ctx context.Context, locationID string) (items []catalog.MenuItem, found bool) {
	var all map[string]menuEntry
	if !s.read(ctx, docMenuItems, &all) {
		return nil, false
	}
	entry, ok := all[locationID]
	if !ok || entry.MenuItems == nil {
		return nil, false
	}
	return entry.MenuItems, true
}

// RecordScrape marks now as the last successful live resolution for kind
// (and locationID, for menu items).
func (s *Store) RecordScrape(ctx context.Context, kind Kind, locationID string) error {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	var ledger ledgerDoc
	if !s.read(ctx, docLastScrape, &ledger) {
		ledger = ledgerDoc{}
	}

	date, ts := s.stamp()
	mark := scrapeMark{Timestamp: ts, Date: date}
	switch kind {
	case KindLocations:
		ledger.Locations = &mark
	case KindMenuItems:
		if locationID == "" {
			return fmt.Errorf("record scrape: menu items need a location id")
		}
		if ledger.MenuItems == nil {
			ledger.MenuItems = map[string]scrapeMark{}
		}
		ledger.MenuItems[locationID] = mark
	default:
		return fmt.Errorf("record scrape: unknown kind %q", kind)
	}
	return s.write(ctx, docLastScrape, ledger)
}

// LastScrape returns when kind (and locationID, for menu items) was last resolved live.
func (s *Store) LastScrape(ctx context.Context, kind Kind, locationID string) (time.Time, bool) {
	var ledger ledgerDoc
	if !s.read(ctx, docLastScrape, &ledger) {
		return time.Time{}, false
	}
	var mark *scrapeMark
	switch kind {
	case KindLocations:
		mark = ledger.Locations
	case KindMenuItems:
		if m, ok := ledger.MenuItems[locationID]; ok {
			mark = &m
		}
	}
	if mark == nil || mark.Timestamp == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(mark.Timestamp), true
}

// Documents returns the sorted names of the documents the backend holds.
func (s *Store) Documents(ctx context.Context) ([]string, error) {
	names, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshot documents: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

// read decodes the named document into v. Any failure is logged and reported as false.
func (s *Store) read(ctx context.Context, name string, v any) bool {
	data, err := s.backend.Read(ctx, name)
	if errors.Is(err, ErrNotFound) {
		s.log.Debugw("no snapshot document", "document", name)
		return false
	}
	if err != nil {
		s.log.Warnw("snapshot read failed", "document", name, "error", err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warnw("snapshot document malformed", "document", name, "error", err)
		return false
	}
	return true
}

func (s *Store) write(ctx context.Context, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.backend.Write(ctx, name, data); err != nil {
		s.log.Warnw("snapshot write failed", "document", name, "error", err)
		return err
	}
	return nil
}
