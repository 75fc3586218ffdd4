package menu

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL = 5 * time.Minute

	fetchTimeout = 10 * time.Second
	// An unknown item id refetches the menu only when the snapshot is at
	// least this old.
	missRefetchAfter = 30 * time.Second
)

type snapshot struct {
	items      []Item
	byID       map[string]Item
	categories []Category
	fetchedAt  time.Time
}

// Catalog caches each restaurant's menu for a fixed TTL. A background loop
// refreshes every cached restaurant once per TTL by swapping in a whole new
// snapshot; readers never see a partial catalog.
type Catalog struct {
	source Source
	ttl    time.Duration
	logger aqm.Logger
	now    func() time.Time

	mu        sync.RWMutex
	snapshots map[string]*snapshot
	group     singleflight.Group

	cancel context.CancelFunc
	done   chan struct{}
}

func NewCatalog(source Source, ttl time.Duration, logger aqm.Logger) *Catalog {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{
		source:    source,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
		snapshots: make(map[string]*snapshot),
	}
}

// Items lists a restaurant's items, optionally limited to one category.
func (c *Catalog) Items(ctx context.Context, restaurantID, categoryID string) ([]Item, error) {
	snap, err := c.get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if categoryID == "" {
		return append([]Item(nil), snap.items...), nil
	}

	var out []Item
	for _, it := range snap.items {
		if it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *Catalog) Categories(ctx context.Context, restaurantID string) ([]Category, error) {
	snap, err := c.get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	return append([]Category(nil), snap.categories...), nil
}

// Item looks up one active item. A miss on a snapshot older than
// missRefetchAfter triggers one refetch so items added since the last
// refresh are found.
func (c *Catalog) Item(ctx context.Context, restaurantID, itemID string) (Item, error) {
	snap, err := c.get(ctx, restaurantID)
	if err != nil {
		return Item{}, err
	}

	it, ok := snap.byID[itemID]
	if !ok && c.now().Sub(snap.fetchedAt) >= missRefetchAfter {
		snap, err = c.load(ctx, restaurantID)
		if err != nil {
			return Item{}, err
		}
		it, ok = snap.byID[itemID]
	}
	if !ok || !it.Active {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

// Invalidate drops a restaurant's cached catalog.
func (c *Catalog) Invalidate(restaurantID string) {
	c.mu.Lock()
	delete(c.snapshots, restaurantID)
	c.mu.Unlock()
	c.logger.Debug("menu catalog invalidated", "restaurant_id", restaurantID)
}

// Refresh reloads every cached restaurant. A failed reload keeps the
// previous snapshot.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.RLock()
	ids := make([]string, 0, len(c.snapshots))
	for id := range c.snapshots {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := c.load(ctx, id); err != nil {
				c.logger.Info("menu refresh failed, keeping cached catalog", "restaurant_id", id, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Start launches the background refresh loop.
func (c *Catalog) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.ttl)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				_ = c.Refresh(loopCtx)
			}
		}
	}()

	c.logger.Info("menu catalog refresh started", "interval", c.ttl.String())
	return nil
}

func (c *Catalog) Stop(ctx context.Context) error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (c *Catalog) get(ctx context.Context, restaurantID string) (*snapshot, error) {
	c.mu.RLock()
	snap, ok := c.snapshots[restaurantID]
	c.mu.RUnlock()

	if ok && c.now().Sub(snap.fetchedAt) < c.ttl {
		return snap, nil
	}
	return c.load(ctx, restaurantID)
}

// load fetches and installs a fresh snapshot. Concurrent loads for the same
// restaurant share one fetch, which is detached from the caller's
// cancellation; a cancelled caller stops waiting but the others still get
// the result.
func (c *Catalog) load(ctx context.Context, restaurantID string) (*snapshot, error) {
	ch := c.group.DoChan(restaurantID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		items, err := c.source.Items(fetchCtx, restaurantID)
		if err != nil {
			return nil, err
		}
		categories, err := c.source.Categories(fetchCtx, restaurantID)
		if err != nil {
			return nil, err
		}

		sort.SliceStable(categories, func(i, j int) bool {
			return categories[i].Position < categories[j].Position
		})

		snap := &snapshot{
			items:      items,
			byID:       make(map[string]Item, len(items)),
			categories: categories,
			fetchedAt:  c.now(),
		}
		for _, it := range items {
			snap.byID[it.ID] = it
		}

		c.mu.Lock()
		c.snapshots[restaurantID] = snap
		c.mu.Unlock()
		return snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
