package menu

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/shopspring/decimal"
)

type MockSource struct {
	mu             sync.Mutex
	items          map[string][]Item
	categories     map[string][]Category
	itemCalls      int
	ItemsFunc      func(ctx context.Context, restaurantID string) ([]Item, error)
	CategoriesFunc func(ctx context.Context, restaurantID string) ([]Category, error)
}

func NewMockSource() *MockSource {
	return &MockSource{
		items:      make(map[string][]Item),
		categories: make(map[string][]Category),
	}
}

func (m *MockSource) Items(ctx context.Context, restaurantID string) ([]Item, error) {
	m.mu.Lock()
	m.itemCalls++
	m.mu.Unlock()
	if m.ItemsFunc != nil {
		return m.ItemsFunc(ctx, restaurantID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Item(nil), m.items[restaurantID]...), nil
}

func (m *MockSource) Categories(ctx context.Context, restaurantID string) ([]Category, error) {
	if m.CategoriesFunc != nil {
		return m.CategoriesFunc(ctx, restaurantID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Category(nil), m.categories[restaurantID]...), nil
}

func (m *MockSource) SetItems(restaurantID string, items ...Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[restaurantID] = items
}

func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemCalls
}

func newTestCatalog(src Source) (*Catalog, *time.Time) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	c := NewCatalog(src, 5*time.Minute, aqm.NewNoopLogger())
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCatalogCachesWithinTTL(t *testing.T) {
	src := NewMockSource()
	src.SetItems("r1", Item{ID: "i1", Name: "Naan", Price: decimal.NewFromInt(40), Active: true})
	c, now := newTestCatalog(src)
	ctx := context.Background()

	if _, err := c.Items(ctx, "r1", ""); err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	*now = now.Add(4 * time.Minute)
	if _, err := c.Items(ctx, "r1", ""); err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if src.Calls() != 1 {
		t.Errorf("source called %d times, want 1", src.Calls())
	}

	*now = now.Add(2 * time.Minute)
	if _, err := c.Items(ctx, "r1", ""); err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if src.Calls() != 2 {
		t.Errorf("source called %d times after expiry, want 2", src.Calls())
	}
}

func TestCatalogItemsByCategory(t *testing.T) {
	src := NewMockSource()
	src.SetItems("r1",
		Item{ID: "i1", CategoryID: "breads", Active: true},
		Item{ID: "i2", CategoryID: "curries", Active: true},
		Item{ID: "i3", CategoryID: "breads", Active: true},
	)
	c, _ := newTestCatalog(src)

	got, err := c.Items(context.Background(), "r1", "breads")
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Items(breads) = %d items, want 2", len(got))
	}
}

func TestCatalogCategoriesSorted(t *testing.T) {
	src := NewMockSource()
	src.categories["r1"] = []Category{{ID: "c2", Position: 2}, {ID: "c1", Position: 1}}
	c, _ := newTestCatalog(src)

	got, err := c.Categories(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" {
		t.Errorf("Categories() = %+v, want c1 first", got)
	}
}

func TestCatalogItem(t *testing.T) {
	tests := []struct {
		name    string
		itemID  string
		wantErr error
	}{
		{name: "found", itemID: "i1"},
		{name: "inactive", itemID: "i2", wantErr: ErrItemNotFound},
		{name: "missing", itemID: "nope", wantErr: ErrItemNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewMockSource()
			src.SetItems("r1",
				Item{ID: "i1", Name: "Naan", Active: true},
				Item{ID: "i2", Name: "Retired", Active: false},
			)
			c, _ := newTestCatalog(src)

			it, err := c.Item(context.Background(), "r1", tt.itemID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Item() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && it.Name != "Naan" {
				t.Errorf("Item() = %+v", it)
			}
		})
	}
}

func TestCatalogItemMissRefetches(t *testing.T) {
	src := NewMockSource()
	src.SetItems("r1", Item{ID: "i1", Active: true})
	c, now := newTestCatalog(src)
	ctx := context.Background()

	if _, err := c.Items(ctx, "r1", ""); err != nil {
		t.Fatalf("Items() error = %v", err)
	}

	src.SetItems("r1", Item{ID: "i1", Active: true}, Item{ID: "i9", Name: "New", Active: true})
	*now = now.Add(missRefetchAfter)
	it, err := c.Item(ctx, "r1", "i9")
	if err != nil {
		t.Fatalf("Item() error = %v", err)
	}
	if it.Name != "New" {
		t.Errorf("Item() = %+v", it)
	}
}

func TestCatalogItemMissWithinWindow(t *testing.T) {
	src := NewMockSource()
	src.SetItems("r1", Item{ID: "i1", Active: true})
	c, now := newTestCatalog(src)
	ctx := context.Background()

	for _, id := range []string{"x1", "x2", "x3"} {
		if _, err := c.Item(ctx, "r1", id); !errors.Is(err, ErrItemNotFound) {
			t.Fatalf("Item(%s) error = %v, want %v", id, err, ErrItemNotFound)
		}
	}
	if src.Calls() != 1 {
		t.Errorf("source called %d times for unknown ids, want 1", src.Calls())
	}

	*now = now.Add(missRefetchAfter)
	_, _ = c.Item(ctx, "r1", "x4")
	_, _ = c.Item(ctx, "r1", "x5")
	if src.Calls() != 2 {
		t.Errorf("source called %d times after window, want 2", src.Calls())
	}
}

func TestCatalogSharedFetchSurvivesCallerCancel(t *testing.T) {
	src := NewMockSource()
	started := make(chan struct{})
	release := make(chan struct{})
	fetchCtxErr := make(chan error, 1)
	var once sync.Once
	src.ItemsFunc = func(ctx context.Context, restaurantID string) ([]Item, error) {
		once.Do(func() { close(started) })
		<-release
		select {
		case fetchCtxErr <- ctx.Err():
		default:
		}
		return []Item{{ID: "i1", Active: true}}, nil
	}
	c, _ := newTestCatalog(src)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Items(ctx, "r1", "")
		firstErr <- err
	}()
	<-started

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller error = %v, want %v", err, context.Canceled)
	}

	close(release)
	if err := <-fetchCtxErr; err != nil {
		t.Errorf("shared fetch saw context error %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		c.mu.RLock()
		_, ok := c.snapshots["r1"]
		c.mu.RUnlock()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot not installed after the caller was cancelled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := c.Items(context.Background(), "r1", ""); err != nil {
		t.Errorf("Items() error = %v", err)
	}
	if src.Calls() != 1 {
		t.Errorf("source called %d times, want 1", src.Calls())
	}
}

func TestCatalogInvalidate(t *testing.T) {
	src := NewMockSource()
	c, _ := newTestCatalog(src)
	ctx := context.Background()

	_, _ = c.Items(ctx, "r1", "")
	c.Invalidate("r1")
	_, _ = c.Items(ctx, "r1", "")

	if src.Calls() != 2 {
		t.Errorf("source called %d times, want 2", src.Calls())
	}
}

func TestCatalogRefreshKeepsSnapshotOnError(t *testing.T) {
	src := NewMockSource()
	src.SetItems("r1", Item{ID: "i1", Active: true})
	c, _ := newTestCatalog(src)
	ctx := context.Background()

	if _, err := c.Items(ctx, "r1", ""); err != nil {
		t.Fatalf("Items() error = %v", err)
	}

	src.ItemsFunc = func(ctx context.Context, restaurantID string) ([]Item, error) {
		return nil, errors.New("menu service down")
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if _, err := c.Item(ctx, "r1", "i1"); err != nil {
		t.Errorf("Item() after failed refresh error = %v", err)
	}
}

func TestCatalogSourceError(t *testing.T) {
	src := NewMockSource()
	src.ItemsFunc = func(ctx context.Context, restaurantID string) ([]Item, error) {
		return nil, errors.New("boom")
	}
	c, _ := newTestCatalog(src)

	if _, err := c.Items(context.Background(), "r1", ""); err == nil {
		t.Error("Items() should propagate source errors")
	}
}

func TestCatalogStartStop(t *testing.T) {
	c := NewCatalog(NewMockSource(), time.Hour, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestCatalogStopWithoutStart(t *testing.T) {
	c := NewCatalog(NewMockSource(), 0, nil)
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
}
