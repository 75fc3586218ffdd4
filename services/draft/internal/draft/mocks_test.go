package draft

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/tablepos/services/draft/internal/kot"
	"github.com/appetiteclub/tablepos/services/draft/internal/menu"
	"github.com/appetiteclub/tablepos/services/draft/internal/printing"
	"github.com/shopspring/decimal"
)

type tableKey struct {
	restaurantID string
	tableID      string
}

// MockStore is an in-memory Store keyed by (restaurant, table).
type MockStore struct {
	mu              sync.Mutex
	drafts          map[tableKey]*Draft
	SaveCalls       int
	MarkCalls       int
	SaveFunc        func(ctx context.Context, d *Draft) (*Draft, error)
	LoadFunc        func(ctx context.Context, key Key) (*Draft, error)
	ClearFunc       func(ctx context.Context, key Key) error
	MarkPrintedFunc func(ctx context.Context, key Key, kotIDs []string) error
}

func NewMockStore() *MockStore {
	return &MockStore{drafts: make(map[tableKey]*Draft)}
}

func (m *MockStore) Save(ctx context.Context, d *Draft) (*Draft, error) {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[tableKey{d.RestaurantID, d.TableID}] = copyDraft(d)
	return copyDraft(d), nil
}

func (m *MockStore) Load(ctx context.Context, key Key) (*Draft, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[tableKey{key.RestaurantID, key.TableID}]
	if !ok {
		return nil, nil
	}
	return copyDraft(d), nil
}

func (m *MockStore) Clear(ctx context.Context, key Key) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, tableKey{key.RestaurantID, key.TableID})
	return nil
}

func (m *MockStore) MarkPrinted(ctx context.Context, key Key, kotIDs []string) error {
	m.mu.Lock()
	m.MarkCalls++
	m.mu.Unlock()
	if m.MarkPrintedFunc != nil {
		return m.MarkPrintedFunc(ctx, key, kotIDs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[tableKey{key.RestaurantID, key.TableID}]
	if !ok {
		return ErrDraftNotFound
	}
	want := make(map[string]bool, len(kotIDs))
	for _, id := range kotIDs {
		want[id] = true
	}
	for i := range d.KotHistory {
		if want[d.KotHistory[i].ID] {
			d.KotHistory[i].Printed = true
		}
	}
	return nil
}

func (m *MockStore) Put(d *Draft) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[tableKey{d.RestaurantID, d.TableID}] = copyDraft(d)
}

func (m *MockStore) Get(restaurantID, tableID string) *Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[tableKey{restaurantID, tableID}]
	if !ok {
		return nil
	}
	return copyDraft(d)
}

func copyDraft(d *Draft) *Draft {
	c := *d
	c.CartItems = append([]StoredLine(nil), d.CartItems...)
	c.KotHistory = make([]kot.Record, len(d.KotHistory))
	for i, r := range d.KotHistory {
		r.Items = append([]kot.DeltaItem(nil), r.Items...)
		c.KotHistory[i] = r
	}
	return &c
}

// MockCatalog serves a fixed set of menu items.
type MockCatalog struct {
	items          map[string]menu.Item
	categories     []menu.Category
	ItemFunc       func(ctx context.Context, restaurantID, itemID string) (menu.Item, error)
	ItemsFunc      func(ctx context.Context, restaurantID, categoryID string) ([]menu.Item, error)
	CategoriesFunc func(ctx context.Context, restaurantID string) ([]menu.Category, error)
}

func NewMockCatalog(items ...menu.Item) *MockCatalog {
	m := &MockCatalog{items: make(map[string]menu.Item)}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *MockCatalog) Item(ctx context.Context, restaurantID, itemID string) (menu.Item, error) {
	if m.ItemFunc != nil {
		return m.ItemFunc(ctx, restaurantID, itemID)
	}
	it, ok := m.items[itemID]
	if !ok {
		return menu.Item{}, menu.ErrItemNotFound
	}
	return it, nil
}

func (m *MockCatalog) Items(ctx context.Context, restaurantID, categoryID string) ([]menu.Item, error) {
	if m.ItemsFunc != nil {
		return m.ItemsFunc(ctx, restaurantID, categoryID)
	}
	var out []menu.Item
	for _, it := range m.items {
		if categoryID == "" || it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *MockCatalog) Categories(ctx context.Context, restaurantID string) ([]menu.Category, error) {
	if m.CategoriesFunc != nil {
		return m.CategoriesFunc(ctx, restaurantID)
	}
	return m.categories, nil
}

// MockPrinter records print jobs.
type MockPrinter struct {
	mu        sync.Mutex
	Jobs      []printing.Job
	PrintFunc func(ctx context.Context, job printing.Job) error
}

func (m *MockPrinter) Print(ctx context.Context, job printing.Job) error {
	if m.PrintFunc != nil {
		return m.PrintFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs = append(m.Jobs, job)
	return nil
}

// MockObserver records ledger notifications.
type MockObserver struct {
	Created []kot.Record
	Numbers []int
	Printed [][]string
	Cleared int
}

func (m *MockObserver) KotCreated(ctx context.Context, ref Ref, rec kot.Record, number int) {
	m.Created = append(m.Created, rec)
	m.Numbers = append(m.Numbers, number)
}

func (m *MockObserver) KotsPrinted(ctx context.Context, ref Ref, kotIDs []string) {
	m.Printed = append(m.Printed, kotIDs)
}

func (m *MockObserver) DraftCleared(ctx context.Context, ref Ref) {
	m.Cleared++
}

// MockPublisher is a test mock for events.Publisher
type MockPublisher struct {
	mu          sync.Mutex
	Published   []publishedMessage
	PublishFunc func(ctx context.Context, topic string, data []byte) error
}

type publishedMessage struct {
	Topic string
	Data  []byte
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, publishedMessage{Topic: topic, Data: data})
	return nil
}

// MockSubscriptionRepository is a test mock for SubscriptionRepository
type MockSubscriptionRepository struct {
	subs     map[string]*Subscription
	FindFunc func(ctx context.Context, restaurantID string) (*Subscription, error)
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{subs: make(map[string]*Subscription)}
}

func (m *MockSubscriptionRepository) Find(ctx context.Context, restaurantID string) (*Subscription, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, restaurantID)
	}
	return m.subs[restaurantID], nil
}

var (
	testNow   = time.Date(2026, 10, 15, 19, 0, 0, 0, time.UTC)
	testKey   = Key{RestaurantID: "r1", TableID: "t1", UserID: "u1"}
	testActor = Actor{UserID: "u1", UserName: "Asha"}
	otherUser = Actor{UserID: "u2", UserName: "Ravi"}
)

func testMenu() *MockCatalog {
	return NewMockCatalog(
		menu.Item{ID: "A", Name: "Paneer Tikka", Price: decimal.RequireFromString("249.50"), Active: true},
		menu.Item{ID: "B", Name: "Butter Naan", Price: decimal.NewFromInt(40), Active: true},
		menu.Item{ID: "C", Name: "Masala Chai", Price: decimal.NewFromInt(30), Active: true},
	)
}

func sequentialIDs() kot.IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("kot-%d", n)
	}
}

type testEnv struct {
	store    *MockStore
	catalog  *MockCatalog
	printer  *MockPrinter
	observer *MockObserver
	deps     SessionDeps
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:    NewMockStore(),
		catalog:  testMenu(),
		printer:  &MockPrinter{},
		observer: &MockObserver{},
	}
	env.deps = SessionDeps{
		Store:    env.store,
		Catalog:  env.catalog,
		Printer:  env.printer,
		Observer: env.observer,
		NewID:    sequentialIDs(),
		Now:      func() time.Time { return testNow },
	}
	return env
}

func (e *testEnv) session() *Session {
	return NewSession(testKey, "T1", e.deps)
}
