package order

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"souq-orders/internal/domain"
	"souq-orders/internal/repository/catalog"
	"souq-orders/internal/repository/notification"
	orderrepo "souq-orders/internal/repository/order"
)

// memoryCatalog serves fixed products and variants.
type memoryCatalog struct {
	products map[int64]domain.CatalogItem
	variants map[int64]domain.CatalogItem
}

func (c *memoryCatalog) GetProduct(_ context.Context, id int64) (*domain.CatalogItem, error) {
	item, ok := c.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

func (c *memoryCatalog) GetVariant(_ context.Context, id, parentID int64) (*domain.CatalogItem, error) {
	item, ok := c.variants[id]
	if !ok || item.ProductID != parentID {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

func (c *memoryCatalog) FindActiveVariant(_ context.Context, id int64) (*domain.CatalogItem, error) {
	item, ok := c.variants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

// join fills names like the order_items read query: the parent product name
// plus the variant title, which is the variant display name without the
// "<product> - " prefix. Items without a catalog row keep what they have.
func (c *memoryCatalog) join(items []domain.OrderItem) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		if p, ok := c.products[it.ProductID]; ok {
			it.ProductName = p.DisplayName
			if it.ImageURL == "" {
				it.ImageURL = p.ImageURL
			}
		}
		if it.VariantID != nil {
			if v, ok := c.variants[*it.VariantID]; ok {
				it.VariantTitle = strings.TrimPrefix(v.DisplayName, it.ProductName+" - ")
			}
		}
		out = append(out, it)
	}
	return out
}

type memoryWilayas struct {
	rows []domain.Wilaya
	err  error
}

func (m *memoryWilayas) List(_ context.Context) ([]domain.Wilaya, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func (m *memoryWilayas) GetByName(_ context.Context, name string) (*domain.Wilaya, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, w := range m.rows {
		if w.Name == name {
			return &w, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memoryState struct {
	nextOrderID   int64
	nextItemID    int64
	orders        map[int64]domain.Order
	items         map[int64][]domain.OrderItem
	notifications []domain.Notification
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		nextOrderID:   s.nextOrderID,
		nextItemID:    s.nextItemID,
		orders:        make(map[int64]domain.Order, len(s.orders)),
		items:         make(map[int64][]domain.OrderItem, len(s.items)),
		notifications: append([]domain.Notification(nil), s.notifications...),
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.items {
		out.items[k] = append([]domain.OrderItem(nil), v...)
	}
	return out
}

// memoryStore stages every transaction on a copy of its state and swaps the
// copy in only when the callback succeeds.
type memoryStore struct {
	mu      sync.Mutex
	state   memoryState
	catalog *memoryCatalog
	writes  int

	failInsertItems error
}

func newMemoryStore(cat *memoryCatalog) *memoryStore {
	return &memoryStore{
		state: memoryState{
			nextOrderID: 1,
			nextItemID:  1,
			orders:      map[int64]domain.Order{},
			items:       map[int64][]domain.OrderItem{},
		},
		catalog: cat,
	}
}

func (m *memoryStore) InTx(ctx context.Context, fn func(tx orderrepo.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := m.state.clone()
	tx := &memoryTx{store: m, state: &staged}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = staged
	m.writes += tx.writes
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Items = m.catalog.join(m.state.items[id])
	return &o, nil
}

func (m *memoryStore) List(_ context.Context, f orderrepo.ListFilter) ([]domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.Order
	for _, o := range m.state.orders {
		if f.Status != domain.StatusUnknown && o.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(o.FullName), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := len(matched)
	if f.Limit > 0 {
		if f.Offset >= len(matched) {
			return []domain.Order{}, total, nil
		}
		end := f.Offset + f.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[f.Offset:end]
	}
	return matched, total, nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Status = status
	m.state.orders[id] = o
	m.writes++
	return &o, nil
}

func (m *memoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.state.orders, id)
	delete(m.state.items, id)
	m.writes++
	return nil
}

func (m *memoryStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (m *memoryStore) itemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, items := range m.state.items {
		n += len(items)
	}
	return n
}

func (m *memoryStore) notificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.notifications)
}

// seed stores an order directly, bypassing the commit path.
func (m *memoryStore) seed(o domain.Order, items []domain.OrderItem) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.state.nextOrderID
	m.state.nextOrderID++
	m.state.orders[o.ID] = o
	for i := range items {
		items[i].ID = m.state.nextItemID
		items[i].OrderID = o.ID
		m.state.nextItemID++
	}
	m.state.items[o.ID] = items
	return o.ID
}

type memoryTx struct {
	store  *memoryStore
	state  *memoryState
	writes int
}

func (t *memoryTx) Catalog() catalog.Repository {
	return t.store.catalog
}

func (t *memoryTx) Notifications() notification.Repository {
	return &memoryNotifications{tx: t}
}

func (t *memoryTx) InsertOrder(_ context.Context, o *domain.Order) error {
	o.ID = t.state.nextOrderID
	t.state.nextOrderID++
	o.CreatedAt = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	o.UpdatedAt = o.CreatedAt
	stored := *o
	stored.Items = nil
	t.state.orders[o.ID] = stored
	t.writes++
	return nil
}

func (t *memoryTx) InsertItems(_ context.Context, orderID int64, items []domain.OrderItem) error {
	if t.store.failInsertItems != nil {
		return t.store.failInsertItems
	}
	for i := range items {
		items[i].ID = t.state.nextItemID
		items[i].OrderID = orderID
		t.state.nextItemID++
	}
	for _, it := range items {
		it.ProductName, it.VariantTitle, it.ImageURL = "", "", ""
		t.state.items[orderID] = append(t.state.items[orderID], it)
	}
	t.writes++
	return nil
}

func (t *memoryTx) LockOrder(_ context.Context, id int64) (*domain.Order, error) {
	o, ok := t.state.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (t *memoryTx) ListItems(_ context.Context, orderID int64) ([]domain.OrderItem, error) {
	return t.store.catalog.join(t.state.items[orderID]), nil
}

func (t *memoryTx) DeleteItems(_ context.Context, orderID int64) error {
	delete(t.state.items, orderID)
	t.writes++
	return nil
}

func (t *memoryTx) UpdateOrder(_ context.Context, o *domain.Order) error {
	if _, ok := t.state.orders[o.ID]; !ok {
		return domain.ErrNotFound
	}
	stored := *o
	stored.Items = nil
	t.state.orders[o.ID] = stored
	t.writes++
	return nil
}

type memoryNotifications struct {
	tx *memoryTx
}

func (n *memoryNotifications) Insert(_ context.Context, orderID int64, message string) (*domain.Notification, error) {
	row := domain.Notification{ID: int64(len(n.tx.state.notifications) + 1), OrderID: orderID, Message: message}
	n.tx.state.notifications = append(n.tx.state.notifications, row)
	n.tx.writes++
	return &row, nil
}

func (n *memoryNotifications) List(_ context.Context, _ bool, _ int) ([]domain.Notification, error) {
	return n.tx.state.notifications, nil
}

func (n *memoryNotifications) MarkRead(_ context.Context, _ int64) error {
	return nil
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func int64Ptr(v int64) *int64 {
	return &v
}
