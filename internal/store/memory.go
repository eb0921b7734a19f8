package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/inventory-pos-service/internal/model"
)

// Memory is an in-process Store. Units of work are serialised on a single
// mutex and staged, so a failed WithinTx leaves no trace.
type Memory struct {
	mu            sync.RWMutex
	products      map[int64]model.Product
	suppliers     map[int64]model.Supplier
	sales         []model.Sale
	notifications []model.Notification

	lastProductID      int64
	lastSupplierID     int64
	lastSaleID         int64
	lastNotificationID int64

	now func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		products:  make(map[int64]model.Product),
		suppliers: make(map[int64]model.Supplier),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) ListProducts(_ context.Context) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) CreateProduct(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.SupplierID != nil {
		if _, ok := m.suppliers[*p.SupplierID]; !ok {
			return ErrNotFound
		}
	}
	m.lastProductID++
	p.ID = m.lastProductID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}
	m.products[p.ID] = *p
	return nil
}

func (m *Memory) UpdateProduct(_ context.Context, id int64, patch model.ProductPatch) (model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	if patch.SupplierID != nil {
		if _, ok := m.suppliers[*patch.SupplierID]; !ok {
			return model.Product{}, ErrNotFound
		}
	}
	patch.Apply(&p)
	m.products[id] = p
	return p, nil
}

func (m *Memory) ListSuppliers(_ context.Context) ([]model.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) CreateSupplier(_ context.Context, s *model.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSupplierID++
	s.ID = m.lastSupplierID
	m.suppliers[s.ID] = *s
	return nil
}

func (m *Memory) RecentSales(_ context.Context, limit int) ([]model.SaleView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recentSalesLocked(limit), nil
}

func (m *Memory) recentSalesLocked(limit int) []model.SaleView {
	sorted := make([]model.Sale, len(m.sales))
	copy(sorted, m.sales)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].SaleDate.Equal(sorted[j].SaleDate) {
			return sorted[i].SaleDate.After(sorted[j].SaleDate)
		}
		return sorted[i].ID < sorted[j].ID
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]model.SaleView, 0, len(sorted))
	for _, s := range sorted {
		out = append(out, model.SaleView{
			ID:           s.ID,
			ProductID:    s.ProductID,
			ProductName:  m.products[s.ProductID].Name,
			QuantitySold: s.QuantitySold,
			TotalPrice:   s.TotalPrice,
			SaleDate:     s.SaleDate,
		})
	}
	return out
}

func (m *Memory) ListNotifications(_ context.Context) ([]model.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Notification, len(m.notifications))
	copy(out, m.notifications)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) MarkNotificationSeen(_ context.Context, id int64) (model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			m.notifications[i].Seen = true
			return m.notifications[i], nil
		}
	}
	return model.Notification{}, ErrNotFound
}

func (m *Memory) Dashboard(_ context.Context, limits DashboardLimits) (model.DashboardSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := model.DashboardSummary{
		ProductCount:    int64(len(m.products)),
		SupplierCount:   int64(len(m.suppliers)),
		StockValue:      decimal.Zero,
		LowStockItems:   []model.LowStockItem{},
		StockByCategory: []model.CategoryStock{},
		SalesByProduct:  []model.ProductRevenue{},
	}
	ids := make([]int64, 0, len(m.products))
	for id := range m.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	byCategory := map[string]int64{}
	for _, id := range ids {
		p := m.products[id]
		sum.StockValue = sum.StockValue.Add(p.Price.Mul(decimal.NewFromInt(p.StockQuantity)))
		byCategory[categoryLabel(p.Category)] += p.StockQuantity
		if p.LowStock() {
			sum.LowStockItems = append(sum.LowStockItems, model.LowStockItem{
				ID:           p.ID,
				Name:         p.Name,
				Category:     p.Category,
				Qty:          p.StockQuantity,
				ReorderLevel: p.ReorderLevel,
			})
		}
	}
	sum.LowStockCount = len(sum.LowStockItems)
	for c, qty := range byCategory {
		sum.StockByCategory = append(sum.StockByCategory, model.CategoryStock{Category: c, Stock: qty})
	}
	sort.Slice(sum.StockByCategory, func(i, j int) bool {
		return sum.StockByCategory[i].Category < sum.StockByCategory[j].Category
	})

	totals := map[int64]model.ProductRevenue{}
	for _, s := range m.sales {
		pr := totals[s.ProductID]
		pr.ProductID, pr.Name = s.ProductID, m.products[s.ProductID].Name
		pr.Total = pr.Total.Add(s.TotalPrice)
		totals[s.ProductID] = pr
	}
	sum.SalesByProduct = topRevenue(totals, limits.TopProducts)
	sum.RecentSales = m.recentSalesLocked(limits.RecentSales)
	return sum, nil
}

// topRevenue ranks per-product totals by revenue DESC then product id ASC and
// keeps the first top entries.
func topRevenue(totals map[int64]model.ProductRevenue, top int) []model.ProductRevenue {
	rows := make([]model.ProductRevenue, 0, len(totals))
	for _, r := range totals {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].Total.Cmp(rows[j].Total); c != 0 {
			return c > 0
		}
		return rows[i].ProductID < rows[j].ProductID
	})
	if top >= 0 && len(rows) > top {
		rows = rows[:top]
	}
	return rows
}

func (m *Memory) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{
		m:                  m,
		staged:             make(map[int64]model.Product),
		lastSaleID:         m.lastSaleID,
		lastNotificationID: m.lastNotificationID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, p := range tx.staged {
		m.products[id] = p
	}
	m.sales = append(m.sales, tx.sales...)
	m.notifications = append(m.notifications, tx.notifications...)
	m.lastSaleID = tx.lastSaleID
	m.lastNotificationID = tx.lastNotificationID
	return nil
}

func (m *Memory) Close() error { return nil }

// memoryTx reads through its staged rows; it runs with m.mu held.
type memoryTx struct {
	m                  *Memory
	staged             map[int64]model.Product
	sales              []model.Sale
	notifications      []model.Notification
	lastSaleID         int64
	lastNotificationID int64
}

func (t *memoryTx) ProductByID(_ context.Context, id int64) (model.Product, error) {
	if p, ok := t.staged[id]; ok {
		return p, nil
	}
	p, ok := t.m.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

func (t *memoryTx) DecrementStock(ctx context.Context, id int64, qty int64) (int64, error) {
	p, err := t.ProductByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if p.StockQuantity-qty < 0 {
		return p.StockQuantity, ErrInsufficientStock
	}
	p.StockQuantity -= qty
	t.staged[id] = p
	return p.StockQuantity, nil
}

func (t *memoryTx) InsertSale(_ context.Context, s *model.Sale) error {
	if _, err := t.ProductByID(context.Background(), s.ProductID); err != nil {
		return err
	}
	t.lastSaleID++
	s.ID = t.lastSaleID
	t.sales = append(t.sales, *s)
	return nil
}

func (t *memoryTx) InsertNotification(_ context.Context, n *model.Notification) error {
	t.lastNotificationID++
	n.ID = t.lastNotificationID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = t.m.now()
	}
	t.notifications = append(t.notifications, *n)
	return nil
}
