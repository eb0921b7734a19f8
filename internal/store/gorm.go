package store

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fairyhunter13/inventory-pos-service/internal/model"
)

// Gorm is a Store backed by a relational database through gorm.
type Gorm struct {
	db *gorm.DB
	// lockRows adds SELECT ... FOR UPDATE on product reads inside a unit of
	// work; only dialects with row locks get it.
	lockRows bool
}

// NewGorm wraps an opened and migrated gorm handle.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db, lockRows: db.Dialector.Name() == "mysql"}
}

// DB exposes the underlying handle for tooling and tests.
func (g *Gorm) DB() *gorm.DB { return g.db }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (g *Gorm) ListProducts(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := g.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (g *Gorm) CreateProduct(ctx context.Context, p *model.Product) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.SupplierID != nil {
			if err := tx.First(&model.Supplier{}, *p.SupplierID).Error; err != nil {
				return notFound(err)
			}
		}
		return tx.Omit(clause.Associations).Create(p).Error
	})
}

func (g *Gorm) UpdateProduct(ctx context.Context, id int64, patch model.ProductPatch) (model.Product, error) {
	var p model.Product
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return notFound(err)
		}
		if patch.SupplierID != nil {
			if err := tx.First(&model.Supplier{}, *patch.SupplierID).Error; err != nil {
				return notFound(err)
			}
		}
		patch.Apply(&p)
		return tx.Omit(clause.Associations).Save(&p).Error
	})
	return p, err
}

func (g *Gorm) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	var out []model.Supplier
	err := g.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (g *Gorm) CreateSupplier(ctx context.Context, s *model.Supplier) error {
	return g.db.WithContext(ctx).Create(s).Error
}

func (g *Gorm) RecentSales(ctx context.Context, limit int) ([]model.SaleView, error) {
	return recentSales(g.db.WithContext(ctx), limit)
}

func recentSales(db *gorm.DB, limit int) ([]model.SaleView, error) {
	out := []model.SaleView{}
	err := db.Model(&model.Sale{}).
		Select("sales.id, sales.product_id, products.name AS product_name, sales.quantity_sold, sales.total_price, sales.sale_date").
		Joins("JOIN products ON products.id = sales.product_id").
		Order("sales.sale_date DESC").
		Order("sales.id ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

func (g *Gorm) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	err := g.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&out).Error
	return out, err
}

func (g *Gorm) MarkNotificationSeen(ctx context.Context, id int64) (model.Notification, error) {
	var n model.Notification
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&n, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&model.Notification{}).Where("id = ?", id).Update("seen", true).Error; err != nil {
			return err
		}
		n.Seen = true
		return nil
	})
	return n, err
}

type categoryRow struct {
	Category string
	Stock    int64
}

type revenueRow struct {
	ProductID  int64
	Name       string
	TotalPrice decimal.Decimal
}

func (g *Gorm) Dashboard(ctx context.Context, limits DashboardLimits) (model.DashboardSummary, error) {
	db := g.db.WithContext(ctx)
	sum := model.DashboardSummary{
		LowStockItems:   []model.LowStockItem{},
		StockByCategory: []model.CategoryStock{},
		SalesByProduct:  []model.ProductRevenue{},
	}
	if err := db.Model(&model.Product{}).Count(&sum.ProductCount).Error; err != nil {
		return sum, err
	}
	if err := db.Model(&model.Supplier{}).Count(&sum.SupplierCount).Error; err != nil {
		return sum, err
	}

	var low []model.Product
	if err := db.Where("stock_quantity <= reorder_level").Order("id ASC").Find(&low).Error; err != nil {
		return sum, err
	}
	for _, p := range low {
		sum.LowStockItems = append(sum.LowStockItems, model.LowStockItem{
			ID:           p.ID,
			Name:         p.Name,
			Category:     p.Category,
			Qty:          p.StockQuantity,
			ReorderLevel: p.ReorderLevel,
		})
	}
	sum.LowStockCount = len(sum.LowStockItems)

	// Money is summed in Go: SQLite stores decimal columns with REAL affinity.
	var priced []model.Product
	if err := db.Select("price", "stock_quantity").Find(&priced).Error; err != nil {
		return sum, err
	}
	sum.StockValue = decimal.Zero
	for _, p := range priced {
		sum.StockValue = sum.StockValue.Add(p.Price.Mul(decimal.NewFromInt(p.StockQuantity)))
	}

	var cats []categoryRow
	if err := db.Model(&model.Product{}).
		Select("COALESCE(category, '') AS category, COALESCE(SUM(stock_quantity), 0) AS stock").
		Group("category").
		Scan(&cats).Error; err != nil {
		return sum, err
	}
	merged := map[string]int64{}
	for _, c := range cats {
		merged[categoryLabel(c.Category)] += c.Stock
	}
	for c, qty := range merged {
		sum.StockByCategory = append(sum.StockByCategory, model.CategoryStock{Category: c, Stock: qty})
	}
	sort.Slice(sum.StockByCategory, func(i, j int) bool {
		return sum.StockByCategory[i].Category < sum.StockByCategory[j].Category
	})

	var rev []revenueRow
	if err := db.Model(&model.Sale{}).
		Select("sales.product_id AS product_id, products.name AS name, sales.total_price AS total_price").
		Joins("JOIN products ON products.id = sales.product_id").
		Scan(&rev).Error; err != nil {
		return sum, err
	}
	totals := map[int64]model.ProductRevenue{}
	for _, r := range rev {
		pr := totals[r.ProductID]
		pr.ProductID, pr.Name = r.ProductID, r.Name
		pr.Total = pr.Total.Add(r.TotalPrice)
		totals[r.ProductID] = pr
	}
	sum.SalesByProduct = topRevenue(totals, limits.TopProducts)

	recent, err := recentSales(db, limits.RecentSales)
	if err != nil {
		return sum, err
	}
	sum.RecentSales = recent
	return sum, nil
}

func (g *Gorm) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx, lockRows: g.lockRows})
	})
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormTx struct {
	db       *gorm.DB
	lockRows bool
}

func (t *gormTx) ProductByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	q := t.db.WithContext(ctx)
	if t.lockRows {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&p, id).Error; err != nil {
		return model.Product{}, notFound(err)
	}
	return p, nil
}

func (t *gormTx) DecrementStock(ctx context.Context, id int64, qty int64) (int64, error) {
	res := t.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := t.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientStock
	}
	var remaining int64
	if err := t.db.WithContext(ctx).Model(&model.Product{}).
		Select("stock_quantity").
		Where("id = ?", id).
		Row().Scan(&remaining); err != nil {
		return 0, err
	}
	return remaining, nil
}

func (t *gormTx) InsertSale(ctx context.Context, s *model.Sale) error {
	return t.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error
}

func (t *gormTx) InsertNotification(ctx context.Context, n *model.Notification) error {
	return t.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error
}
