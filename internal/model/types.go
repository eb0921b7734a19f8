// Package model defines domain types used by the service.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a vendor that restocks products.
type Supplier struct {
	ID      int64   `gorm:"primaryKey" json:"id"`
	Name    string  `gorm:"size:128;not null" json:"name"`
	Contact *string `gorm:"size:256" json:"contact"`
}

// Product represents the current catalog state of a product.
type Product struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:256;not null" json:"name"`
	Category      string          `gorm:"size:128" json:"category"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	StockQuantity int64           `gorm:"not null" json:"stock_quantity"`
	ReorderLevel  int64           `gorm:"not null" json:"reorder_level"`
	SupplierID    *int64          `gorm:"index" json:"supplier_id"`
	Supplier      *Supplier       `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p Product) LowStock() bool { return p.StockQuantity <= p.ReorderLevel }

// ProductPatch carries a partial product update. Nil fields are left as is.
type ProductPatch struct {
	Name          *string          `json:"name,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	StockQuantity *int64           `json:"stock_quantity,omitempty"`
	ReorderLevel  *int64           `json:"reorder_level,omitempty"`
	SupplierID    *int64           `json:"supplier_id,omitempty"`
}

// Apply copies the set fields of the patch onto p.
func (pp ProductPatch) Apply(p *Product) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.StockQuantity != nil {
		p.StockQuantity = *pp.StockQuantity
	}
	if pp.ReorderLevel != nil {
		p.ReorderLevel = *pp.ReorderLevel
	}
	if pp.SupplierID != nil {
		id := *pp.SupplierID
		p.SupplierID = &id
	}
}

// Sale is an immutable record of one sold line item.
type Sale struct {
	ID           int64           `gorm:"primaryKey" json:"id"`
	ProductID    int64           `gorm:"not null;index" json:"product_id"`
	Product      *Product        `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	QuantitySold int64           `gorm:"not null" json:"quantity_sold"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_price"`
	SaleDate     time.Time       `gorm:"not null;index" json:"sale_date"`
}

// Notification is a low-stock notice raised by a sale.
type Notification struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ProductID int64     `gorm:"index" json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Message   string    `gorm:"size:512" json:"message"`
	Seen      bool      `gorm:"not null" json:"seen"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// LineItem is one requested (product, quantity) pair of a sale batch.
type LineItem struct {
	ProductID int64
	Quantity  int64
}

// SaleLine describes one accepted line of a committed batch.
type SaleLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// SaleResult is returned for a committed batch.
type SaleResult struct {
	Status string     `json:"status"`
	Sales  []SaleLine `json:"sales"`
}

// SaleView is a sale joined with its product name.
type SaleView struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int64           `json:"quantity_sold"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	SaleDate     time.Time       `json:"sale_date"`
}

// LowStockItem is a dashboard row for a product at or below reorder level.
type LowStockItem struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Qty          int64  `json:"qty"`
	ReorderLevel int64  `json:"reorder_level"`
}

// CategoryStock is the summed stock of one category.
type CategoryStock struct {
	Category string `json:"category"`
	Stock    int64  `json:"stock"`
}

// ProductRevenue is the summed sale total of one product.
type ProductRevenue struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Total     decimal.Decimal `json:"total"`
}

// DashboardSummary aggregates catalog and ledger KPIs.
type DashboardSummary struct {
	ProductCount    int64            `json:"product_count"`
	SupplierCount   int64            `json:"supplier_count"`
	LowStockCount   int              `json:"low_stock_count"`
	StockValue      decimal.Decimal  `json:"stock_value"`
	LowStockItems   []LowStockItem   `json:"low_stock_items"`
	RecentSales     []SaleView       `json:"recent_sales"`
	StockByCategory []CategoryStock  `json:"stock_by_category"`
	SalesByProduct  []ProductRevenue `json:"sales_by_product"`
}

// UncategorizedLabel names products without a category in aggregates.
const UncategorizedLabel = "Uncategorized"

// LowStockAlert is a committed low-stock notification handed to the dispatcher.
type LowStockAlert struct {
	Sequence       uint64    `json:"sequence"`
	NotificationID int64     `json:"notification_id"`
	ProductID      int64     `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Remaining      int64     `json:"remaining"`
	ReorderLevel   int64     `json:"reorder_level"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}
