// Package store holds the catalog and ledger persistence behind the sale
// processor: products and suppliers on one side, sales and notifications on
// the other, with a transactional unit of work spanning both.
package store

import (
	"context"
	"errors"

	"github.com/fairyhunter13/inventory-pos-service/internal/model"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrInsufficientStock is returned by a conditional decrement that would
	// take stock below zero.
	ErrInsufficientStock = errors.New("store: insufficient stock")
)

// DashboardLimits bounds the listings inside a dashboard summary.
type DashboardLimits struct {
	RecentSales int
	TopProducts int
}

// Store is the storage client handed to the sale processor and HTTP layer.
type Store interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, id int64, patch model.ProductPatch) (model.Product, error)
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	CreateSupplier(ctx context.Context, s *model.Supplier) error

	RecentSales(ctx context.Context, limit int) ([]model.SaleView, error)
	ListNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationSeen(ctx context.Context, id int64) (model.Notification, error)
	Dashboard(ctx context.Context, limits DashboardLimits) (model.DashboardSummary, error)

	// WithinTx runs fn as one unit of work. Every write made through the Tx
	// is committed when fn returns nil and discarded otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx is the transactional view used while applying a sale batch.
type Tx interface {
	ProductByID(ctx context.Context, id int64) (model.Product, error)
	// DecrementStock subtracts qty only if the result stays >= 0 and returns
	// the remaining quantity.
	DecrementStock(ctx context.Context, id int64, qty int64) (int64, error)
	InsertSale(ctx context.Context, s *model.Sale) error
	InsertNotification(ctx context.Context, n *model.Notification) error
}

func categoryLabel(c string) string {
	if c == "" {
		return model.UncategorizedLabel
	}
	return c
}
