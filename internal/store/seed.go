package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/inventory-pos-service/internal/model"
)

type demoProduct struct {
	name, category string
	price          int64
	stock, reorder int64
	supplier       int
}

var (
	demoSuppliers = [][2]string{
		{"Fresh Drinks Co.", "freshdrinks@example.com"},
		{"Snack World", "snacks@example.com"},
		{"Daily Essentials", "daily@example.com"},
	}
	demoProducts = []demoProduct{
		{"Coke", "Drinks", 20, 50, 10, 0},
		{"Sprite", "Drinks", 20, 40, 10, 0},
		{"Iced Tea", "Drinks", 25, 30, 8, 0},
		{"Potato Chips", "Snacks", 25, 80, 20, 1},
		{"Chocolate Bar", "Snacks", 30, 60, 15, 1},
		{"Instant Noodles", "Food", 15, 120, 30, 2},
		{"Toothpaste", "Essentials", 40, 35, 10, 2},
	}
)

// demoSales is the number of back-dated sales written by SeedDemo.
const demoSales = 40

// SeedDemo fills an empty catalog with demo suppliers, products and a week of
// back-dated sales. It does nothing when any product exists.
func SeedDemo(ctx context.Context, st Store, now time.Time) (bool, error) {
	existing, err := st.ListProducts(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	supplierIDs := make([]int64, 0, len(demoSuppliers))
	for _, d := range demoSuppliers {
		contact := d[1]
		s := model.Supplier{Name: d[0], Contact: &contact}
		if err := st.CreateSupplier(ctx, &s); err != nil {
			return false, fmt.Errorf("seed supplier %s: %w", d[0], err)
		}
		supplierIDs = append(supplierIDs, s.ID)
	}

	products := make([]model.Product, 0, len(demoProducts))
	for _, d := range demoProducts {
		sid := supplierIDs[d.supplier]
		p := model.Product{
			Name:          d.name,
			Category:      d.category,
			Price:         decimal.NewFromInt(d.price),
			StockQuantity: d.stock,
			ReorderLevel:  d.reorder,
			SupplierID:    &sid,
			CreatedAt:     now.AddDate(0, 0, -8),
		}
		if err := st.CreateProduct(ctx, &p); err != nil {
			return false, fmt.Errorf("seed product %s: %w", d.name, err)
		}
		products = append(products, p)
	}

	// Deterministic spread over products, quantities 1..5 and the last 8 days.
	err = st.WithinTx(ctx, func(tx Tx) error {
		for i := 0; i < demoSales; i++ {
			p := products[(i*3)%len(products)]
			qty := int64(1 + i%5)
			cur, err := tx.ProductByID(ctx, p.ID)
			if err != nil {
				return err
			}
			qty = min(qty, cur.StockQuantity)
			if qty == 0 {
				continue
			}
			if _, err := tx.DecrementStock(ctx, p.ID, qty); err != nil {
				return err
			}
			if err := tx.InsertSale(ctx, &model.Sale{
				ProductID:    p.ID,
				QuantitySold: qty,
				TotalPrice:   p.Price.Mul(decimal.NewFromInt(qty)),
				SaleDate:     now.AddDate(0, 0, -(i % 8)).Add(-time.Duration(i) * time.Minute),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seed sales: %w", err)
	}
	return true, nil
}
