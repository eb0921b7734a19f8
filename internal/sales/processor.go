// Package sales implements the point-of-sale workflow: a batch of line items
// is validated, stock is decremented, sale facts are recorded and low-stock
// notifications are raised, all in one unit of work.
package sales

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/inventory-pos-service/internal/model"
	"github.com/fairyhunter13/inventory-pos-service/internal/obs"
	"github.com/fairyhunter13/inventory-pos-service/internal/store"
)

// MsgNoItems is the validation message for an empty batch.
const MsgNoItems = "No items in sale"

// AlertSink receives low-stock alerts after their batch has committed.
type AlertSink interface {
	Enqueue(a model.LowStockAlert) bool
	NextSequence() uint64
}

// Stats is a snapshot of the processor counters.
type Stats struct {
	BatchesCommitted    uint64 `json:"batches_committed"`
	BatchesRejected     uint64 `json:"batches_rejected"`
	BatchesFailed       uint64 `json:"batches_failed"`
	ItemsSkipped        uint64 `json:"items_skipped"`
	SalesCreated        uint64 `json:"sales_created"`
	NotificationsRaised uint64 `json:"notifications_raised"`
}

// Processor owns the sale workflow and the read-side projections over the
// ledger. It holds no state besides counters; every call goes to the store.
type Processor struct {
	store  store.Store
	policy ItemPolicy
	alerts AlertSink
	tracer trace.Tracer
	now    func() time.Time

	listLimit   int
	recentLimit int
	topProducts int

	committed     atomic.Uint64
	rejected      atomic.Uint64
	failed        atomic.Uint64
	skipped       atomic.Uint64
	salesCreated  atomic.Uint64
	notifications atomic.Uint64
}

// Option customises a Processor.
type Option func(*Processor)

// WithPolicy selects how malformed line items are treated.
func WithPolicy(p ItemPolicy) Option { return func(pr *Processor) { pr.policy = p } }

// WithAlertSink forwards committed notifications to s.
func WithAlertSink(s AlertSink) Option { return func(pr *Processor) { pr.alerts = s } }

// WithClock overrides the time source used for sale and notification dates.
func WithClock(now func() time.Time) Option { return func(pr *Processor) { pr.now = now } }

// WithTracer overrides the tracer.
func WithTracer(t trace.Tracer) Option { return func(pr *Processor) { pr.tracer = t } }

// WithLimits sets the sales listing size, the dashboard recent-sales size and
// the number of products in the revenue ranking.
func WithLimits(list, recent, top int) Option {
	return func(pr *Processor) {
		pr.listLimit, pr.recentLimit, pr.topProducts = list, recent, top
	}
}

// New builds a Processor over st.
func New(st store.Store, opts ...Option) *Processor {
	p := &Processor{
		store:       st,
		policy:      PolicyLenient,
		tracer:      otel.Tracer("github.com/fairyhunter13/inventory-pos-service/internal/sales"),
		now:         func() time.Time { return time.Now().UTC() },
		listLimit:   100,
		recentLimit: 10,
		topProducts: 7,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// LowStockMessage formats the notification text for a product.
func LowStockMessage(name string, remaining int64) string {
	return fmt.Sprintf("Low stock: %s (qty: %d)", name, remaining)
}

// ProcessSale applies a batch of line items atomically. On any error nothing
// has been persisted.
func (p *Processor) ProcessSale(ctx context.Context, items []model.LineItem) (*model.SaleResult, error) {
	ctx, span := p.tracer.Start(ctx, "sales.process_sale")
	defer span.End()
	span.SetAttributes(
		attribute.Int("sale.items_requested", len(items)),
		attribute.String("sale.item_policy", p.policy.String()),
	)

	res, alerts, err := p.processSale(ctx, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if IsDomain(err) {
			p.rejected.Add(1)
			obs.Logger.Infow("sale_rejected", "reason", err.Error(), "items", len(items))
		} else {
			p.failed.Add(1)
			obs.Logger.Errorw("sale_failed", "error", err, "items", len(items))
		}
		return nil, err
	}

	p.committed.Add(1)
	p.salesCreated.Add(uint64(len(res.Sales)))
	p.notifications.Add(uint64(len(alerts)))
	span.SetAttributes(
		attribute.Int("sale.lines_committed", len(res.Sales)),
		attribute.Int("sale.notifications", len(alerts)),
	)
	span.SetStatus(codes.Ok, "committed")
	obs.Logger.Infow("sale_committed", "lines", len(res.Sales), "notifications", len(alerts))

	p.dispatch(alerts)
	return res, nil
}

func (p *Processor) processSale(ctx context.Context, items []model.LineItem) (*model.SaleResult, []model.LowStockAlert, error) {
	if len(items) == 0 {
		return nil, nil, &ValidationError{Message: MsgNoItems}
	}
	accepted, skipped, err := p.policy.screen(items)
	if err != nil {
		return nil, nil, err
	}
	if skipped > 0 {
		p.skipped.Add(uint64(skipped))
		obs.Logger.Warnw("sale_items_skipped", "skipped", skipped, "accepted", len(accepted))
	}

	var (
		lines  []model.SaleLine
		alerts []model.LowStockAlert
	)
	err = p.store.WithinTx(ctx, func(tx store.Tx) error {
		// reset per attempt
		lines = make([]model.SaleLine, 0, len(accepted))
		alerts = alerts[:0]
		at := p.now()
		for _, it := range accepted {
			line, alert, err := p.applyItem(ctx, tx, it, at)
			if err != nil {
				return err
			}
			lines = append(lines, line)
			if alert != nil {
				alerts = append(alerts, *alert)
			}
		}
		return nil
	})
	if err != nil {
		if IsDomain(err) {
			return nil, nil, err
		}
		return nil, nil, &StorageError{Op: "process sale", Err: err}
	}
	return &model.SaleResult{Status: "ok", Sales: lines}, alerts, nil
}

func (p *Processor) applyItem(ctx context.Context, tx store.Tx, it model.LineItem, at time.Time) (model.SaleLine, *model.LowStockAlert, error) {
	product, err := tx.ProductByID(ctx, it.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.SaleLine{}, nil, &NotFoundError{Kind: "product", ID: it.ProductID}
		}
		return model.SaleLine{}, nil, err
	}
	short := &InsufficientStockError{
		ProductID:   product.ID,
		ProductName: product.Name,
		Requested:   it.Quantity,
		Available:   product.StockQuantity,
	}
	if product.StockQuantity < it.Quantity {
		return model.SaleLine{}, nil, short
	}
	remaining, err := tx.DecrementStock(ctx, product.ID, it.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientStock):
			return model.SaleLine{}, nil, short
		case errors.Is(err, store.ErrNotFound):
			return model.SaleLine{}, nil, &NotFoundError{Kind: "product", ID: it.ProductID}
		}
		return model.SaleLine{}, nil, err
	}

	total := product.Price.Mul(decimal.NewFromInt(it.Quantity))
	sale := &model.Sale{
		ProductID:    product.ID,
		QuantitySold: it.Quantity,
		TotalPrice:   total,
		SaleDate:     at,
	}
	if err := tx.InsertSale(ctx, sale); err != nil {
		return model.SaleLine{}, nil, err
	}
	line := model.SaleLine{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    it.Quantity,
		TotalPrice:  total,
	}
	if remaining > product.ReorderLevel {
		return line, nil, nil
	}

	n := &model.Notification{
		ProductID: product.ID,
		Message:   LowStockMessage(product.Name, remaining),
		CreatedAt: at,
	}
	if err := tx.InsertNotification(ctx, n); err != nil {
		return model.SaleLine{}, nil, err
	}
	return line, &model.LowStockAlert{
		NotificationID: n.ID,
		ProductID:      product.ID,
		ProductName:    product.Name,
		Remaining:      remaining,
		ReorderLevel:   product.ReorderLevel,
		Message:        n.Message,
		CreatedAt:      at,
	}, nil
}

func (p *Processor) dispatch(alerts []model.LowStockAlert) {
	if p.alerts == nil {
		return
	}
	for _, a := range alerts {
		a.Sequence = p.alerts.NextSequence()
		if !p.alerts.Enqueue(a) {
			obs.Logger.Warnw("low_stock_alert_dropped", "product_id", a.ProductID, "notification_id", a.NotificationID)
		}
	}
}

// ListSales returns the most recent sales for the full listing.
func (p *Processor) ListSales(ctx context.Context) ([]model.SaleView, error) {
	out, err := p.store.RecentSales(ctx, p.listLimit)
	if err != nil {
		return nil, &StorageError{Op: "list sales", Err: err}
	}
	return out, nil
}

// Dashboard returns the KPI summary.
func (p *Processor) Dashboard(ctx context.Context) (model.DashboardSummary, error) {
	sum, err := p.store.Dashboard(ctx, store.DashboardLimits{RecentSales: p.recentLimit, TopProducts: p.topProducts})
	if err != nil {
		return model.DashboardSummary{}, &StorageError{Op: "dashboard summary", Err: err}
	}
	return sum, nil
}

// ListNotifications returns every notification, newest first.
func (p *Processor) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	out, err := p.store.ListNotifications(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list notifications", Err: err}
	}
	return out, nil
}

// MarkNotificationSeen acknowledges one notification.
func (p *Processor) MarkNotificationSeen(ctx context.Context, id int64) (model.Notification, error) {
	n, err := p.store.MarkNotificationSeen(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Notification{}, &NotFoundError{Kind: "notification", ID: id}
		}
		return model.Notification{}, &StorageError{Op: "mark notification seen", Err: err}
	}
	return n, nil
}

// Stats returns a snapshot of the counters.
func (p *Processor) Stats() Stats {
	return Stats{
		BatchesCommitted:    p.committed.Load(),
		BatchesRejected:     p.rejected.Load(),
		BatchesFailed:       p.failed.Load(),
		ItemsSkipped:        p.skipped.Load(),
		SalesCreated:        p.salesCreated.Load(),
		NotificationsRaised: p.notifications.Load(),
	}
}
